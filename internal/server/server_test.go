package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-formflow/internal/server"
	"github.com/goliatone/go-formflow/internal/submissions"
	"github.com/goliatone/go-formflow/pkg/metrics"
	"github.com/goliatone/go-formflow/pkg/schemastore"
)

const summit = `[
  {"label": "Attendee", "elements": [
    {"id": "f1", "type": "text", "name": "name", "label": "Full name", "required": true},
    {"id": "f2", "type": "multiple-checkbox", "name": "tracks", "label": "Tracks", "options": [{"value": "go", "text": "Go"}, {"value": "rust", "text": "Rust"}]}
  ]},
  {"label": "Extras", "elements": [
    {"id": "f3", "type": "checkbox", "name": "agree", "label": "I agree", "required": true},
    {"id": "f4", "type": "file", "name": "photo", "label": "Photo", "accept": ["image/*"], "sizeLimit": 1}
  ]}
]`

type fixture struct {
	handler http.Handler
	store   *submissions.Store
	metrics *metrics.Collector
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	schemas, err := schemastore.LoadFS(fstest.MapFS{
		"summit.json": {Data: []byte(summit)},
		"broken.json": {Data: []byte(`{"not": "a list"`)},
	})
	if err != nil {
		t.Fatalf("load schemas: %v", err)
	}
	store, err := submissions.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	collector := metrics.NewWithRegistry(prometheus.NewRegistry())
	srv, err := server.New(server.Deps{
		Schemas:       schemas,
		Registrations: store,
		Metrics:       collector,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return fixture{handler: srv.Handler(), store: store, metrics: collector}
}

func (f fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f fixture) startSession(t *testing.T, cookies ...*http.Cookie) (string, []*http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/forms/summit/sessions", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := f.do(t, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("create session status = %d", rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/sessions/") {
		t.Fatalf("unexpected redirect %q", location)
	}
	if len(cookies) == 0 {
		cookies = rec.Result().Cookies()
	}
	return location, cookies
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHealthAndForms(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/forms", nil))
	var forms []struct {
		Name       string `json:"name"`
		Partitions int    `json:"partitions"`
		Invalid    bool   `json:"invalid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &forms); err != nil {
		t.Fatalf("decode forms: %v", err)
	}
	want := []struct {
		Name       string `json:"name"`
		Partitions int    `json:"partitions"`
		Invalid    bool   `json:"invalid"`
	}{
		{Name: "broken", Invalid: true},
		{Name: "summit", Partitions: 2},
	}
	if diff := cmp.Diff(want, forms); diff != "" {
		t.Fatalf("forms mismatch (-want +got):\n%s", diff)
	}

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/forms/missing/schema", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing schema status = %d", rec.Code)
	}
	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/forms/summit/schema", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"tracks"`) {
		t.Fatalf("schema response %d %s", rec.Code, rec.Body.String())
	}
}

func TestSessionFlow(t *testing.T) {
	f := newFixture(t)
	path, cookies := f.startSession(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Full name") {
		t.Fatalf("show session %d:\n%s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, postForm(path, url.Values{"action": {"next"}, "name": {""}, "tracks": {""}}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blocked next status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "This field is required.") {
		t.Fatalf("expected required message:\n%s", rec.Body.String())
	}

	rec = f.do(t, postForm(path, url.Values{"action": {"next"}, "name": {"Ada"}, "tracks": {"", "go", "rust"}}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("next status = %d", rec.Code)
	}
	rec = f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	if !strings.Contains(rec.Body.String(), "I agree") {
		t.Fatalf("expected second partition:\n%s", rec.Body.String())
	}

	rec = f.do(t, postForm(path, url.Values{"action": {"submit"}, "agree": {""}}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blocked submit status = %d", rec.Code)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("action", "submit")
	mw.WriteField("agree", "")
	mw.WriteField("agree", "on")
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="photo"; filename="me.png"`)
	header.Set("Content-Type", "image/png")
	part, _ := mw.CreatePart(header)
	part.Write([]byte("png"))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = f.do(t, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("submit status = %d:\n%s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	if !strings.Contains(rec.Body.String(), "Registered") {
		t.Fatalf("expected confirmation:\n%s", rec.Body.String())
	}

	records, err := f.store.List(context.Background(), "summit")
	if err != nil || len(records) != 1 {
		t.Fatalf("records = %v, %v", records, err)
	}
	want := map[string]any{
		"name":   "Ada",
		"tracks": []any{"go", "rust"},
		"agree":  true,
		"photo":  []any{map[string]any{"name": "me.png", "type": "image/png", "size": float64(3)}},
	}
	if diff := cmp.Diff(want, records[0].Values); diff != "" {
		t.Fatalf("stored values mismatch (-want +got):\n%s", diff)
	}
	if got := testutil.ToFloat64(f.metrics.Submissions.WithLabelValues("summit", metrics.OutcomeAccepted)); got != 1 {
		t.Fatalf("accepted submissions = %v", got)
	}

	// A new session from the same browser is told it already registered.
	second, _ := f.startSession(t, cookies...)
	rec = f.do(t, httptest.NewRequest(http.MethodGet, second, nil))
	if !strings.Contains(rec.Body.String(), submissions.DuplicateMessage) {
		t.Fatalf("expected duplicate notice:\n%s", rec.Body.String())
	}
}

func TestSessionJumpAndBack(t *testing.T) {
	f := newFixture(t)
	path, _ := f.startSession(t)

	rec := f.do(t, postForm(path, url.Values{"action": {"jump:1"}}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("jump status = %d", rec.Code)
	}
	rec = f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	if !strings.Contains(rec.Body.String(), "I agree") {
		t.Fatalf("expected jump to second partition")
	}

	f.do(t, postForm(path, url.Values{"action": {"back"}}))
	rec = f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	if !strings.Contains(rec.Body.String(), "Full name") {
		t.Fatalf("expected back to first partition")
	}

	rec = f.do(t, postForm(path, url.Values{"action": {"submit"}}))
	if rec.Code != http.StatusConflict {
		t.Fatalf("submit from first partition status = %d", rec.Code)
	}

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/sessions/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session status = %d", rec.Code)
	}
}

func register(t *testing.T, f fixture, attendee, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/forms/summit/registrations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if attendee != "" {
		req.Header.Set(server.SessionHeader, attendee)
	}
	return f.do(t, req)
}

func TestRegistrationAPI(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name     string
		attendee string
		body     string
		status   int
	}{
		{"missing header", "", `{}`, http.StatusBadRequest},
		{"malformed", "a-1", `{`, http.StatusBadRequest},
		{"wrong type", "a-1", `{"name": 5}`, http.StatusBadRequest},
		{"validation", "a-1", `{"name": "Ada"}`, http.StatusUnprocessableEntity},
		{"oversized file", "a-1", `{"name": "Ada", "agree": true, "photo": [{"name": "big.png", "type": "image/png", "size": 5000000}]}`, http.StatusUnprocessableEntity},
		{"accepted", "a-1", `{"name": "Ada", "agree": true, "tracks": ["go"], "ticketTypeId": "vip"}`, http.StatusCreated},
		{"duplicate", "a-1", `{"name": "Ada", "agree": true}`, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := register(t, f, tc.attendee, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d:\n%s", rec.Code, tc.status, rec.Body.String())
			}
		})
	}

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/submissions/summit", nil))
	var records []submissions.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 1 || records[0].TicketTypeID != "vip" || records[0].Session != "a-1" {
		t.Fatalf("unexpected records %+v", records)
	}
	if got := testutil.ToFloat64(f.metrics.Submissions.WithLabelValues("summit", metrics.OutcomeDuplicate)); got != 1 {
		t.Fatalf("duplicate submissions = %v", got)
	}
}

func TestRegistrationAPI_ValidationPayload(t *testing.T) {
	f := newFixture(t)
	rec := register(t, f, "a-2", `{"name": "Ada"}`)
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"agree": "This field is required."}, body.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("openapi status = %d", rec.Code)
	}
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := doc.Paths["/forms/summit/registrations"]; !ok {
		t.Fatalf("missing registration path in %v", doc.Paths)
	}
	if _, ok := doc.Paths["/forms/broken/registrations"]; ok {
		t.Fatalf("invalid forms must not be documented")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := testutil.ToFloat64(f.metrics.RequestsTotal.WithLabelValues("GET", "/healthz", "2xx")); got != 1 {
		t.Fatalf("requests counted = %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.SchemasLoaded); got != 2 {
		t.Fatalf("schemas loaded = %v", got)
	}
}
