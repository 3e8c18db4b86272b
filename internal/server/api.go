package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-formflow/internal/submissions"
	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/metrics"
	pkgopenapi "github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/schemastore"
)

type formSummary struct {
	Name       string         `json:"name"`
	Format     schema.Format  `json:"format"`
	Partitions int            `json:"partitions"`
	Fields     int            `json:"fields"`
	Invalid    bool           `json:"invalid,omitempty"`
	Issues     []schema.Issue `json:"issues,omitempty"`
}

func (s *Server) handleListForms(w http.ResponseWriter, r *http.Request) {
	entries := s.deps.Schemas.Entries()
	out := make([]formSummary, 0, len(entries))
	for _, entry := range entries {
		out = append(out, formSummary{
			Name:       entry.Name,
			Format:     entry.Format,
			Partitions: len(entry.Result.Schema.Partitions),
			Fields:     len(entry.Result.Schema.Names()),
			Invalid:    entry.Result.Invalid,
			Issues:     entry.Result.Issues,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (schemastore.Entry, bool) {
	name := chi.URLParam(r, "form")
	entry, ok := s.deps.Schemas.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("form %q not found", name))
	}
	return entry, ok
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry.Result.Schema)
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	records, err := s.deps.Registrations.List(r.Context(), entry.Name)
	if err != nil {
		s.logger.Error().Err(err).Str("form", entry.Name).Msg("list submissions failed")
		writeError(w, http.StatusInternalServerError, "could not list submissions")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	entries := s.deps.Schemas.Entries()
	forms := make([]pkgopenapi.Form, 0, len(entries))
	for _, entry := range entries {
		if entry.Result.Invalid {
			continue
		}
		forms = append(forms, pkgopenapi.Form{Name: entry.Name, Schema: entry.Result.Schema})
	}
	doc, err := pkgopenapi.NewDocument(s.deps.Info, forms...)
	if err != nil {
		s.logger.Error().Err(err).Msg("build openapi document failed")
		writeError(w, http.StatusInternalServerError, "could not build document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleRegister accepts a complete registration as JSON. Values are type
// checked against the payload schema, then run through the same validation
// as the HTML flow before being stored.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	attendee := strings.TrimSpace(r.Header.Get(SessionHeader))
	if attendee == "" {
		writeError(w, http.StatusBadRequest, SessionHeader+" header is required")
		return
	}
	if entry.Result.Invalid || entry.Result.Schema.Empty() {
		writeError(w, http.StatusConflict, "form is not accepting registrations")
		return
	}

	var payload map[string]any
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes))
	if err := decoder.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sch := entry.Result.Schema
	if err := pkgopenapi.CheckPayload(sch, payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ticket, _ := payload[schema.TicketTypeField].(string)
	form := engine.New(entry.Result, engine.WithName(entry.Name), engine.WithLogger(s.logger))
	for _, event := range eventsFromPayload(sch, payload) {
		form.Change(event)
	}
	if rejected := form.State().Errors(); len(rejected) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": rejected})
		return
	}
	form.JumpTo(len(sch.Partitions) - 1)

	var record submissions.Record
	called, err := form.Submit(r.Context(), func(ctx context.Context, values map[string]any) error {
		if ticket != "" {
			values[schema.TicketTypeField] = ticket
		}
		saved, err := s.deps.Registrations.Save(ctx, entry.Name, attendee, values)
		if err != nil {
			return err
		}
		record = saved
		return nil
	})
	s.observeSubmit(entry.Name, form, called, err)

	switch {
	case !called && err == nil:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": form.State().Errors()})
	case errors.Is(err, submissions.ErrDuplicate):
		writeError(w, http.StatusConflict, submissions.DuplicateMessage)
	case err != nil:
		s.logger.Error().Err(err).Str("form", entry.Name).Msg("store registration failed")
		writeError(w, http.StatusInternalServerError, "could not store registration")
	default:
		writeJSON(w, http.StatusCreated, record)
	}
}

// observeSubmit reports a JSON registration to the collector. API forms are
// built without the observer so their synthetic jump is not counted.
func (s *Server) observeSubmit(name string, form *engine.Form, called bool, err error) {
	m := s.deps.Metrics
	if m == nil {
		return
	}
	if !called {
		if n := len(form.State().Errors()); n > 0 {
			m.ValidationFailed(name, engine.StageSubmit, n)
		}
		return
	}
	if errors.Is(err, submissions.ErrDuplicate) {
		err = fmt.Errorf("%w: %w", metrics.ErrDuplicateSubmission, err)
	}
	m.Submitted(name, err)
}
