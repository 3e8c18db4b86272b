package submissions_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/goliatone/go-formflow/internal/submissions"
	"github.com/goliatone/go-formflow/pkg/schema"
)

func setupStore(t *testing.T, options ...submissions.Option) *submissions.Store {
	t.Helper()
	store, err := submissions.Open(context.Background(), ":memory:", options...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestStore_SaveAndList(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	store := setupStore(t, submissions.WithClock(fixedClock(start)))
	ctx := context.Background()

	values := map[string]any{
		"name":                 "Ada",
		"tracks":               []string{"go", "rust"},
		"agree":                true,
		"photo":                []schema.File{{Name: "me.png", Type: "image/png", Size: 10}},
		schema.TicketTypeField: "vip",
	}
	saved, err := store.Save(ctx, "summit", "session-1", values)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == uuid.Nil || saved.TicketTypeID != "vip" {
		t.Fatalf("unexpected record %+v", saved)
	}
	if _, ok := values[schema.TicketTypeField]; !ok {
		t.Fatalf("Save must not mutate the caller's values")
	}

	if _, err := store.Save(ctx, "summit", "session-2", map[string]any{"name": "Grace"}); err != nil {
		t.Fatalf("save second: %v", err)
	}
	if _, err := store.Save(ctx, "meetup", "session-1", map[string]any{"name": "Ada"}); err != nil {
		t.Fatalf("save other form: %v", err)
	}

	records, err := store.List(ctx, "summit")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if diff := cmp.Diff(saved, records[0]); diff != "" {
		t.Fatalf("record mismatch (-saved +listed):\n%s", diff)
	}

	wantValues := map[string]any{
		"name":   "Ada",
		"tracks": []any{"go", "rust"},
		"agree":  true,
		"photo":  []any{map[string]any{"name": "me.png", "type": "image/png", "size": float64(10)}},
	}
	if diff := cmp.Diff(wantValues, records[0].Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if !records[0].CreatedAt.Before(records[1].CreatedAt) {
		t.Fatalf("records must be in creation order")
	}

	count, err := store.Count(ctx, "summit")
	if err != nil || count != 2 {
		t.Fatalf("count = %d, %v", count, err)
	}
}

func TestStore_ListOrdersSubSecondTimes(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 5, 0, time.UTC)
	now := base
	store := setupStore(t, submissions.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	saves := []struct {
		session string
		at      time.Time
	}{
		{"whole", base},
		{"half", base.Add(500 * time.Millisecond)},
		{"tenth", base.Add(100 * time.Millisecond)},
	}
	for _, save := range saves {
		now = save.at
		if _, err := store.Save(ctx, "summit", save.session, map[string]any{"name": save.session}); err != nil {
			t.Fatalf("save %s: %v", save.session, err)
		}
	}

	records, err := store.List(ctx, "summit")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []string
	for _, record := range records {
		got = append(got, record.Session)
	}
	if diff := cmp.Diff([]string{"whole", "tenth", "half"}, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if !records[1].CreatedAt.Equal(saves[2].at) {
		t.Fatalf("created_at = %v, want %v", records[1].CreatedAt, saves[2].at)
	}
}

func TestStore_RejectsDuplicateRegistration(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.Save(ctx, "summit", "session-1", map[string]any{"name": "Ada"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := store.Save(ctx, "summit", "session-1", map[string]any{"name": "Ada again"})
	if !errors.Is(err, submissions.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	exists, err := store.Exists(ctx, "summit", "session-1")
	if err != nil || !exists {
		t.Fatalf("exists = %v, %v", exists, err)
	}
	exists, err = store.Exists(ctx, "summit", "session-9")
	if err != nil || exists {
		t.Fatalf("exists = %v, %v", exists, err)
	}
}

func TestStore_RequiresIdentity(t *testing.T) {
	store := setupStore(t)
	if _, err := store.Save(context.Background(), "", "s", nil); err == nil {
		t.Fatalf("expected error for missing form")
	}
}

func TestStore_ListEmpty(t *testing.T) {
	store := setupStore(t)
	records, err := store.List(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]submissions.Record{}, records, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("expected no records (-want +got):\n%s", diff)
	}
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formflow.db")
	ctx := context.Background()

	store, err := submissions.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Save(ctx, "summit", "session-1", map[string]any{"name": "Ada"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := submissions.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	count, err := reopened.Count(ctx, "summit")
	if err != nil || count != 1 {
		t.Fatalf("count after reopen = %d, %v", count, err)
	}
}
