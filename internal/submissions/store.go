// Package submissions stores accepted registrations in SQLite. One
// registration is kept per form and session.
package submissions

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formflow/pkg/schema"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout stores timestamps at a fixed width so text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DuplicateMessage is shown to attendees who register twice.
const DuplicateMessage = "Already registered for this event"

// ErrDuplicate is returned by Save when the session already registered for
// the form.
var ErrDuplicate = errors.New("submissions: " + strings.ToLower(DuplicateMessage))

// Record is one stored registration. The ticket type is split out of the
// submitted values.
type Record struct {
	ID           uuid.UUID      `json:"id"`
	Form         string         `json:"form"`
	Session      string         `json:"session"`
	TicketTypeID string         `json:"ticketTypeId,omitempty"`
	Values       map[string]any `json:"values"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store persists registrations.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger zerolog.Logger
}

// Open opens (or creates) the database at path and applies migrations.
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string, options ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("submissions: database path is required")
	}

	memory := path == ":memory:"
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	if memory {
		dsn = path
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("submissions: open database: %w", err)
	}
	if memory {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, now: time.Now, logger: zerolog.Nop()}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("submissions: create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("submissions: query migrations: %w", err)
	}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("submissions: scan migration: %w", err)
		}
		applied[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("submissions: read migrations: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("submissions: read migrations dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")
		if applied[version] {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("submissions: read migration %s: %w", name, err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("submissions: begin transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("submissions: execute migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", version, s.now().UTC().Format(timeLayout)); err != nil {
			tx.Rollback()
			return fmt.Errorf("submissions: record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("submissions: commit migration %s: %w", name, err)
		}
		s.logger.Debug().Str("version", version).Msg("applied migration")
	}
	return nil
}

// Save stores the values submitted by session for form. A second save for
// the same pair returns ErrDuplicate.
func (s *Store) Save(ctx context.Context, form, session string, values map[string]any) (Record, error) {
	if form == "" || session == "" {
		return Record{}, errors.New("submissions: form and session are required")
	}

	payload := make(map[string]any, len(values))
	for key, value := range values {
		payload[key] = value
	}
	ticket := ""
	if raw, ok := payload[schema.TicketTypeField]; ok {
		if raw != nil {
			ticket = fmt.Sprint(raw)
		}
		delete(payload, schema.TicketTypeField)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return Record{}, fmt.Errorf("submissions: encode values: %w", err)
	}

	record := Record{
		ID:           uuid.New(),
		Form:         form,
		Session:      session,
		TicketTypeID: ticket,
		CreatedAt:    s.now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, form, session, ticket_type_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ID.String(), form, session, ticket, string(encoded), record.CreatedAt.Format(timeLayout))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			s.logger.Info().Str("form", form).Str("session", session).Msg("duplicate registration rejected")
			return Record{}, ErrDuplicate
		}
		return Record{}, fmt.Errorf("submissions: insert: %w", err)
	}

	// Round-trip so the record holds the same value types List returns.
	if err := json.Unmarshal(encoded, &record.Values); err != nil {
		return Record{}, fmt.Errorf("submissions: decode values: %w", err)
	}
	s.logger.Info().Str("form", form).Str("id", record.ID.String()).Msg("registration stored")
	return record, nil
}

// Exists reports whether session already registered for form.
func (s *Store) Exists(ctx context.Context, form, session string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM submissions WHERE form = ? AND session = ?
	`, form, session).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("submissions: exists: %w", err)
	}
	return count > 0, nil
}

// List returns the registrations of form in creation order.
func (s *Store) List(ctx context.Context, form string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, form, session, ticket_type_id, payload, created_at
		FROM submissions
		WHERE form = ?
		ORDER BY created_at, id
	`, form)
	if err != nil {
		return nil, fmt.Errorf("submissions: list: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			record    Record
			id        string
			payload   string
			createdAt string
		)
		if err := rows.Scan(&id, &record.Form, &record.Session, &record.TicketTypeID, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("submissions: scan: %w", err)
		}
		if record.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("submissions: parse id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(payload), &record.Values); err != nil {
			return nil, fmt.Errorf("submissions: decode payload %s: %w", id, err)
		}
		if record.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("submissions: parse created_at %s: %w", id, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Count returns the number of registrations for form.
func (s *Store) Count(ctx context.Context, form string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE form = ?`, form).Scan(&count); err != nil {
		return 0, fmt.Errorf("submissions: count: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
