package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/lib/pq" // postgres driver

	"github.com/okian/parakeet/internal/domain/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	seq          BIGSERIAL PRIMARY KEY,
	id           UUID NOT NULL UNIQUE,
	ts           TIMESTAMPTZ NOT NULL,
	duration_s   DOUBLE PRECISION NOT NULL,
	energy       DOUBLE PRECISION NOT NULL,
	frequency_hz DOUBLE PRECISION NOT NULL,
	midi         INTEGER NOT NULL,
	note         TEXT NOT NULL
)`

const selectColumns = `id, ts, duration_s, energy, frequency_hz, midi, note`

// PostgresStore keeps events in an events table ordered by insertion.
type PostgresStore struct {
	db *sql.DB

	mu    sync.Mutex
	last  model.Event
	has   bool
	count int
}

// OpenPostgres connects to dsn, creates the schema and loads the newest event.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s, err := NewPostgresStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing connection pool. Close closes db.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM events`).Scan(&s.count); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	row := db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM events ORDER BY seq DESC LIMIT 1`)
	e, err := scanEvent(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("load last event: %w", err)
	default:
		s.last, s.has = e, true
	}
	return s, nil
}

func (s *PostgresStore) Append(ctx context.Context, e model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}
	if s.has && before(e.Timestamp, s.last.Timestamp) {
		return fmt.Errorf("%w: %s < %s", ErrOutOfOrder, e.Timestamp, s.last.Timestamp)
	}

	query := `
		INSERT INTO events (id, ts, duration_s, energy, frequency_hz, midi, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Timestamp.UTC(),
		e.PulseDuration,
		e.Energy,
		e.Note.Frequency,
		e.Note.MIDI,
		e.Note.Name)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	s.last, s.has = e, true
	s.count++
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, ErrClosed
	}

	query := `
		SELECT ` + selectColumns + ` FROM (
			SELECT seq, ` + selectColumns + ` FROM events ORDER BY seq DESC LIMIT $1
		) recent ORDER BY seq ASC`
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Last(_ context.Context) (model.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.has, nil
}

func (s *PostgresStore) Count(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (model.Event, error) {
	var e model.Event
	err := sc.Scan(
		&e.ID,
		&e.Timestamp,
		&e.PulseDuration,
		&e.Energy,
		&e.Note.Frequency,
		&e.Note.MIDI,
		&e.Note.Name)
	if err != nil {
		return model.Event{}, err
	}
	e.Timestamp = e.Timestamp.UTC()
	e.Note.Rest = e.Note.Name == restName
	return e, nil
}
