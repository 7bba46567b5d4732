package storage

// sqlite.go: journal de polls.
//
//   - `polls`: una fila por poll (fuente, intentos, mercados leídos, error).
//   - `alerted_markets`: los mercados que pasaron los filtros en cada poll.
//   - Solo auditoría: el scanner escribe pero nunca lee para decidir qué alertar.
//   - Prune automático al arrancar: polls de más de 30 días.
//   - Timestamps como unix millis (INTEGER) para que los rangos comparen bien.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/polyexpiry/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS polls (
    id          TEXT    PRIMARY KEY,
    source      TEXT    NOT NULL,
    started_at  INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    attempts    INTEGER NOT NULL DEFAULT 0,
    fetched     INTEGER NOT NULL DEFAULT 0,
    matched     INTEGER NOT NULL DEFAULT 0,
    error       TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS alerted_markets (
    poll_id    TEXT    NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    position   INTEGER NOT NULL,
    market_id  TEXT    NOT NULL,
    question   TEXT    NOT NULL,
    slug       TEXT    NOT NULL,
    prices     TEXT    NOT NULL DEFAULT '[]',
    expires_at INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (poll_id, position)
);

CREATE INDEX IF NOT EXISTS idx_polls_started ON polls(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_alerted_market ON alerted_markets(market_id);
`

const retentionPolls = 30 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada,
// aplica el schema y limpia polls antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SavePoll persiste el resumen del poll y los mercados alertados en una transacción.
func (s *SQLiteStorage) SavePoll(ctx context.Context, poll domain.PollRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SavePoll: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO polls (id, source, started_at, duration_ms, attempts, fetched, matched, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		poll.ID, poll.Source, toMillis(poll.StartedAt), poll.Duration.Milliseconds(),
		poll.Attempts, poll.Fetched, len(poll.Matched), poll.Err,
	); err != nil {
		return fmt.Errorf("storage.SavePoll: insert poll: %w", err)
	}

	for i, m := range poll.Matched {
		prices, err := json.Marshal(m.OutcomePrices)
		if err != nil {
			return fmt.Errorf("storage.SavePoll: encode prices of %s: %w", m.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO alerted_markets (poll_id, position, market_id, question, slug, prices, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			poll.ID, i, m.ID, m.Question, m.Slug, string(prices), toMillis(m.ExpiresAt),
		); err != nil {
			return fmt.Errorf("storage.SavePoll: insert market %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SavePoll: commit: %w", err)
	}
	return nil
}

// GetHistory devuelve los polls iniciados en [from, to], los más recientes primero,
// con sus mercados en el orden en que se alertaron.
func (s *SQLiteStorage) GetHistory(ctx context.Context, from, to time.Time) ([]domain.PollRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, started_at, duration_ms, attempts, fetched, error
		FROM polls
		WHERE started_at BETWEEN ? AND ?
		ORDER BY started_at DESC
	`, toMillis(from), toMillis(to))
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query polls: %w", err)
	}
	defer rows.Close()

	var polls []domain.PollRecord
	index := make(map[string]int)
	for rows.Next() {
		var p domain.PollRecord
		var startedAt, durationMs int64
		if err := rows.Scan(&p.ID, &p.Source, &startedAt, &durationMs, &p.Attempts, &p.Fetched, &p.Err); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan poll: %w", err)
		}
		p.StartedAt = fromMillis(startedAt)
		p.Duration = time.Duration(durationMs) * time.Millisecond
		index[p.ID] = len(polls)
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.GetHistory: iterate polls: %w", err)
	}
	if len(polls) == 0 {
		return nil, nil
	}

	mrows, err := s.db.QueryContext(ctx, `
		SELECT m.poll_id, m.market_id, m.question, m.slug, m.prices, m.expires_at
		FROM alerted_markets m
		JOIN polls p ON p.id = m.poll_id
		WHERE p.started_at BETWEEN ? AND ?
		ORDER BY m.poll_id, m.position
	`, toMillis(from), toMillis(to))
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query markets: %w", err)
	}
	defer mrows.Close()

	for mrows.Next() {
		var pollID, prices string
		var expiresAt int64
		var m domain.Market
		if err := mrows.Scan(&pollID, &m.ID, &m.Question, &m.Slug, &prices, &expiresAt); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan market: %w", err)
		}
		if err := json.Unmarshal([]byte(prices), &m.OutcomePrices); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: decode prices of %s: %w", m.ID, err)
		}
		m.ExpiresAt = fromMillis(expiresAt)

		if i, ok := index[pollID]; ok {
			polls[i].Matched = append(polls[i].Matched, m)
		}
	}
	return polls, mrows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina polls antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := toMillis(time.Now().Add(-retentionPolls))
	s.db.ExecContext(ctx, `DELETE FROM alerted_markets WHERE poll_id IN (SELECT id FROM polls WHERE started_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM polls WHERE started_at < ?`, cutoff)
}

// toMillis guarda la fecha zero como 0.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
