package history

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/algiz/internal/models"
)

const defaultLimit = 50

// Record inserts ev.
func (db *DB) Record(ev models.Event) error {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO events (time, level, message, path, outcome, baseline_digest, current_digest)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.Time.UTC(), string(ev.Level), ev.Message, ev.Path, string(ev.Outcome), ev.BaselineDigest, ev.CurrentDigest)
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

// HandleEvent records every event above DEBUG.
func (db *DB) HandleEvent(ev models.Event) {
	if ev.Level == models.LevelDebug {
		return
	}
	if err := db.Record(ev); err != nil {
		slog.Warn("history: record failed", slog.String("error", err.Error()))
	}
}

// Recent returns up to limit events, newest first. A non-empty level filters
// by level.
func (db *DB) Recent(limit int, level models.Level) ([]models.Event, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	query := `SELECT time, level, message, path, outcome, baseline_digest, current_digest FROM events`
	args := []any{}
	if level != "" {
		query += ` WHERE level = ?`
		args = append(args, string(level))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	out := []models.Event{}
	for rows.Next() {
		var (
			ev             models.Event
			level, outcome string
		)
		if err := rows.Scan(&ev.Time, &level, &ev.Message, &ev.Path, &outcome, &ev.BaselineDigest, &ev.CurrentDigest); err != nil {
			return nil, err
		}
		ev.Level = models.Level(level)
		ev.Outcome = models.Outcome(outcome)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Alerts returns up to limit ALERT events, newest first.
func (db *DB) Alerts(limit int) ([]models.Event, error) {
	return db.Recent(limit, models.LevelAlert)
}

// Count returns the number of recorded events.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}
