// Package store persists the activity log: one row per processed
// message recording what the bot decided and how it went. Conversation
// memory itself deliberately stays in-process; this log exists for
// stats and debugging, not for state.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS activity (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	channel_id  TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	action      TEXT NOT NULL,
	confidence  REAL NOT NULL,
	success     INTEGER NOT NULL,
	error       TEXT,
	batched     INTEGER NOT NULL DEFAULT 1,
	duration_ms INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_channel ON activity(channel_id, created_at);
`

// Entry is one activity record.
type Entry struct {
	RunID      string
	ChannelID  string
	UserID     string
	Action     string
	Confidence float64
	Success    bool
	Error      string
	Batched    int // messages merged into this turn
	Duration   time.Duration
}

// ChannelStats aggregates one channel's activity.
type ChannelStats struct {
	Total     int
	Responded int
	Ignored   int
	Failed    int
}

// Activity is the sqlite-backed activity log.
type Activity struct {
	db *sql.DB
}

// OpenActivity opens (and migrates) the activity database at path.
func OpenActivity(path string) (*Activity, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open activity db: %w", err)
	}
	// sqlite allows one writer; serialize at the pool level.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate activity db: %w", err)
	}
	return &Activity{db: db}, nil
}

// Record inserts one entry.
func (a *Activity) Record(ctx context.Context, e Entry) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO activity (run_id, channel_id, user_id, action, confidence, success, error, batched, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.ChannelID, e.UserID, e.Action, e.Confidence,
		boolToInt(e.Success), nullable(e.Error), e.Batched,
		e.Duration.Milliseconds(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// Stats aggregates activity for a channel.
func (a *Activity) Stats(ctx context.Context, channelID string) (ChannelStats, error) {
	var st ChannelStats
	rows, err := a.db.QueryContext(ctx, `
		SELECT action, success, COUNT(*) FROM activity
		WHERE channel_id = ? GROUP BY action, success`, channelID)
	if err != nil {
		return st, fmt.Errorf("query activity stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var success, count int
		if err := rows.Scan(&action, &success, &count); err != nil {
			return st, fmt.Errorf("scan activity stats: %w", err)
		}
		st.Total += count
		switch {
		case success == 0:
			st.Failed += count
		case action == "ignore":
			st.Ignored += count
		default:
			st.Responded += count
		}
	}
	return st, rows.Err()
}

// Close releases the database handle.
func (a *Activity) Close() error {
	return a.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
