package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilnforge/pipelinectl/internal/autoplay"
	"github.com/kilnforge/pipelinectl/internal/domain"
)

var _ autoplay.SessionRecorder = (*Store)(nil)

// Session is one run of the Autoplay Controller: a mode, a start/end time,
// and the events (actions taken per feature) that occurred during it.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time
	Mode      string
	AutoMerge bool
	Outcome   string
}

// SessionEvent is one action taken against a feature during a session,
// used to render the Read-Model Server's activity feed.
type SessionEvent struct {
	ID        int64
	SessionID string
	FeatureID string
	Action    string
	Detail    string
	CreatedAt time.Time
}

// StartSession begins a new pipeline session and returns its id.
func (s *Store) StartSession(ctx context.Context, mode string, autoMerge bool) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_sessions (id, started_at, mode, auto_merge) VALUES (?, ?, ?, ?)`,
		id, formatTime(time.Now().UTC()), mode, boolToInt(autoMerge),
	)
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	return id, nil
}

// EndSession closes a session with its final outcome (e.g. "completed",
// "escalated", "interrupted").
func (s *Store) EndSession(ctx context.Context, id, outcome string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_sessions SET ended_at = ?, outcome = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), outcome, id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordEvent appends one action to a session's event log.
func (s *Store) RecordEvent(ctx context.Context, sessionID, featureID, action, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_session_events (session_id, feature_id, action, detail) VALUES (?, ?, ?, ?)`,
		sessionID, featureID, action, detail,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// RecentEvents returns the most recent session events across all sessions,
// newest first, for the Read-Model Server's activity feed.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]SessionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, feature_id, action, detail, created_at
		FROM pipeline_session_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var events []SessionEvent
	for rows.Next() {
		var e SessionEvent
		var createdAt string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.FeatureID, &e.Action, &e.Detail, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var startedAt string
	var endedAt sql.NullString
	var autoMerge int
	if err := row.Scan(&sess.ID, &startedAt, &endedAt, &sess.Mode, &autoMerge, &sess.Outcome); err != nil {
		return nil, err
	}
	sess.StartedAt = parseTime(startedAt)
	sess.AutoMerge = autoMerge != 0
	if endedAt.Valid {
		t := parseTime(endedAt.String)
		sess.EndedAt = &t
	}
	return &sess, nil
}

// GetSession returns a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, ended_at, mode, auto_merge, outcome FROM pipeline_sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return sess, nil
}
