package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kilnforge/pipelinectl/internal/domain"
)

// ArchitectureKind names one of the three architecture blob kinds a
// feature's ArchitectureCompliance list may reference by name.
type ArchitectureKind string

const (
	ArchPrinciples ArchitectureKind = "principles"
	ArchPatterns   ArchitectureKind = "patterns"
	ArchStandards  ArchitectureKind = "standards"
)

// Valid reports whether k is one of the three recognized blob kinds.
func (k ArchitectureKind) Valid() bool {
	switch k {
	case ArchPrinciples, ArchPatterns, ArchStandards:
		return true
	}
	return false
}

// Architecture is one project-wide architecture blob, opaque JSON the
// orchestrator never interprets, keyed by kind.
type Architecture struct {
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetArchitecture returns the stored blob of the given kind.
func (s *Store) GetArchitecture(ctx context.Context, kind string) (*Architecture, error) {
	var a Architecture
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT kind, content, updated_at FROM architecture_blobs WHERE kind = ?`, kind,
	).Scan(&a.Kind, &a.Content, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get architecture %s: %w", kind, err)
	}
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

// SetArchitecture replaces the stored blob for the given kind.
func (s *Store) SetArchitecture(ctx context.Context, kind, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO architecture_blobs (kind, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		kind, content, formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("set architecture %s: %w", kind, err)
	}
	return nil
}

// AllArchitecture returns every stored architecture blob, however many
// of the three kinds have been set.
func (s *Store) AllArchitecture(ctx context.Context) ([]Architecture, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, content, updated_at FROM architecture_blobs ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("list architecture: %w", err)
	}
	defer rows.Close()

	var blobs []Architecture
	for rows.Next() {
		var a Architecture
		var updatedAt string
		if err := rows.Scan(&a.Kind, &a.Content, &updatedAt); err != nil {
			return nil, err
		}
		a.UpdatedAt = parseTime(updatedAt)
		blobs = append(blobs, a)
	}
	return blobs, rows.Err()
}
