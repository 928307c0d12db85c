// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/reelfeed/internal/persistence/sqlite"
)

// Position is where a viewer left their feed.
type Position struct {
	ItemID    string    `json:"itemId"`
	Index     int       `json:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PositionStore remembers the last feed position per viewer.
type PositionStore interface {
	Load(ctx context.Context, viewerID string) (Position, bool, error)
	Save(ctx context.Context, viewerID string, p Position) error
}

// MemoryPositions is a process-local PositionStore.
type MemoryPositions struct {
	mu  sync.Mutex
	pos map[string]Position
}

func NewMemoryPositions() *MemoryPositions {
	return &MemoryPositions{pos: make(map[string]Position)}
}

func (m *MemoryPositions) Load(_ context.Context, viewerID string) (Position, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pos[viewerID]
	return p, ok, nil
}

func (m *MemoryPositions) Save(_ context.Context, viewerID string, p Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos[viewerID] = p
	return nil
}

var positionMigrations = []string{
	`CREATE TABLE feed_positions (
		viewer_id  TEXT PRIMARY KEY,
		item_id    TEXT NOT NULL,
		item_index INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
}

// SQLitePositions persists positions in the embedded state database.
type SQLitePositions struct {
	db *sql.DB
}

// NewSQLitePositions migrates db and returns a store backed by it.
func NewSQLitePositions(ctx context.Context, db *sql.DB) (*SQLitePositions, error) {
	if err := sqlite.Migrate(ctx, db, positionMigrations); err != nil {
		return nil, fmt.Errorf("session: migrate positions: %w", err)
	}
	return &SQLitePositions{db: db}, nil
}

func (s *SQLitePositions) Load(ctx context.Context, viewerID string) (Position, bool, error) {
	var (
		p  Position
		ms int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT item_id, item_index, updated_at FROM feed_positions WHERE viewer_id = ?`, viewerID,
	).Scan(&p.ItemID, &p.Index, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return Position{}, false, nil
	}
	if err != nil {
		return Position{}, false, fmt.Errorf("session: load position: %w", err)
	}
	p.UpdatedAt = time.UnixMilli(ms).UTC()
	return p, true, nil
}

func (s *SQLitePositions) Save(ctx context.Context, viewerID string, p Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_positions (viewer_id, item_id, item_index, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(viewer_id) DO UPDATE SET
			item_id = excluded.item_id,
			item_index = excluded.item_index,
			updated_at = excluded.updated_at`,
		viewerID, p.ItemID, p.Index, p.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("session: save position: %w", err)
	}
	return nil
}
