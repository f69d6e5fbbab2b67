package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type StoredWorkspace struct {
	ID         int64
	Branch     string
	JSON       []byte
	Revision   int64
	UpdatedUTC time.Time
}

// PutWorkspace stores the document and returns the new revision.
func (s *Store) PutWorkspace(ctx context.Context, id int64, branch string, doc []byte) (int64, error) {
	var revision int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO workspaces (id, branch, json, revision, updated_utc)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(id, branch) DO UPDATE SET json=excluded.json, revision=workspaces.revision+1, updated_utc=excluded.updated_utc
		RETURNING revision
	`, id, branch, string(doc), formatTime(s.now())).Scan(&revision)
	if err != nil {
		return 0, fmt.Errorf("put workspace: %w", err)
	}
	return revision, nil
}

func (s *Store) GetWorkspace(ctx context.Context, id int64, branch string) (StoredWorkspace, bool, error) {
	var (
		ws      = StoredWorkspace{ID: id, Branch: branch}
		doc     string
		updated string
	)
	err := s.db.QueryRowContext(ctx, `SELECT json, revision, updated_utc FROM workspaces WHERE id = ? AND branch = ?`, id, branch).Scan(&doc, &ws.Revision, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredWorkspace{}, false, nil
		}
		return StoredWorkspace{}, false, fmt.Errorf("get workspace: %w", err)
	}
	ws.JSON = []byte(doc)
	ws.UpdatedUTC = parseTime(updated)
	return ws, true, nil
}

func (s *Store) WorkspaceExists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workspaces WHERE id = ? AND branch = ''`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("check workspace: %w", err)
	}
	return n > 0, nil
}
