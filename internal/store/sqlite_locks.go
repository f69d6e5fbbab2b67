package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Lock struct {
	WorkspaceID int64
	User        string
	Agent       string
	LockedUTC   time.Time
}

func (l Lock) HeldBy(user, agent string) bool {
	return l.Agent == agent && (user == "" || l.User == "" || l.User == user)
}

// TryLock takes or refreshes the lock. It succeeds when the workspace is
// unlocked, when the existing lock is older than ttl, or when user/agent
// already hold it. On failure the current holder is returned.
func (s *Store) TryLock(ctx context.Context, workspaceID int64, user, agent string, ttl time.Duration) (Lock, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Lock{}, false, fmt.Errorf("begin lock tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	current, found, err := getLock(ctx, tx, workspaceID)
	if err != nil {
		return Lock{}, false, err
	}
	if found && !current.HeldBy(user, agent) && (ttl <= 0 || now.Sub(current.LockedUTC) < ttl) {
		return current, false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO workspace_locks (workspace_id, user_name, agent, locked_utc)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(workspace_id) DO UPDATE SET user_name=excluded.user_name, agent=excluded.agent, locked_utc=excluded.locked_utc
	`, workspaceID, user, agent, formatTime(now)); err != nil {
		return Lock{}, false, fmt.Errorf("write lock: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Lock{}, false, fmt.Errorf("commit lock tx: %w", err)
	}
	return Lock{WorkspaceID: workspaceID, User: user, Agent: agent, LockedUTC: now}, true, nil
}

// Unlock removes the lock if user/agent hold it. The holder check and the
// delete run in one transaction.
func (s *Store) Unlock(ctx context.Context, workspaceID int64, user, agent string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin unlock tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, found, err := getLock(ctx, tx, workspaceID)
	if err != nil || !found {
		return false, err
	}
	if !current.HeldBy(user, agent) {
		return false, nil
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM workspace_locks WHERE workspace_id = ? AND agent = ?`, workspaceID, agent)
	if err != nil {
		return false, fmt.Errorf("delete lock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete lock: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit unlock tx: %w", err)
	}
	return n > 0, nil
}

// GetLock returns the stored lock, expired or not.
func (s *Store) GetLock(ctx context.Context, workspaceID int64) (Lock, bool, error) {
	return getLock(ctx, s.db, workspaceID)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getLock(ctx context.Context, q queryRower, workspaceID int64) (Lock, bool, error) {
	l := Lock{WorkspaceID: workspaceID}
	var locked string
	err := q.QueryRowContext(ctx, `SELECT user_name, agent, locked_utc FROM workspace_locks WHERE workspace_id = ?`, workspaceID).Scan(&l.User, &l.Agent, &locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lock{}, false, nil
		}
		return Lock{}, false, fmt.Errorf("get lock: %w", err)
	}
	l.LockedUTC = parseTime(locked)
	return l, true, nil
}
