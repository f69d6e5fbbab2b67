package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const instanceIDKey = "server.instance_id"

func (s *Store) SetAppState(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO app_state (key, value, updated_utc)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_utc=excluded.updated_utc
	`, key, value, formatTime(s.now())); err != nil {
		return fmt.Errorf("set app state: %w", err)
	}
	return nil
}

func (s *Store) GetAppState(ctx context.Context, key string) (string, bool, error) {
	var value string
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get app state: %w", err)
	}
	return value, true, nil
}

// InstanceID returns the server's persistent identifier, creating it on
// first use.
func (s *Store) InstanceID(ctx context.Context) (string, error) {
	if v, ok, err := s.GetAppState(ctx, instanceIDKey); err != nil || ok {
		return v, err
	}
	id := uuid.NewString()
	if err := s.SetAppState(ctx, instanceIDKey, id); err != nil {
		return "", err
	}
	return id, nil
}
