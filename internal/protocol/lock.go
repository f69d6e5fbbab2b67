package protocol

import "time"

type LockResponse struct {
	Success bool   `json:"success"`
	Locked  bool   `json:"locked,omitempty"`
	Message string `json:"message,omitempty"`
}

type LockStatus struct {
	WorkspaceID int64     `json:"workspace_id"`
	Locked      bool      `json:"locked"`
	User        string    `json:"user,omitempty"`
	Agent       string    `json:"agent,omitempty"`
	LockedUTC   time.Time `json:"locked_utc,omitempty"`
}
