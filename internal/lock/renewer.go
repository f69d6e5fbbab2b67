package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/izzyreal/wsbridge/internal/protocol"
)

const (
	DefaultInterval = time.Minute
	releaseTimeout  = 5 * time.Second
)

var ErrLockRejected = errors.New("workspace lock rejected")

// Client is the part of the workspace API the renewer needs.
type Client interface {
	RenewLock(ctx context.Context, workspaceID int64, agent string) (protocol.LockResponse, error)
	ReleaseLock(ctx context.Context, workspaceID int64, agent string) error
}

// Notifier is told when the server refuses to renew the lock, so the user
// can be informed and editing disabled.
type Notifier interface {
	LockLost(workspaceID int64, message string)
}

type NotifierFunc func(workspaceID int64, message string)

func (f NotifierFunc) LockLost(workspaceID int64, message string) { f(workspaceID, message) }

type State int

const (
	StateActive State = iota
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Option func(*Renewer)

func WithInterval(d time.Duration) Option {
	return func(r *Renewer) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(r *Renewer) { r.notifier = n }
}

// WithAfter replaces time.After, letting tests drive the schedule.
func WithAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(r *Renewer) {
		if after != nil {
			r.after = after
		}
	}
}

// Renewer keeps a cooperative edit lock alive. Attempts are strictly
// sequential: the next wait starts only once the previous attempt has
// completed.
type Renewer struct {
	client      Client
	workspaceID int64
	agent       string
	interval    time.Duration
	notifier    Notifier
	after       func(time.Duration) <-chan time.Time

	mu          sync.Mutex
	state       State
	attempts    int
	releaseOnce sync.Once
}

func NewRenewer(client Client, workspaceID int64, agent string, opts ...Option) *Renewer {
	r := &Renewer{
		client:      client,
		workspaceID: workspaceID,
		agent:       agent,
		interval:    DefaultInterval,
		after:       time.After,
		state:       StateActive,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renewer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Renewer) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// Run renews the lock every interval until ctx is cancelled or the server
// rejects a renewal. Transport failures are logged and retried on the same
// schedule indefinitely. A rejection returns an error wrapping
// ErrLockRejected; cancellation returns nil.
func (r *Renewer) Run(ctx context.Context) error {
	if r.State() == StateStopped {
		return fmt.Errorf("%w: renewer already stopped", ErrLockRejected)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.after(r.interval):
		}

		r.mu.Lock()
		r.attempts++
		attempt := r.attempts
		r.mu.Unlock()

		resp, err := r.client.RenewLock(ctx, r.workspaceID, r.agent)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("workspace lock renewal failed; retrying", "workspace_id", r.workspaceID, "agent", r.agent, "attempt", attempt, "next_wait", r.interval, "error", err)
			continue
		}
		if resp.Success {
			slog.Debug("workspace lock renewed", "workspace_id", r.workspaceID, "agent", r.agent, "attempt", attempt)
			continue
		}

		r.mu.Lock()
		r.state = StateStopped
		r.mu.Unlock()
		slog.Error("workspace lock rejected", "workspace_id", r.workspaceID, "agent", r.agent, "message", resp.Message)
		if r.notifier != nil {
			r.notifier.LockLost(r.workspaceID, resp.Message)
		}
		return fmt.Errorf("%w: %s", ErrLockRejected, resp.Message)
	}
}

// Release sends the unlock beacon once, whatever state the renewer is in.
// The outcome is only logged; callers are tearing down.
func (r *Renewer) Release() {
	r.releaseOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := r.client.ReleaseLock(ctx, r.workspaceID, r.agent); err != nil {
			slog.Warn("workspace unlock beacon failed", "workspace_id", r.workspaceID, "agent", r.agent, "error", err)
			return
		}
		slog.Info("workspace unlock beacon sent", "workspace_id", r.workspaceID, "agent", r.agent)
	})
}
