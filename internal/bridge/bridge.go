// Package bridge is the composition root that connects host page events to
// the embed resizer and the workspace lock renewer.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/izzyreal/wsbridge/internal/embed"
	"github.com/izzyreal/wsbridge/internal/lock"
)

// Event is one signal from the host page.
type Event interface {
	isEvent()
}

// MessageEvent is a cross-document message and the origin it came from.
type MessageEvent struct {
	Origin string
	Data   []byte
}

// ViewportResizeEvent reports that the viewport changed size. Widths, when
// set, carries the new container widths by frame ID for documents that
// accept them.
type ViewportResizeEvent struct {
	Widths map[string]float64
}

// TeardownEvent reports that the page is going away.
type TeardownEvent struct{}

func (MessageEvent) isEvent()        {}
func (ViewportResizeEvent) isEvent() {}
func (TeardownEvent) isEvent()       {}

type widthSetter interface {
	SetContainerWidth(id string, width float64) bool
}

type Config struct {
	Document       embed.Document
	AllowedOrigins []string

	// Lock is nil when no workspace lock should be held.
	Lock         lock.Client
	WorkspaceID  int64
	Agent        string
	LockInterval time.Duration
	// After overrides the renewer's timer source.
	After func(time.Duration) <-chan time.Time
	// OnLockLost is called after editing has been disabled.
	OnLockLost func(workspaceID int64, message string)
}

type Bridge struct {
	doc        embed.Document
	resizer    *embed.Resizer
	renewer    *lock.Renewer
	onLockLost func(int64, string)

	editing  atomic.Bool
	runOnce  sync.Once
	lockLost atomic.Value
}

func New(cfg Config) (*Bridge, error) {
	if cfg.Document == nil {
		return nil, errors.New("bridge requires a document")
	}
	resizer, err := embed.NewResizer(cfg.Document, cfg.AllowedOrigins)
	if err != nil {
		return nil, fmt.Errorf("create resizer: %w", err)
	}
	b := &Bridge{doc: cfg.Document, resizer: resizer, onLockLost: cfg.OnLockLost}
	b.editing.Store(true)

	if cfg.Lock != nil {
		if cfg.WorkspaceID <= 0 {
			return nil, fmt.Errorf("invalid workspace id %d", cfg.WorkspaceID)
		}
		opts := []lock.Option{lock.WithNotifier(b), lock.WithInterval(cfg.LockInterval)}
		if cfg.After != nil {
			opts = append(opts, lock.WithAfter(cfg.After))
		}
		b.renewer = lock.NewRenewer(cfg.Lock, cfg.WorkspaceID, cfg.Agent, opts...)
	}
	return b, nil
}

// EditingEnabled turns false once the server refuses to renew the lock.
func (b *Bridge) EditingEnabled() bool {
	return b.editing.Load()
}

// LockMessage returns the server's rejection message, if any.
func (b *Bridge) LockMessage() string {
	v, _ := b.lockLost.Load().(string)
	return v
}

func (b *Bridge) Renewer() *lock.Renewer { return b.renewer }

func (b *Bridge) Resizer() *embed.Resizer { return b.resizer }

// LockLost implements lock.Notifier.
func (b *Bridge) LockLost(workspaceID int64, message string) {
	b.editing.Store(false)
	b.lockLost.Store(message)
	slog.Warn("editing disabled: workspace lock lost", "workspace_id", workspaceID, "message", message)
	if b.onLockLost != nil {
		b.onLockLost(workspaceID, message)
	}
}

// Run dispatches events until teardown: a TeardownEvent, the events channel
// closing, or ctx being cancelled. On teardown the renewer is stopped and
// the lock released once. A bridge runs at most once.
//
// Run returns the renewer's error when the server rejected the lock, so
// callers can report it; resizing keeps working after a rejection.
func (b *Bridge) Run(ctx context.Context, events <-chan Event) error {
	started := false
	b.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("bridge already ran")
	}

	lockCtx, stopLock := context.WithCancel(ctx)
	defer stopLock()
	lockDone := make(chan error, 1)
	if b.renewer != nil {
		go func() { lockDone <- b.renewer.Run(lockCtx) }()
	} else {
		close(lockDone)
	}

	var lockErr error
	lockRunning := b.renewer != nil
	teardown := func(reason string) error {
		stopLock()
		if lockRunning {
			lockErr = <-lockDone
		}
		if b.renewer != nil {
			b.renewer.Release()
		}
		slog.Info("bridge torn down", "reason", reason)
		return lockErr
	}

	for {
		select {
		case <-ctx.Done():
			return teardown("context cancelled")
		case err := <-lockDone:
			if lockRunning {
				lockRunning = false
				lockErr = err
			}
			lockDone = nil
		case ev, ok := <-events:
			if !ok {
				return teardown("events closed")
			}
			if _, isTeardown := ev.(TeardownEvent); isTeardown {
				return teardown("teardown event")
			}
			b.Dispatch(ev)
		}
	}
}

// Dispatch handles a single non-teardown event.
func (b *Bridge) Dispatch(ev Event) {
	switch e := ev.(type) {
	case MessageEvent:
		resized, err := b.resizer.HandleMessage(e.Origin, e.Data)
		if err != nil {
			slog.Warn("frame message ignored", "origin", e.Origin, "error", err)
			return
		}
		if resized {
			slog.Debug("frame resized from message", "origin", e.Origin)
		}
	case ViewportResizeEvent:
		if ws, ok := b.doc.(widthSetter); ok {
			for id, w := range e.Widths {
				if !ws.SetContainerWidth(id, w) {
					slog.Debug("viewport width for unknown frame", "frame_id", id)
				}
			}
		}
		n := b.resizer.HandleViewportResize()
		slog.Debug("viewport resized", "frames", n)
	case TeardownEvent:
	default:
		slog.Warn("unknown bridge event", "type", fmt.Sprintf("%T", ev))
	}
}
