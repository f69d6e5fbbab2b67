package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/izzyreal/wsbridge/internal/protocol"
)

type scriptedResult struct {
	resp protocol.LockResponse
	err  error
}

type fakeClient struct {
	mu       sync.Mutex
	script   []scriptedResult
	events   *[]string
	inFlight int
	overlaps int
	renews   int
	releases int
}

func (c *fakeClient) RenewLock(ctx context.Context, workspaceID int64, agent string) (protocol.LockResponse, error) {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > 1 {
		c.overlaps++
	}
	c.renews++
	*c.events = append(*c.events, "renew")
	var next scriptedResult
	if len(c.script) > 0 {
		next, c.script = c.script[0], c.script[1:]
	} else {
		next = scriptedResult{resp: protocol.LockResponse{Success: true}}
	}
	c.inFlight--
	c.mu.Unlock()
	return next.resp, next.err
}

func (c *fakeClient) ReleaseLock(ctx context.Context, workspaceID int64, agent string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releases++
	return nil
}

// immediateAfter fires every wait at once and records the requested delay.
func immediateAfter(events *[]string, waits *[]time.Duration) func(time.Duration) <-chan time.Time {
	return func(d time.Duration) <-chan time.Time {
		*events = append(*events, "wait")
		*waits = append(*waits, d)
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
}

func TestRenewerScriptedSequence(t *testing.T) {
	var events []string
	var waits []time.Duration
	transportErr := errors.New("dial tcp: connection refused")
	client := &fakeClient{
		events: &events,
		script: []scriptedResult{
			{err: transportErr},
			{err: transportErr},
			{resp: protocol.LockResponse{Success: true}},
			{resp: protocol.LockResponse{Success: true}},
			{resp: protocol.LockResponse{Success: false, Message: "locked by bob"}},
		},
	}
	var notified []string
	r := NewRenewer(client, 9, "agent-1",
		WithAfter(immediateAfter(&events, &waits)),
		WithNotifier(NotifierFunc(func(id int64, msg string) {
			if id != 9 {
				t.Fatalf("unexpected workspace id %d", id)
			}
			notified = append(notified, msg)
		})),
	)

	err := r.Run(context.Background())
	if !errors.Is(err, ErrLockRejected) {
		t.Fatalf("expected rejection error, got %v", err)
	}
	if client.renews != 5 {
		t.Fatalf("expected exactly 5 renewal requests, got %d", client.renews)
	}
	if client.overlaps != 0 {
		t.Fatalf("renewal requests overlapped %d times", client.overlaps)
	}
	if len(waits) != 5 {
		t.Fatalf("expected 5 scheduled waits, got %d", len(waits))
	}
	for i, w := range waits {
		if w != DefaultInterval {
			t.Fatalf("wait %d: expected %s, got %s", i, DefaultInterval, w)
		}
	}
	for i, ev := range events {
		want := "wait"
		if i%2 == 1 {
			want = "renew"
		}
		if ev != want {
			t.Fatalf("event %d: expected %s got %s (all: %v)", i, want, ev, events)
		}
	}
	if r.State() != StateStopped {
		t.Fatalf("expected stopped state, got %s", r.State())
	}
	if len(notified) != 1 || notified[0] != "locked by bob" {
		t.Fatalf("unexpected notifications %v", notified)
	}
	if r.Attempts() != 5 {
		t.Fatalf("expected 5 attempts, got %d", r.Attempts())
	}

	if err := r.Run(context.Background()); !errors.Is(err, ErrLockRejected) {
		t.Fatalf("expected stopped renewer to refuse to run, got %v", err)
	}
	if client.renews != 5 {
		t.Fatalf("stopped renewer must not renew again")
	}
}

func TestRenewerFirstAttemptWaitsOneInterval(t *testing.T) {
	var events []string
	client := &fakeClient{events: &events}
	fire := make(chan time.Time)
	var requested []time.Duration
	r := NewRenewer(client, 1, "a", WithInterval(30*time.Second), WithAfter(func(d time.Duration) <-chan time.Time {
		requested = append(requested, d)
		return fire
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	fire <- time.Now()
	fire <- time.Now()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("expected nil on cancellation, got %v", err)
	}
	if client.renews < 1 || client.renews > 2 {
		t.Fatalf("unexpected renewal count %d", client.renews)
	}
	for _, d := range requested {
		if d != 30*time.Second {
			t.Fatalf("unexpected wait %s", d)
		}
	}
	if r.State() != StateActive {
		t.Fatalf("cancellation must not stop the renewer state, got %s", r.State())
	}
}

func TestRenewerCancelledBeforeFirstAttempt(t *testing.T) {
	var events []string
	client := &fakeClient{events: &events}
	r := NewRenewer(client, 1, "a", WithAfter(func(time.Duration) <-chan time.Time {
		return make(chan time.Time)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if client.renews != 0 {
		t.Fatalf("expected no renewals, got %d", client.renews)
	}
}

func TestRenewerReleaseExactlyOnce(t *testing.T) {
	for _, stopped := range []bool{false, true} {
		var events []string
		client := &fakeClient{events: &events}
		r := NewRenewer(client, 4, "a")
		if stopped {
			r.state = StateStopped
		}
		r.Release()
		r.Release()
		if client.releases != 1 {
			t.Fatalf("stopped=%v: expected one release, got %d", stopped, client.releases)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateActive.String() != "active" || StateStopped.String() != "stopped" || State(9).String() != "unknown" {
		t.Fatalf("unexpected state strings")
	}
}
