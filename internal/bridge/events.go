package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const maxEventLineBytes = 1024 * 1024

// wireEvent is the JSON-lines form of an Event:
//
//	{"type":"message","origin":"https://example.com","data":{"context":"iframe.resize",...}}
//	{"type":"resize","widths":{"diagram":640}}
//	{"type":"teardown"}
type wireEvent struct {
	Type   string             `json:"type"`
	Origin string             `json:"origin,omitempty"`
	Data   json.RawMessage    `json:"data,omitempty"`
	Widths map[string]float64 `json:"widths,omitempty"`
}

func ParseEvent(line []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(line, &w); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(w.Type)) {
	case "message":
		return MessageEvent{Origin: w.Origin, Data: []byte(w.Data)}, nil
	case "resize":
		return ViewportResizeEvent{Widths: w.Widths}, nil
	case "teardown", "unload":
		return TeardownEvent{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", w.Type)
	}
}

// ReadEvents decodes JSON-lines events from r onto the returned channel,
// which is closed at EOF, on a read error, or when ctx is done. Lines that
// do not decode are logged and skipped.
func ReadEvents(ctx context.Context, r io.Reader) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxEventLineBytes)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			ev, err := ParseEvent(line)
			if err != nil {
				slog.Warn("skipping event line", "error", err)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			slog.Error("read events failed", "error", err)
		}
	}()
	return out
}
