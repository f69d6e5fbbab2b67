package bridge

import (
	"context"
	"strings"
	"testing"
)

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"message","origin":"https://a","data":{"context":"iframe.resize"}}`))
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	msg, ok := ev.(MessageEvent)
	if !ok || msg.Origin != "https://a" || string(msg.Data) != `{"context":"iframe.resize"}` {
		t.Fatalf("unexpected message event %#v", ev)
	}

	ev, err = ParseEvent([]byte(`{"type":"resize","widths":{"d":320}}`))
	if err != nil {
		t.Fatalf("parse resize: %v", err)
	}
	if r, ok := ev.(ViewportResizeEvent); !ok || r.Widths["d"] != 320 {
		t.Fatalf("unexpected resize event %#v", ev)
	}

	for _, line := range []string{`{"type":"teardown"}`, `{"type":"unload"}`} {
		ev, err = ParseEvent([]byte(line))
		if err != nil {
			t.Fatalf("parse %s: %v", line, err)
		}
		if _, ok := ev.(TeardownEvent); !ok {
			t.Fatalf("expected teardown for %s, got %#v", line, ev)
		}
	}

	if _, err := ParseEvent([]byte(`{"type":"scroll"}`)); err == nil {
		t.Fatal("expected unknown type to fail")
	}
	if _, err := ParseEvent([]byte(`[`)); err == nil {
		t.Fatal("expected invalid JSON to fail")
	}
}

func TestReadEventsSkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"resize"}`,
		``,
		`garbage`,
		`{"type":"teardown"}`,
	}, "\n")

	var got []Event
	for ev := range ReadEvents(context.Background(), strings.NewReader(input)) {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d: %#v", len(got), got)
	}
	if _, ok := got[0].(ViewportResizeEvent); !ok {
		t.Fatalf("expected resize first, got %#v", got[0])
	}
	if _, ok := got[1].(TeardownEvent); !ok {
		t.Fatalf("expected teardown second, got %#v", got[1])
	}
}
