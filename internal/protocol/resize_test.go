package protocol

import (
	"encoding/json"
	"testing"
)

func TestStripFragment(t *testing.T) {
	cases := map[string]string{
		"https://example.com/embed/1":             "https://example.com/embed/1",
		"https://example.com/embed/1#diagram=Ctx": "https://example.com/embed/1",
		"https://example.com/embed/1?x=1#a#b":     "https://example.com/embed/1?x=1",
		"#only":                                   "",
		"":                                        "",
	}
	for in, want := range cases {
		if got := StripFragment(in); got != want {
			t.Fatalf("StripFragment(%q)=%q want %q", in, got, want)
		}
	}
}

func TestFrameResizeMessageDecodeKeepsMissingFieldsNil(t *testing.T) {
	var msg FrameResizeMessage
	if err := json.Unmarshal([]byte(`{"context":"iframe.resize","src":"https://x/embed","toolbarHeight":0}`), &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !msg.IsResize() {
		t.Fatalf("expected resize context")
	}
	if msg.AspectRatio != nil {
		t.Fatalf("expected missing aspect ratio to stay nil, got %v", *msg.AspectRatio)
	}
	if msg.ToolbarHeight == nil || *msg.ToolbarHeight != 0 {
		t.Fatalf("expected explicit zero toolbar height, got %v", msg.ToolbarHeight)
	}
}
