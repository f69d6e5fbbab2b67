package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/izzyreal/wsbridge/internal/discovery"
)

type lockServer struct {
	mu      sync.Mutex
	renews  int
	unlocks []string
}

func (l *lockServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/server-info", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "wsbridge", "api_version": "v1.1.0", "version": "test"})
	})
	mux.HandleFunc("/api/workspace/5/lock", func(w http.ResponseWriter, r *http.Request) {
		l.mu.Lock()
		l.renews++
		l.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/workspace/5/unlock", func(w http.ResponseWriter, r *http.Request) {
		l.mu.Lock()
		l.unlocks = append(l.unlocks, r.URL.Query().Get("agent"))
		l.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	return mux
}

func writeConfig(t *testing.T, serverURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wsbridge.yaml")
	cfg := `version: 1
server_url: ` + serverURL + `
agent: test-agent
workspace:
  id: 5
embed:
  allowed_origins:
    - "https://*.example.com"
  frames:
    - id: diagram
      src: https://view.example.com/embed/5
      container_width: 800
      max_height: 300px
`
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRunBridgeSizesFramesAndReleasesLock(t *testing.T) {
	ls := &lockServer{}
	ts := httptest.NewServer(ls.handler())
	defer ts.Close()
	t.Setenv("WSBRIDGE_AGENT", "")
	t.Setenv("WSBRIDGE_SERVER_URL", "")

	in := strings.NewReader(strings.Join([]string{
		`{"type":"message","origin":"https://evil.test","data":{"context":"iframe.resize","src":"https://view.example.com/embed/5","aspectRatio":1,"toolbarHeight":0}}`,
		`{"type":"message","origin":"https://view.example.com","data":{"context":"iframe.resize","src":"https://view.example.com/embed/5#d","aspectRatio":2,"toolbarHeight":40}}`,
		`{"type":"resize","widths":{"diagram":400}}`,
		`{"type":"teardown"}`,
	}, "\n"))
	var out bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runBridge(ctx, []string{"-config", writeConfig(t, ts.URL)}, in, &out); err != nil {
		t.Fatalf("runBridge: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 size lines, got %q", out.String())
	}
	var first, second sizeLine
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode second line: %v", err)
	}
	if first.Frame != "diagram" || first.Width != 520 || first.Height != 300 {
		t.Fatalf("unexpected first size %+v", first)
	}
	if second.Width != 400 || second.Height != 240 {
		t.Fatalf("unexpected second size %+v", second)
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.renews != 0 {
		t.Fatalf("expected no renewals before the first interval, got %d", ls.renews)
	}
	if len(ls.unlocks) != 1 || ls.unlocks[0] != "test-agent" {
		t.Fatalf("expected one unlock beacon for test-agent, got %v", ls.unlocks)
	}
}

func TestRunBridgeMissingConfig(t *testing.T) {
	err := runBridge(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}, strings.NewReader(""), &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected missing config to fail")
	}
}

func TestRunDiscoverPrintsServers(t *testing.T) {
	orig := discoveryLookup
	t.Cleanup(func() { discoveryLookup = orig })

	discoveryLookup = func(time.Duration) ([]discovery.Server, error) {
		return []discovery.Server{{Instance: "wsbridge-host", URL: "http://10.0.0.2:8113", Version: "v1.2.0", APIVersion: "v1.1.0"}}, nil
	}
	var out bytes.Buffer
	if err := runDiscover(nil, &out); err != nil {
		t.Fatalf("runDiscover: %v", err)
	}
	if !strings.Contains(out.String(), "wsbridge-host\thttp://10.0.0.2:8113\tversion=v1.2.0\tapi=v1.1.0") {
		t.Fatalf("unexpected output %q", out.String())
	}

	discoveryLookup = func(time.Duration) ([]discovery.Server, error) { return nil, nil }
	out.Reset()
	if err := runDiscover([]string{"-timeout", "10ms"}, &out); err != nil {
		t.Fatalf("runDiscover: %v", err)
	}
	if strings.TrimSpace(out.String()) != "no servers found" {
		t.Fatalf("unexpected empty output %q", out.String())
	}

	discoveryLookup = func(time.Duration) ([]discovery.Server, error) { return nil, errors.New("no multicast") }
	if err := runDiscover(nil, &out); err == nil {
		t.Fatal("expected lookup error")
	}
}
