package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validConfigYAML = `
version: 1
server_url: http://127.0.0.1:8113
agent: wsbridge/test
workspace:
  id: 42
  branch: main
  user: alice
lock:
  interval_seconds: 30
embed:
  allowed_origins:
    - https://*.example.com
  frames:
    - id: context
      src: https://diagrams.example.com/embed/42?diagram=Context
      container_width: 800
      max_height: 300px
    - id: containers
      src: https://diagrams.example.com/embed/42?diagram=Containers
      container_width: 640
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(validConfigYAML), "test-valid")
	if err != nil {
		t.Fatalf("parse valid config: %v", err)
	}
	if cfg.Workspace.ID != 42 || cfg.Workspace.User != "alice" {
		t.Fatalf("unexpected workspace: %+v", cfg.Workspace)
	}
	if !cfg.LockEnabled() {
		t.Fatalf("expected lock enabled by default")
	}
	if got := cfg.LockInterval(); got != 30*time.Second {
		t.Fatalf("unexpected lock interval %s", got)
	}
	frames := cfg.EmbedFrames()
	if len(frames) != 2 {
		t.Fatalf("unexpected frames: %+v", frames)
	}
	if frames[0].MaxHeight != 300 || frames[1].MaxHeight != 0 {
		t.Fatalf("unexpected max heights: %+v", frames)
	}
}

func TestParseLockDisabledAllowsMissingWorkspace(t *testing.T) {
	cfg, err := Parse([]byte(`
version: 1
server_url: http://127.0.0.1:8113
lock:
  enabled: false
`), "test-lock-disabled")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.LockEnabled() {
		t.Fatalf("expected lock disabled")
	}
	if cfg.LockInterval() != 0 {
		t.Fatalf("expected zero interval to mean default")
	}
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	_, err := Parse([]byte(`
version: 2
server_url: http://x
workspace:
  id: 1
`), "test-version")
	if err == nil || !strings.Contains(err.Error(), "unsupported config version") {
		t.Fatalf("expected unsupported version error, got: %v", err)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`
version: 1
server_url: http://x
workspace:
  id: 1
frames: []
`), "test-unknown")
	if err == nil || !strings.Contains(err.Error(), "parse YAML") {
		t.Fatalf("expected unknown field error, got: %v", err)
	}
}

func TestParseCollectsValidationErrors(t *testing.T) {
	_, err := Parse([]byte(`
version: 1
server_url: ""
lock:
  interval_seconds: -1
embed:
  allowed_origins: ["", "https://[x"]
  frames:
    - id: a
      src: ""
      container_width: -5
      max_height: 50%
    - id: a
      src: https://x/embed
`), "test-invalid")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{
		"server_url is required",
		"workspace.id must be > 0 when lock is enabled",
		"lock.interval_seconds must be >= 0",
		"embed.allowed_origins[0] must not be empty",
		"embed.allowed_origins[1] invalid pattern",
		"embed.frames[0].src is required",
		"embed.frames[0].container_width must be >= 0",
		"embed.frames[0].max_height \"50%\" must be a pixel value",
		"embed.frames[1].id duplicate \"a\"",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error: %v", want, err)
		}
	}
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("version: ["), "test-yaml")
	if err == nil || !strings.Contains(err.Error(), "parse YAML") {
		t.Fatalf("expected parse YAML error, got: %v", err)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wsbridge.yaml")
	if err := os.WriteFile(path, []byte(validConfigYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Agent != "wsbridge/test" {
		t.Fatalf("unexpected agent %q", cfg.Agent)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Fatalf("expected read error, got %v", err)
	}
}
