package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/izzyreal/wsbridge/internal/embed"
)

// File is the bridge configuration: which workspace lock to hold and which
// embedded frames the host document contains.
type File struct {
	Version   int       `yaml:"version" json:"version"`
	ServerURL string    `yaml:"server_url" json:"server_url"`
	APIURL    string    `yaml:"api_url,omitempty" json:"api_url,omitempty"`
	Agent     string    `yaml:"agent,omitempty" json:"agent,omitempty"`
	Workspace Workspace `yaml:"workspace" json:"workspace"`
	Lock      Lock      `yaml:"lock,omitempty" json:"lock,omitempty"`
	Embed     Embed     `yaml:"embed,omitempty" json:"embed,omitempty"`
}

type Workspace struct {
	ID     int64  `yaml:"id" json:"id"`
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`
	User   string `yaml:"user,omitempty" json:"user,omitempty"`
}

type Lock struct {
	Enabled         *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	IntervalSeconds int   `yaml:"interval_seconds,omitempty" json:"interval_seconds,omitempty"`
}

type Embed struct {
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" json:"allowed_origins,omitempty"`
	Frames         []Frame  `yaml:"frames,omitempty" json:"frames,omitempty"`
}

type Frame struct {
	ID             string  `yaml:"id" json:"id"`
	Src            string  `yaml:"src" json:"src"`
	ContainerWidth float64 `yaml:"container_width" json:"container_width"`
	MaxHeight      string  `yaml:"max_height,omitempty" json:"max_height,omitempty"`
}

func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config file %q: %w", path, err)
	}

	return Parse(data, path)
}

func Parse(data []byte, source string) (File, error) {
	var cfg File

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse YAML in %q: %w", source, err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config in %q: %s", source, strings.Join(errs, "; "))
	}
	return cfg, nil
}

func (cfg File) Validate() []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported config version %d", cfg.Version))
	}
	if strings.TrimSpace(cfg.ServerURL) == "" {
		errs = append(errs, "server_url is required")
	}
	if cfg.LockEnabled() && cfg.Workspace.ID <= 0 {
		errs = append(errs, "workspace.id must be > 0 when lock is enabled")
	}
	if cfg.Lock.IntervalSeconds < 0 {
		errs = append(errs, "lock.interval_seconds must be >= 0")
	}

	for i, p := range cfg.Embed.AllowedOrigins {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Sprintf("embed.allowed_origins[%d] must not be empty", i))
			continue
		}
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Sprintf("embed.allowed_origins[%d] invalid pattern %q", i, p))
		}
	}

	frameIDs := map[string]struct{}{}
	for i, f := range cfg.Embed.Frames {
		if strings.TrimSpace(f.ID) == "" {
			errs = append(errs, fmt.Sprintf("embed.frames[%d].id is required", i))
		} else {
			if _, exists := frameIDs[f.ID]; exists {
				errs = append(errs, fmt.Sprintf("embed.frames[%d].id duplicate %q", i, f.ID))
			}
			frameIDs[f.ID] = struct{}{}
		}
		if strings.TrimSpace(f.Src) == "" {
			errs = append(errs, fmt.Sprintf("embed.frames[%d].src is required", i))
		}
		if f.ContainerWidth < 0 {
			errs = append(errs, fmt.Sprintf("embed.frames[%d].container_width must be >= 0", i))
		}
		if strings.TrimSpace(f.MaxHeight) != "" {
			if _, ok := embed.ParseMaxHeight(f.MaxHeight); !ok {
				errs = append(errs, fmt.Sprintf("embed.frames[%d].max_height %q must be a pixel value", i, f.MaxHeight))
			}
		}
	}

	return errs
}

// LockEnabled defaults to true.
func (cfg File) LockEnabled() bool {
	return cfg.Lock.Enabled == nil || *cfg.Lock.Enabled
}

func (cfg File) LockInterval() time.Duration {
	if cfg.Lock.IntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(cfg.Lock.IntervalSeconds) * time.Second
}

// EmbedFrames converts the configured frames into the resizer's view.
func (cfg File) EmbedFrames() []embed.Frame {
	out := make([]embed.Frame, 0, len(cfg.Embed.Frames))
	for _, f := range cfg.Embed.Frames {
		maxHeight, _ := embed.ParseMaxHeight(f.MaxHeight)
		out = append(out, embed.Frame{
			ID:             f.ID,
			Src:            f.Src,
			ContainerWidth: f.ContainerWidth,
			MaxHeight:      maxHeight,
		})
	}
	return out
}
