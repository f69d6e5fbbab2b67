package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/izzyreal/wsbridge/internal/bridge"
	"github.com/izzyreal/wsbridge/internal/config"
	"github.com/izzyreal/wsbridge/internal/embed"
	"github.com/izzyreal/wsbridge/internal/lock"
	"github.com/izzyreal/wsbridge/internal/workspaceapi"
)

// sizeReporter writes every applied frame size to out as a JSON line.
type sizeReporter struct {
	*embed.MemoryDocument

	mu  sync.Mutex
	out io.Writer
}

type sizeLine struct {
	Type   string  `json:"type"`
	Frame  string  `json:"frame"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r *sizeReporter) SetFrameSize(id string, size embed.Size) {
	r.MemoryDocument.SetFrameSize(id, size)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := json.NewEncoder(r.out).Encode(sizeLine{Type: "size", Frame: id, Width: size.Width, Height: size.Height}); err != nil {
		slog.Error("write frame size", "frame_id", id, "error", err)
	}
}

func runBridge(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("bridge", flag.ContinueOnError)
	configPath := fs.String("config", envOrDefault("WSBRIDGE_CONFIG", "wsbridge.yaml"), "bridge config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if v := envOrDefault("WSBRIDGE_SERVER_URL", ""); v != "" {
		cfg.ServerURL = v
	}

	client := workspaceapi.NewClient(workspaceapi.Config{
		ServerURL:   cfg.ServerURL,
		APIURL:      cfg.APIURL,
		WorkspaceID: cfg.Workspace.ID,
		Branch:      cfg.Workspace.Branch,
		User:        cfg.Workspace.User,
		Agent:       envOrDefault("WSBRIDGE_AGENT", cfg.Agent),
	})
	checkServer(ctx, client)

	doc := &sizeReporter{MemoryDocument: embed.NewMemoryDocument(cfg.EmbedFrames()...), out: out}
	bcfg := bridge.Config{
		Document:       doc,
		AllowedOrigins: cfg.Embed.AllowedOrigins,
	}
	if cfg.LockEnabled() {
		bcfg.Lock = client
		bcfg.WorkspaceID = cfg.Workspace.ID
		bcfg.Agent = client.Agent()
		bcfg.LockInterval = cfg.LockInterval()
		bcfg.OnLockLost = func(workspaceID int64, message string) {
			writeLine(out, map[string]any{"type": "lock_lost", "workspace_id": workspaceID, "message": message})
		}
	}
	b, err := bridge.New(bcfg)
	if err != nil {
		return err
	}

	slog.Info("wsbridge bridge started", "workspace_id", cfg.Workspace.ID, "agent", client.Agent(), "lock", cfg.LockEnabled(), "frames", len(cfg.Embed.Frames))
	err = b.Run(ctx, bridge.ReadEvents(ctx, in))
	if errors.Is(err, lock.ErrLockRejected) {
		// Editing is disabled but the bridge itself ended normally.
		slog.Warn("bridge stopped after lock rejection", "error", err)
		return nil
	}
	return err
}

// checkServer logs whether the server speaks a compatible API. The lock loop
// retries on its own, so an unreachable server is not fatal here.
func checkServer(ctx context.Context, client *workspaceapi.Client) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	info, err := client.ServerInfo(ctx)
	if err != nil {
		slog.Warn("server info unavailable", "error", err)
		return
	}
	if err := workspaceapi.CheckCompatible(info); err != nil {
		slog.Warn("server api may be incompatible", "api_version", info.APIVersion, "error", err)
		return
	}
	slog.Info("connected to workspace server", "name", info.Name, "version", info.Version, "api_version", info.APIVersion)
}

func writeLine(out io.Writer, v any) {
	if err := json.NewEncoder(out).Encode(v); err != nil {
		slog.Error("write output line", "error", err)
	}
}
