package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/izzyreal/wsbridge/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	loadDotEnv()
	initLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "server":
		err = server.Run(ctx)
	case "bridge":
		err = runBridge(ctx, os.Args[2:], os.Stdin, os.Stdout)
	case "discover":
		err = runDiscover(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "wsbridge: %v\n", err)
		os.Exit(1)
	}
}

// loadDotEnv reads .env (or WSBRIDGE_ENV_FILE) without overriding variables
// already set in the environment.
func loadDotEnv() {
	path := envOrDefault("WSBRIDGE_ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "wsbridge: load %s: %v\n", path, err)
	}
}

func initLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(os.Getenv("WSBRIDGE_LOG_LEVEL"))) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprintf(os.Stderr, `wsbridge - diagram embed and workspace lock bridge

Usage:
  wsbridge <command> [flags]

Commands:
  server    Run the local workspace/lock server
  bridge    Hold a workspace lock and size embedded frames from JSON-lines events on stdin
  discover  List workspace servers advertised on the local network
  help      Show this help
`)
}
