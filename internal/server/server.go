package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/izzyreal/wsbridge/internal/store"
)

const defaultLockTimeout = 2 * time.Minute

type stateStore struct {
	db          *store.Store
	lockTimeout time.Duration
	instanceID  string
}

func Run(ctx context.Context) error {
	addr := envOrDefault("WSBRIDGE_SERVER_ADDR", ":8113")
	dbPath := envOrDefault("WSBRIDGE_DB_PATH", "wsbridge.db")
	grpcAddr := envOrDefault("WSBRIDGE_GRPC_ADDR", ":8114")

	lockTimeout := defaultLockTimeout
	if v := strings.TrimSpace(os.Getenv("WSBRIDGE_LOCK_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid WSBRIDGE_LOCK_TIMEOUT %q", v)
		}
		lockTimeout = d
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	instanceID, err := db.InstanceID(ctx)
	if err != nil {
		return err
	}
	s := &stateStore{db: db, lockTimeout: lockTimeout, instanceID: instanceID}

	srv := &http.Server{
		Addr:              addr,
		Handler:           buildRouter(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopMDNS := startMDNSAdvertiser(addr, instanceID)
	defer stopMDNS()

	stopGRPC := func() {}
	if !strings.EqualFold(strings.TrimSpace(grpcAddr), "off") {
		stop, boundAddr, err := startGRPCHealth(grpcAddr, db)
		if err != nil {
			return err
		}
		slog.Info("grpc health service started", "addr", boundAddr)
		stopGRPC = stop
	}
	defer stopGRPC()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("wsbridge server started", "addr", addr, "db", dbPath, "lock_timeout", lockTimeout, "instance_id", instanceID)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen and serve: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		slog.Info("wsbridge server stopped")
		return nil
	case err := <-errCh:
		if err != nil {
			return err
		}
		slog.Info("wsbridge server stopped")
		return nil
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
