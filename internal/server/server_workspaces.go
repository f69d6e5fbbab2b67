package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/izzyreal/wsbridge/internal/protocol"
	"github.com/izzyreal/wsbridge/internal/server/httpx"
)

const maxWorkspaceBytes = 32 * 1024 * 1024

func workspaceIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "workspaceID")), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *stateStore) getWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceIDParam(r)
	if !ok {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid workspace id")
		return
	}
	branch := strings.TrimSpace(chi.URLParam(r, "branch"))

	ws, found, err := s.db.GetWorkspace(r.Context(), id, branch)
	if err != nil {
		slog.Error("get workspace failed", "workspace_id", id, "branch", branch, "error", err)
		httpx.WriteFailure(w, http.StatusInternalServerError, "could not read workspace")
		return
	}
	if !found {
		httpx.WriteFailure(w, http.StatusNotFound, fmt.Sprintf("Workspace %d does not exist", id))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Workspace-Revision", strconv.FormatInt(ws.Revision, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(ws.JSON)
}

func (s *stateStore) putWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceIDParam(r)
	if !ok {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid workspace id")
		return
	}
	branch := strings.TrimSpace(chi.URLParam(r, "branch"))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWorkspaceBytes))
	if err != nil {
		httpx.WriteFailure(w, http.StatusRequestEntityTooLarge, "workspace too large")
		return
	}
	var ws protocol.Workspace
	if err := json.Unmarshal(body, &ws); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid workspace JSON")
		return
	}
	agent := strings.TrimSpace(r.Header.Get("X-User-Agent"))
	if agent == "" {
		agent = ws.LastModifiedAgent
	}

	lock, locked, err := s.db.GetLock(r.Context(), id)
	if err != nil {
		slog.Error("read workspace lock failed", "workspace_id", id, "error", err)
		httpx.WriteFailure(w, http.StatusInternalServerError, "could not check workspace lock")
		return
	}
	if locked && !s.lockExpired(lock) && !lock.HeldBy(ws.LastModifiedUser, agent) {
		httpx.WriteFailure(w, http.StatusConflict, fmt.Sprintf("The workspace could not be saved because the workspace was locked by %s at %s.", lockHolder(lock), lock.LockedUTC.Format(userFriendlyDate)))
		return
	}

	revision, err := s.db.PutWorkspace(r.Context(), id, branch, body)
	if err != nil {
		slog.Error("put workspace failed", "workspace_id", id, "branch", branch, "error", err)
		httpx.WriteFailure(w, http.StatusInternalServerError, "could not store workspace")
		return
	}
	slog.Info("workspace stored", "workspace_id", id, "branch", branch, "revision", revision, "agent", agent)
	httpx.WriteJSON(w, http.StatusOK, protocol.APIResponse{Success: true, Message: "OK", Revision: revision})
}
