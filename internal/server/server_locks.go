package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/izzyreal/wsbridge/internal/protocol"
	"github.com/izzyreal/wsbridge/internal/server/httpx"
	"github.com/izzyreal/wsbridge/internal/store"
)

const userFriendlyDate = "02 Jan 2006 15:04:05 MST"

func (s *stateStore) lockExpired(l store.Lock) bool {
	return s.lockTimeout > 0 && time.Since(l.LockedUTC) >= s.lockTimeout
}

func lockHolder(l store.Lock) string {
	if l.User == "" {
		return l.Agent
	}
	return l.User + " using " + l.Agent
}

func (s *stateStore) lockHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceIDParam(r)
	if !ok {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid workspace id")
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid form body")
		return
	}
	agent := strings.TrimSpace(r.Form.Get("agent"))
	user := strings.TrimSpace(r.Form.Get("user"))
	if agent == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, "agent is required")
		return
	}

	exists, err := s.db.WorkspaceExists(r.Context(), id)
	if err != nil {
		slog.Error("check workspace failed", "workspace_id", id, "error", err)
		httpx.WriteFailure(w, http.StatusInternalServerError, "could not check workspace")
		return
	}
	if !exists {
		httpx.WriteJSON(w, http.StatusOK, protocol.LockResponse{Success: false, Message: fmt.Sprintf("Workspace %d does not exist", id)})
		return
	}

	holder, acquired, err := s.db.TryLock(r.Context(), id, user, agent, s.lockTimeout)
	if err != nil {
		slog.Error("lock workspace failed", "workspace_id", id, "agent", agent, "error", err)
		httpx.WriteFailure(w, http.StatusInternalServerError, "could not lock workspace")
		return
	}
	if !acquired {
		slog.Info("workspace lock refused", "workspace_id", id, "agent", agent, "held_by", holder.Agent)
		httpx.WriteJSON(w, http.StatusOK, protocol.LockResponse{
			Success: false,
			Locked:  true,
			Message: fmt.Sprintf("The workspace could not be locked; it was locked by %s at %s.", lockHolder(holder), holder.LockedUTC.Format(userFriendlyDate)),
		})
		return
	}
	slog.Debug("workspace locked", "workspace_id", id, "user", user, "agent", agent)
	httpx.WriteJSON(w, http.StatusOK, protocol.LockResponse{Success: true, Locked: true})
}

func (s *stateStore) unlockHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceIDParam(r)
	if !ok {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid workspace id")
		return
	}
	agent := strings.TrimSpace(r.URL.Query().Get("agent"))
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if agent == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, "agent is required")
		return
	}
	released, err := s.db.Unlock(r.Context(), id, user, agent)
	if err != nil {
		slog.Error("unlock workspace failed", "workspace_id", id, "agent", agent, "error", err)
		httpx.WriteFailure(w, http.StatusInternalServerError, "could not unlock workspace")
		return
	}
	if !released {
		httpx.WriteJSON(w, http.StatusOK, protocol.APIResponse{Success: false, Message: "Could not unlock workspace"})
		return
	}
	slog.Info("workspace unlocked", "workspace_id", id, "agent", agent)
	httpx.WriteJSON(w, http.StatusOK, protocol.APIResponse{Success: true, Message: "OK"})
}

// unlockBeaconHandler serves the best-effort release sent while a client
// tears down. Nobody reads the answer, so it is kept minimal.
func (s *stateStore) unlockBeaconHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceIDParam(r)
	if !ok {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid workspace id")
		return
	}
	agent := strings.TrimSpace(r.URL.Query().Get("agent"))
	if agent == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, "agent is required")
		return
	}
	released, err := s.db.Unlock(r.Context(), id, "", agent)
	if err != nil {
		slog.Error("unlock beacon failed", "workspace_id", id, "agent", agent, "error", err)
		httpx.WriteFailure(w, http.StatusInternalServerError, "could not unlock workspace")
		return
	}
	current, locked, err := s.db.GetLock(r.Context(), id)
	if err != nil {
		locked = false
	}
	if released {
		slog.Info("workspace unlocked by beacon", "workspace_id", id, "agent", agent)
	}
	httpx.WriteJSON(w, http.StatusOK, protocol.LockResponse{Success: released, Locked: locked && !s.lockExpired(current)})
}

func (s *stateStore) lockStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceIDParam(r)
	if !ok {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid workspace id")
		return
	}
	l, found, err := s.db.GetLock(r.Context(), id)
	if err != nil {
		slog.Error("read workspace lock failed", "workspace_id", id, "error", err)
		httpx.WriteFailure(w, http.StatusInternalServerError, "could not read workspace lock")
		return
	}
	if !found || s.lockExpired(l) {
		httpx.WriteJSON(w, http.StatusOK, protocol.LockStatus{WorkspaceID: id})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, protocol.LockStatus{
		WorkspaceID: id,
		Locked:      true,
		User:        l.User,
		Agent:       l.Agent,
		LockedUTC:   l.LockedUTC,
	})
}
