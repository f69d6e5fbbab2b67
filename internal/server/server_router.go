package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func buildRouter(s *stateStore) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Health/info
	r.Get("/healthz", healthzHandler)
	r.Get("/api/server-info", s.serverInfoHandler)

	// Workspace API
	r.Get("/api/workspace/{workspaceID}", s.getWorkspaceHandler)
	r.Put("/api/workspace/{workspaceID}", s.putWorkspaceHandler)
	r.Get("/api/workspace/{workspaceID}/branch/{branch}", s.getWorkspaceHandler)
	r.Put("/api/workspace/{workspaceID}/branch/{branch}", s.putWorkspaceHandler)

	// Locks
	r.Put("/api/workspace/{workspaceID}/lock", s.lockHandler)
	r.Delete("/api/workspace/{workspaceID}/lock", s.unlockHandler)
	r.Get("/api/workspace/{workspaceID}/lock", s.lockStatusHandler)
	r.Get("/workspace/{workspaceID}/unlock", s.unlockBeaconHandler)
	r.Post("/workspace/{workspaceID}/unlock", s.unlockBeaconHandler)

	// Tooltips
	r.Get("/workspace/{workspaceID}/tooltip/elements/{elementID}", s.elementTooltipHandler)
	r.Get("/workspace/{workspaceID}/tooltip/relationships/{relationshipID}", s.relationshipTooltipHandler)

	return r
}
