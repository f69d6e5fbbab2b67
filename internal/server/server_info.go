package server

import (
	"net/http"

	"github.com/izzyreal/wsbridge/internal/protocol"
	"github.com/izzyreal/wsbridge/internal/server/httpx"
	"github.com/izzyreal/wsbridge/internal/version"
)

func (s *stateStore) serverInfoHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, protocol.ServerInfoResponse{
		Name:       "wsbridge",
		APIVersion: protocol.APIVersion,
		Version:    version.Current(),
		InstanceID: s.instanceID,
	})
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
