package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/izzyreal/wsbridge/internal/protocol"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode JSON response", "error", err)
	}
}

// WriteFailure reports an application-level failure in the API envelope
// clients expect, rather than a plain-text error.
func WriteFailure(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, protocol.APIResponse{Success: false, Message: message})
}
