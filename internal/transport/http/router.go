// Package http mounts the broker's minimal HTTP surface: a health check
// and the WebSocket upgrade endpoint. Adapted from the teacher's
// router.go Container pattern, trimmed to the two routes spec §6 allows.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"matchbroker/internal/transport/ws"
)

// NewRouter builds the top-level mux.Router. wsPath is SOCKET_IO_PATH
// (spec §6), the transport path prefix the WebSocket endpoint is mounted
// under.
func NewRouter(wsPath string, wsHandler *ws.Handler) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	r.HandleFunc(wsPath, wsHandler.ServeHTTP).Methods(http.MethodGet)

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "service": "matchmaking"})
}
