package live

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// NewRouter exposes the websocket endpoint and a liveness probe. It runs on its
// own net/http listener because fasthttp connections cannot be hijacked for
// gorilla/websocket.
func NewRouter(hub *Hub) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", hub.ServeWs).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"clients": hub.ClientCount(),
		})
	}).Methods(http.MethodGet)
	return r
}

// NewServer wraps the router in an http.Server bound to addr.
func NewServer(addr string, hub *Hub) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
