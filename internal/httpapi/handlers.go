package httpapi

import (
	"encoding/json"
	"net/http"

	"rpsarena/internal/hub"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ListRooms returns the current room names, optionally filtered by the
// "filter" query parameter.
func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms := h.ListRooms(r.URL.Query().Get("filter"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Rooms []string `json:"rooms"`
		}{Rooms: rooms})
	}
}
