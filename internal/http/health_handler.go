package httpapi

import (
	"net/http"

	"github.com/Sarthak207/FlexiCart/internal/broadcast"
)

// HealthStatus GET /health
type HealthStatus struct {
	Status      string          `json:"status"`
	Subscribers int             `json:"subscribers"`
	Broadcast   broadcast.Stats `json:"broadcast"`
}

func healthHandler(b *broadcast.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodGet) {
			return
		}
		stats := b.Stats()
		writeJSON(w, http.StatusOK, Ok(HealthStatus{
			Status:      "ok",
			Subscribers: stats.Subscribers,
			Broadcast:   stats,
		}))
	}
}
