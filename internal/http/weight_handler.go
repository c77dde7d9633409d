package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/internal/dispatcher"
	"github.com/Sarthak207/FlexiCart/internal/models"
)

// WeightHandler 称重上报与查询
type WeightHandler struct {
	dispatcher *dispatcher.Dispatcher
	logger     *zap.Logger
}

func NewWeightHandler(d *dispatcher.Dispatcher, logger *zap.Logger) *WeightHandler {
	return &WeightHandler{dispatcher: d, logger: logger}
}

// Update POST /api/weight/update
func (h *WeightHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p models.WeightPayload
	if !decodeBody(w, r, &p) {
		return
	}
	reading, err := p.ToReading()
	if err != nil {
		writeError(w, err)
		return
	}
	state, err := h.dispatcher.IngestWeight(r.Context(), reading)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(state))
}

// Tare POST /api/weight/tare
func (h *WeightHandler) Tare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"device_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	state, err := h.dispatcher.TareScale(r.Context(), req.DeviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(state))
}

// Get GET /api/weight/{deviceId}
func (h *WeightHandler) Get(w http.ResponseWriter, r *http.Request, deviceID string) {
	state, err := h.dispatcher.GetWeight(deviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(state))
}
