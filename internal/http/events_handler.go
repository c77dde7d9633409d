package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// EventLog 已广播消息的回看（*broadcast.StreamSubscriber 实现）
type EventLog interface {
	Recent(ctx context.Context, n int64) ([]json.RawMessage, error)
}

// EventsHandler 供断线重连的客户端补拉最近的事件
type EventsHandler struct {
	log    EventLog
	logger *zap.Logger
}

func NewEventsHandler(log EventLog, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{log: log, logger: logger}
}

// Recent GET /api/events/recent?limit=N
func (h *EventsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, Fail("limit must be a positive integer"))
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := h.log.Recent(r.Context(), int64(limit))
	if err != nil {
		h.logger.Warn("Failed to read recent events",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusServiceUnavailable, Fail("event log unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(events))
}
