package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/internal/broadcast"
)

// WSHandler 实时订阅入口
type WSHandler struct {
	broadcaster  *broadcast.Broadcaster
	upgrader     websocket.Upgrader
	buffer       int
	writeTimeout time.Duration
	logger       *zap.Logger
}

func NewWSHandler(b *broadcast.Broadcaster, buffer int, writeTimeout time.Duration, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		broadcaster: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 购物车前端与采集端不在同一个源
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		buffer:       buffer,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// ServeHTTP GET /ws
// 注册后阻塞在读循环，连接断开时注销
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		return
	}

	sub := broadcast.NewWSSubscriber(r.Context(), conn, h.buffer, h.writeTimeout, h.logger)
	h.broadcaster.Register(sub)
	defer h.broadcaster.Unregister(sub)

	sub.ReadLoop()
}
