package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/internal/models"
)

const maxClientMessageSize = 64 * 1024

var pongFrame = []byte(`{"type":"` + string(models.MessageTypePong) + `"}`)

// WSSubscriber websocket 订阅者
// 只有 writeLoop 写连接；Send 只入队，队列满返回 ErrSubscriberLagging
type WSSubscriber struct {
	id           string
	conn         *websocket.Conn
	out          chan []byte
	writeTimeout time.Duration
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewWSSubscriber 包装已升级的连接并启动写 goroutine
func NewWSSubscriber(parent context.Context, conn *websocket.Conn, buffer int, writeTimeout time.Duration, logger *zap.Logger) *WSSubscriber {
	if buffer <= 0 {
		buffer = 256
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(parent)
	s := &WSSubscriber{
		id:           uuid.NewString(),
		conn:         conn,
		out:          make(chan []byte, buffer),
		writeTimeout: writeTimeout,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
	go s.writeLoop()
	return s
}

func (s *WSSubscriber) ID() string { return s.id }

// Done 连接关闭后关闭
func (s *WSSubscriber) Done() <-chan struct{} { return s.ctx.Done() }

func (s *WSSubscriber) Send(data []byte) error {
	if s.ctx.Err() != nil {
		return ErrSubscriberClosed
	}
	select {
	case s.out <- data:
		return nil
	default:
		return ErrSubscriberLagging
	}
}

func (s *WSSubscriber) Close() {
	s.once.Do(func() {
		s.cancel()
		_ = s.conn.Close()
	})
}

func (s *WSSubscriber) writeLoop() {
	defer s.Close()
	for {
		select {
		case <-s.ctx.Done():
			return
		case data := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("Websocket write failed",
					zap.String("subscriber_id", s.id),
					zap.Error(err),
				)
				return
			}
		}
	}
}

// ReadLoop 读取客户端消息直到连接断开
// ping 回复 pong，其他消息忽略
func (s *WSSubscriber) ReadLoop() {
	defer s.Close()
	s.conn.SetReadLimit(maxClientMessageSize)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info("Websocket closed unexpectedly",
					zap.String("subscriber_id", s.id),
					zap.Error(err),
				)
			}
			return
		}
		if isPing(data) {
			if err := s.Send(pongFrame); err != nil {
				return
			}
		}
	}
}

func isPing(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == "ping" {
		return true
	}
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return false
	}
	return msg.Type == "ping"
}
