package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/Sarthak207/FlexiCart/flexi-common/redis"
)

// StreamSubscriber 把广播消息镜像到 Redis Stream，供下游服务消费
// 自带发送队列，Redis 慢或不可用时不影响其他订阅者；写入失败只记录日志
type StreamSubscriber struct {
	id      string
	client  *redisclient.Client
	stream  string
	maxLen  int64
	timeout time.Duration
	logger  *zap.Logger

	queue  chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	wg     sync.WaitGroup
}

// NewStreamSubscriber 创建并启动写入 goroutine
func NewStreamSubscriber(client *redisclient.Client, stream string, maxLen int64, buffer int, logger *zap.Logger) *StreamSubscriber {
	if buffer <= 0 {
		buffer = 1024
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &StreamSubscriber{
		id:      "redis-stream-" + uuid.NewString(),
		client:  client,
		stream:  stream,
		maxLen:  maxLen,
		timeout: 2 * time.Second,
		logger:  logger,
		queue:   make(chan []byte, buffer),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

func (s *StreamSubscriber) ID() string { return s.id }

// Send 入队；队列满时丢弃并返回 nil，镜像丢消息不应导致被移除
func (s *StreamSubscriber) Send(data []byte) error {
	if s.ctx.Err() != nil {
		return ErrSubscriberClosed
	}
	select {
	case s.queue <- data:
	default:
		s.logger.Warn("Redis stream mirror queue full, dropping message",
			zap.String("stream", s.stream),
		)
	}
	return nil
}

// Close 停止写入；队列中剩余的消息尽量写完
func (s *StreamSubscriber) Close() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

func (s *StreamSubscriber) loop() {
	defer s.wg.Done()
	for {
		select {
		case data := <-s.queue:
			s.write(data)
		case <-s.ctx.Done():
			for {
				select {
				case data := <-s.queue:
					s.write(data)
				default:
					return
				}
			}
		}
	}
}

func (s *StreamSubscriber) write(data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := redisclient.AppendEvent(ctx, s.client, s.stream, s.maxLen, data, time.Now()); err != nil {
		s.logger.Error("Failed to publish to redis stream",
			zap.String("stream", s.stream),
			zap.Error(err),
		)
	}
}

// Recent 从镜像流读取最近 n 条消息，最新的在前
func (s *StreamSubscriber) Recent(ctx context.Context, n int64) ([]json.RawMessage, error) {
	events, err := redisclient.RecentEvents(ctx, s.client, s.stream, n)
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(events))
	for _, ev := range events {
		if json.Valid(ev.Data) {
			out = append(out, json.RawMessage(ev.Data))
		}
	}
	return out, nil
}
