// Package broadcast 实时订阅者注册表与消息分发
//
// 分发路径：Publish -> backlog -> 单个投递 worker -> Broadcast -> 每个订阅者自己的发送队列。
// 订阅者集合采用写时复制，Broadcast 遍历的是快照，Register/Unregister 可以与投递并发。
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/internal/models"
)

var (
	// ErrSubscriberClosed 订阅者已关闭
	ErrSubscriberClosed = errors.New("subscriber closed")
	// ErrSubscriberLagging 订阅者发送队列已满
	ErrSubscriberLagging = errors.New("subscriber send queue full")
)

// Subscriber 一个实时连接
// Send 不能阻塞在网络 I/O 上；返回错误即视为连接失效
type Subscriber interface {
	ID() string
	Send(data []byte) error
	Close()
}

// Broadcaster 订阅者注册表 + 投递 worker
type Broadcaster struct {
	logger *zap.Logger

	mu   sync.Mutex // 串行化对 subs 的写
	subs atomic.Pointer[[]Subscriber]

	qmu     sync.Mutex
	backlog []models.BroadcastMessage
	notify  chan struct{}
	stopped bool

	started atomic.Bool
	stopCh  chan struct{}
	done    chan struct{}

	published atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// NewBroadcaster 创建 Broadcaster，需要调用 Start 启动投递 worker
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	b := &Broadcaster{
		logger: logger,
		notify: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	empty := []Subscriber{}
	b.subs.Store(&empty)
	return b
}

func (b *Broadcaster) snapshot() []Subscriber {
	return *b.subs.Load()
}

// Register 注册订阅者；重复注册同一个 ID 无效果
func (b *Broadcaster) Register(sub Subscriber) {
	b.mu.Lock()
	cur := b.snapshot()
	for _, s := range cur {
		if s.ID() == sub.ID() {
			b.mu.Unlock()
			return
		}
	}
	next := make([]Subscriber, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, sub)
	b.subs.Store(&next)
	b.mu.Unlock()

	b.logger.Info("Subscriber registered",
		zap.String("subscriber_id", sub.ID()),
		zap.Int("subscribers", len(next)),
	)
}

// Unregister 移除并关闭订阅者；不存在时返回 false（幂等）
func (b *Broadcaster) Unregister(sub Subscriber) bool {
	b.mu.Lock()
	cur := b.snapshot()
	idx := -1
	for i, s := range cur {
		if s.ID() == sub.ID() {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return false
	}
	next := make([]Subscriber, 0, len(cur)-1)
	next = append(next, cur[:idx]...)
	next = append(next, cur[idx+1:]...)
	b.subs.Store(&next)
	b.mu.Unlock()

	cur[idx].Close()
	b.logger.Info("Subscriber unregistered",
		zap.String("subscriber_id", sub.ID()),
		zap.Int("subscribers", len(next)),
	)
	return true
}

// Count 当前订阅者数量
func (b *Broadcaster) Count() int {
	return len(b.snapshot())
}

// Broadcast 同步投递给当前所有订阅者，返回成功数量
// 消息只序列化一次；失败的订阅者在遍历结束后统一移除，不影响其他订阅者
func (b *Broadcaster) Broadcast(msg models.BroadcastMessage) int {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("Failed to marshal broadcast message",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
		return 0
	}

	var failed []Subscriber
	ok := 0
	for _, s := range b.snapshot() {
		if err := s.Send(data); err != nil {
			b.logger.Warn("Failed to deliver message",
				zap.String("subscriber_id", s.ID()),
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
			failed = append(failed, s)
			continue
		}
		ok++
	}

	for _, s := range failed {
		b.Unregister(s)
	}
	b.delivered.Add(uint64(ok))
	b.failed.Add(uint64(len(failed)))
	return ok
}

// Publish 放入待投递队列，立即返回
// 停止后返回 false
func (b *Broadcaster) Publish(msg models.BroadcastMessage) bool {
	b.qmu.Lock()
	if b.stopped {
		b.qmu.Unlock()
		return false
	}
	b.backlog = append(b.backlog, msg)
	b.qmu.Unlock()
	b.published.Add(1)

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return true
}

// Pending 尚未投递的消息数
func (b *Broadcaster) Pending() int {
	b.qmu.Lock()
	defer b.qmu.Unlock()
	return len(b.backlog)
}

// Start 启动投递 worker，只生效一次
func (b *Broadcaster) Start(ctx context.Context) {
	if !b.started.CompareAndSwap(false, true) {
		return
	}
	go b.run(ctx)
}

func (b *Broadcaster) run(ctx context.Context) {
	defer close(b.done)
	for {
		b.drain()
		select {
		case <-ctx.Done():
			b.closeIntake()
			b.drain()
			return
		case <-b.stopCh:
			b.drain()
			return
		case <-b.notify:
		}
	}
}

func (b *Broadcaster) take() []models.BroadcastMessage {
	b.qmu.Lock()
	defer b.qmu.Unlock()
	batch := b.backlog
	b.backlog = nil
	return batch
}

func (b *Broadcaster) drain() {
	for {
		batch := b.take()
		if len(batch) == 0 {
			return
		}
		for _, msg := range batch {
			b.Broadcast(msg)
		}
	}
}

func (b *Broadcaster) closeIntake() bool {
	b.qmu.Lock()
	defer b.qmu.Unlock()
	if b.stopped {
		return false
	}
	b.stopped = true
	return true
}

// Stop 停止接收新消息，等待 worker 投递完剩余消息
func (b *Broadcaster) Stop(ctx context.Context) error {
	if b.closeIntake() {
		close(b.stopCh)
	}
	if !b.started.Load() {
		return nil
	}
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseAll 移除并关闭全部订阅者
func (b *Broadcaster) CloseAll() {
	for _, s := range b.snapshot() {
		b.Unregister(s)
	}
}

// Stats 计数器
type Stats struct {
	Subscribers int    `json:"subscribers"`
	Pending     int    `json:"pending"`
	Published   uint64 `json:"published"`
	Delivered   uint64 `json:"delivered"`
	Failed      uint64 `json:"failed"`
}

// Stats 当前计数
func (b *Broadcaster) Stats() Stats {
	return Stats{
		Subscribers: b.Count(),
		Pending:     b.Pending(),
		Published:   b.published.Load(),
		Delivered:   b.delivered.Load(),
		Failed:      b.failed.Load(),
	}
}
