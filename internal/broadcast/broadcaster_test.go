package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/internal/models"
)

type fakeSubscriber struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed int
	onSend func()
}

func newFake(id string) *fakeSubscriber { return &fakeSubscriber{id: id} }

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Send(data []byte) error {
	if f.onSend != nil {
		f.onSend()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeSubscriber) Close() {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
}

func (f *fakeSubscriber) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.frames))
	copy(out, f.frames)
	return out
}

func (f *fakeSubscriber) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestBroadcast_IsolatesFailingSubscriber(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	s1, s2, s3 := newFake("s1"), newFake("s2"), newFake("s3")
	s2.fail = true
	b.Register(s1)
	b.Register(s2)
	b.Register(s3)

	n := b.Broadcast(models.NewWeightUpdate("scale-1", 100, true))

	assert.Equal(t, 2, n)
	assert.Len(t, s1.received(), 1)
	assert.Len(t, s3.received(), 1)
	assert.Equal(t, 1, s2.closeCount(), "失败的订阅者要被关闭")
	assert.Equal(t, 2, b.Count())

	n = b.Broadcast(models.NewWeightUpdate("scale-1", 200, false))
	assert.Equal(t, 2, n)
	assert.Len(t, s1.received(), 2)
	assert.Len(t, s3.received(), 2)
	assert.Equal(t, uint64(1), b.Stats().Failed)
}

func TestBroadcast_SerializesOnce(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	s1, s2 := newFake("s1"), newFake("s2")
	b.Register(s1)
	b.Register(s2)

	msg := models.NewCartUpdate("u1", models.CartActionAdd, models.CartItem{ProductID: "1", Quantity: 1})
	b.Broadcast(msg)

	f1, f2 := s1.received(), s2.received()
	require.Len(t, f1, 1)
	require.Len(t, f2, 1)
	assert.Same(t, &f1[0][0], &f2[0][0], "所有订阅者共享同一份序列化结果")

	var decoded models.BroadcastMessage
	require.NoError(t, json.Unmarshal(f1[0], &decoded))
	assert.Equal(t, msg.MessageID, decoded.MessageID)
	assert.Equal(t, models.CartActionAdd, decoded.Action)
}

func TestBroadcast_NoSubscribers(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	assert.Equal(t, 0, b.Broadcast(models.NewWeightUpdate("d", 1, false)))
}

func TestRegister_Idempotent(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	s := newFake("s1")
	b.Register(s)
	b.Register(s)
	assert.Equal(t, 1, b.Count())

	assert.True(t, b.Unregister(s))
	assert.False(t, b.Unregister(s))
	assert.Equal(t, 0, b.Count())
	assert.Equal(t, 1, s.closeCount())
}

func TestUnregister_DuringBroadcast(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	s1, s2 := newFake("s1"), newFake("s2")
	s1.onSend = func() { b.Unregister(s2) }
	b.Register(s1)
	b.Register(s2)

	done := make(chan int, 1)
	go func() { done <- b.Broadcast(models.NewWeightUpdate("d", 1, false)) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast deadlocked while unregistering")
	}
	assert.Equal(t, 1, b.Count())
	// 快照在遍历前取得，s2 本轮仍然会收到
	assert.Len(t, s2.received(), 1)
}

func TestPublish_DeliversInOrder(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	s := newFake("s1")
	b.Register(s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)

	const total = 100
	var ids []string
	for i := 0; i < total; i++ {
		msg := models.NewWeightUpdate(fmt.Sprintf("d%d", i), float64(i), false)
		ids = append(ids, msg.MessageID)
		require.True(t, b.Publish(msg))
	}

	require.Eventually(t, func() bool { return len(s.received()) == total }, 2*time.Second, 5*time.Millisecond)

	for i, frame := range s.received() {
		var m models.BroadcastMessage
		require.NoError(t, json.Unmarshal(frame, &m))
		assert.Equal(t, ids[i], m.MessageID)
	}
}

func TestStop_DrainsBacklog(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	s := newFake("s1")
	b.Register(s)
	b.Start(context.Background())

	for i := 0; i < 20; i++ {
		b.Publish(models.NewWeightUpdate("d", float64(i), false))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Stop(ctx))

	assert.Len(t, s.received(), 20)
	assert.False(t, b.Publish(models.NewWeightUpdate("d", 1, false)), "停止后不再接收")
	assert.Equal(t, 0, b.Pending())
}

func TestStop_WithoutStart(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	require.NoError(t, b.Stop(context.Background()))
	require.NoError(t, b.Stop(context.Background()))
}

func TestCloseAll(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	subs := []*fakeSubscriber{newFake("a"), newFake("b"), newFake("c")}
	for _, s := range subs {
		b.Register(s)
	}

	b.CloseAll()

	assert.Equal(t, 0, b.Count())
	for _, s := range subs {
		assert.Equal(t, 1, s.closeCount())
	}
}

func TestConcurrentRegisterAndBroadcast(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s := newFake(fmt.Sprintf("s%d", i))
			b.Register(s)
			if i%2 == 0 {
				b.Unregister(s)
			}
		}(i)
		go func() {
			defer wg.Done()
			b.Broadcast(models.NewWeightUpdate("d", 1, false))
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, b.Count())
}
