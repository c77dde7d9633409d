package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// 事件流条目字段
const (
	FieldData      = "data"
	FieldTimestamp = "timestamp"
)

// AppendEvent 把一条已序列化的事件追加到流
// maxLen > 0 时使用 MAXLEN ~ 近似裁剪
func AppendEvent(ctx context.Context, client *redis.Client, stream string, maxLen int64, data []byte, at time.Time) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			FieldData:      string(data),
			FieldTimestamp: strconv.FormatInt(at.UnixMilli(), 10),
		},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return client.XAdd(ctx, args).Result()
}

// StreamEvent 流中的一条事件
type StreamEvent struct {
	ID   string
	Data []byte
	At   time.Time
}

// RecentEvents 按时间倒序返回最近 count 条事件
func RecentEvents(ctx context.Context, client *redis.Client, stream string, count int64) ([]StreamEvent, error) {
	msgs, err := client.XRevRangeN(ctx, stream, "+", "-", count).Result()
	if err != nil {
		return nil, err
	}
	events := make([]StreamEvent, 0, len(msgs))
	for _, m := range msgs {
		ev := StreamEvent{ID: m.ID}
		if s, ok := m.Values[FieldData].(string); ok {
			ev.Data = []byte(s)
		}
		if s, ok := m.Values[FieldTimestamp].(string); ok {
			if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
				ev.At = time.UnixMilli(ms)
			}
		}
		events = append(events, ev)
	}
	return events, nil
}
