// Package dedup 扫码去重
//
// 同一次物理扫码常被连续视频帧或 RFID 轮询重复上报，冷却窗口内相同的
// scan_value 只接受第一次。窗口内真实的重复购买同样会被丢弃。
package dedup

import (
	"sync"
	"time"
)

// DefaultCooldown 默认冷却窗口
const DefaultCooldown = 2 * time.Second

// Deduplicator 基于时间窗口的 scan_value 集合
// scan_value 不按用户分区，整个 map 共用一把锁
type Deduplicator struct {
	mu       sync.Mutex
	cooldown time.Duration
	seen     map[string]time.Time
}

// New 创建去重器，cooldown<=0 时使用默认值
func New(cooldown time.Duration) *Deduplicator {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Deduplicator{
		cooldown: cooldown,
		seen:     make(map[string]time.Time),
	}
}

// ShouldAccept 判断扫码是否应被接受
// 先清理过期条目，仍存在则拒绝；否则记录 now 并接受
func (d *Deduplicator) ShouldAccept(scanValue string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.purge(now)

	if _, ok := d.seen[scanValue]; ok {
		return false
	}
	d.seen[scanValue] = now
	return true
}

// Len 当前窗口内的条目数
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Cooldown 冷却窗口
func (d *Deduplicator) Cooldown() time.Duration {
	return d.cooldown
}

func (d *Deduplicator) purge(now time.Time) {
	for value, seenAt := range d.seen {
		if now.Sub(seenAt) >= d.cooldown {
			delete(d.seen, value)
		}
	}
}
