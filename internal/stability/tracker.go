// Package stability 称重稳定性判定
//
// 对单个称重设备的原始读数做指数平滑，并按连续稳定样本数判定"稳定"：
//   - smoothed = (1-alpha)*previous + alpha*raw
//   - |smoothed - previous| < tolerance 时 streak+1，否则清零
//   - streak >= requiredSamples 视为稳定，上升沿锁存 stableWeight
//   - 与上次广播值相差超过 significantChange 或出现稳定性跳变时需要广播
package stability

import (
	"math"
	"time"
)

// Params 稳定性判定参数
type Params struct {
	Alpha             float64 // 平滑系数
	Tolerance         float64 // 稳定容差（克）
	RequiredSamples   int     // 连续稳定样本数
	SignificantChange float64 // 广播阈值（克）
}

// DefaultParams 默认参数（与称重固件一致）
func DefaultParams() Params {
	return Params{
		Alpha:             0.3,
		Tolerance:         5.0,
		RequiredSamples:   5,
		SignificantChange: 50.0,
	}
}

// withDefaults 非法参数回退到默认值
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Alpha <= 0 || p.Alpha > 1 {
		p.Alpha = d.Alpha
	}
	if p.Tolerance <= 0 {
		p.Tolerance = d.Tolerance
	}
	if p.RequiredSamples <= 0 {
		p.RequiredSamples = d.RequiredSamples
	}
	if p.SignificantChange <= 0 {
		p.SignificantChange = d.SignificantChange
	}
	return p
}

// Result 单次观测结果
type Result struct {
	Smoothed        float64
	BecameStable    bool
	BecameUnstable  bool
	ShouldBroadcast bool
}

// Tracker 单设备的稳定性状态机，不支持并发调用，由调用方加锁
type Tracker struct {
	params Params

	seeded              bool
	smoothed            float64
	previousSmoothed    float64
	streak              int
	stable              bool
	stableWeight        float64
	lastBroadcastWeight float64
	samples             int64
	updatedAt           time.Time
}

// NewTracker 创建状态机
func NewTracker(params Params) *Tracker {
	return &Tracker{params: params.withDefaults()}
}

// Observe 输入一个原始读数
// 设备的第一个读数直接作为平滑起点
func (t *Tracker) Observe(raw float64, now time.Time) Result {
	if !t.seeded {
		t.smoothed = raw
		t.seeded = true
	}

	previous := t.smoothed
	smoothed := (1-t.params.Alpha)*previous + t.params.Alpha*raw
	delta := math.Abs(smoothed - previous)

	if delta < t.params.Tolerance {
		t.streak++
	} else {
		t.streak = 0
	}

	wasStable := t.stable
	t.stable = t.streak >= t.params.RequiredSamples

	res := Result{
		Smoothed:       smoothed,
		BecameStable:   t.stable && !wasStable,
		BecameUnstable: !t.stable && wasStable,
	}
	if res.BecameStable {
		t.stableWeight = smoothed
	}

	if math.Abs(smoothed-t.lastBroadcastWeight) > t.params.SignificantChange ||
		res.BecameStable || res.BecameUnstable {
		res.ShouldBroadcast = true
		t.lastBroadcastWeight = smoothed
	}

	t.previousSmoothed = previous
	t.smoothed = smoothed
	t.samples++
	t.updatedAt = now
	return res
}

// Tare 去皮：状态归零，下一个读数从 0 开始平滑
func (t *Tracker) Tare(now time.Time) {
	t.seeded = true
	t.smoothed = 0
	t.previousSmoothed = 0
	t.streak = 0
	t.stable = false
	t.stableWeight = 0
	t.lastBroadcastWeight = 0
	t.updatedAt = now
}

// Snapshot 当前状态
type Snapshot struct {
	Smoothed            float64
	PreviousSmoothed    float64
	Streak              int
	Stable              bool
	StableWeight        float64
	LastBroadcastWeight float64
	Samples             int64
	UpdatedAt           time.Time
}

// Snapshot 导出当前状态
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Smoothed:            t.smoothed,
		PreviousSmoothed:    t.previousSmoothed,
		Streak:              t.streak,
		Stable:              t.stable,
		StableWeight:        t.stableWeight,
		LastBroadcastWeight: t.lastBroadcastWeight,
		Samples:             t.samples,
		UpdatedAt:           t.updatedAt,
	}
}
