package models

import "time"

// WeightReading 称重传感器上报的原始读数
type WeightReading struct {
	DeviceID   string
	RawWeight  float64
	ObservedAt time.Time

	// 设备自报的稳定标志与原因，仅作记录，不参与稳定性判定
	ReportedStable bool
	Reason         string
}

// WeightState 设备称重状态快照
type WeightState struct {
	DeviceID               string    `json:"device_id"`
	SmoothedWeight         float64   `json:"smoothed_weight"`
	PreviousSmoothedWeight float64   `json:"previous_smoothed_weight"`
	StableStreak           int       `json:"stable_streak"`
	IsStable               bool      `json:"is_stable"`
	StableWeight           float64   `json:"stable_weight"`
	LastBroadcastWeight    float64   `json:"last_broadcast_weight"`
	Samples                int64     `json:"samples"`
	ReportedStable         bool      `json:"reported_stable"`
	Reason                 string    `json:"reason,omitempty"`
	UpdatedAt              time.Time `json:"updated_at"`
}
