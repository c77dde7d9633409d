package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// EpochTime 采集端上报的时间戳
// 接受 Unix 秒（可带小数）或 RFC3339 字符串；null/缺省为零值
type EpochTime struct {
	time.Time
}

func (t *EpochTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", string(data), err)
	}
	if secs <= 0 {
		t.Time = time.Time{}
		return nil
	}
	whole, frac := math.Modf(secs)
	t.Time = time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC()
	return nil
}

func (t EpochTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(t.UnixNano()) / 1e9)
}

// ScanPayload 扫码上报（HTTP 与 MQTT 共用）
type ScanPayload struct {
	UserID        string    `json:"user_id"`
	ProductID     string    `json:"product_id"`
	Quantity      int       `json:"quantity,omitempty"`
	ScanType      ScanType  `json:"scan_type"`
	ScanValue     string    `json:"scan_value"`
	Confidence    *float64  `json:"confidence,omitempty"`
	Timestamp     EpochTime `json:"timestamp"`
	ProductName   string    `json:"product_name,omitempty"`
	ProductPrice  *float64  `json:"product_price,omitempty"`
	ProductWeight *float64  `json:"product_weight,omitempty"`
}

// ToEvent 转换为扫码事件
func (p ScanPayload) ToEvent() ScanEvent {
	return ScanEvent{
		UserID:        p.UserID,
		ProductID:     p.ProductID,
		Quantity:      p.Quantity,
		ScanType:      p.ScanType,
		ScanValue:     p.ScanValue,
		Confidence:    p.Confidence,
		ObservedAt:    p.Timestamp.Time,
		ProductName:   p.ProductName,
		ProductPrice:  p.ProductPrice,
		ProductWeight: p.ProductWeight,
	}
}

// WeightPayload 称重上报
// stable/reason 仅作记录，稳定性由服务端重新判定
type WeightPayload struct {
	DeviceID  string    `json:"device_id"`
	Weight    *float64  `json:"weight"`
	Stable    bool      `json:"stable"`
	Timestamp EpochTime `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

// ToReading 转换为称重读数；weight 缺失返回 ErrInvalidArgument
func (p WeightPayload) ToReading() (WeightReading, error) {
	if p.Weight == nil {
		return WeightReading{}, fmt.Errorf("%w: weight is required", ErrInvalidArgument)
	}
	return WeightReading{
		DeviceID:       p.DeviceID,
		RawWeight:      *p.Weight,
		ObservedAt:     p.Timestamp.Time,
		ReportedStable: p.Stable,
		Reason:         p.Reason,
	}, nil
}
