package store

import (
	"sort"
	"sync"
	"time"

	"github.com/Sarthak207/FlexiCart/internal/models"
	"github.com/Sarthak207/FlexiCart/internal/stability"
)

type weightEntry struct {
	mu             sync.Mutex
	tracker        *stability.Tracker
	reportedStable bool
	reason         string
}

func (e *weightEntry) snapshot(deviceID string) models.WeightState {
	snap := e.tracker.Snapshot()
	return models.WeightState{
		DeviceID:               deviceID,
		SmoothedWeight:         snap.Smoothed,
		PreviousSmoothedWeight: snap.PreviousSmoothed,
		StableStreak:           snap.Streak,
		IsStable:               snap.Stable,
		StableWeight:           snap.StableWeight,
		LastBroadcastWeight:    snap.LastBroadcastWeight,
		Samples:                snap.Samples,
		ReportedStable:         e.reportedStable,
		Reason:                 e.reason,
		UpdatedAt:              snap.UpdatedAt,
	}
}

// WeightStore 按设备保存称重状态，每个设备持有自己的稳定性状态机
type WeightStore struct {
	params  stability.Params
	devices sync.Map // device_id -> *weightEntry
	now     func() time.Time
}

// NewWeightStore 创建称重存储
func NewWeightStore(params stability.Params) *WeightStore {
	return &WeightStore{params: params, now: time.Now}
}

func (s *WeightStore) entry(deviceID string) *weightEntry {
	if e, ok := s.devices.Load(deviceID); ok {
		return e.(*weightEntry)
	}
	e, _ := s.devices.LoadOrStore(deviceID, &weightEntry{tracker: stability.NewTracker(s.params)})
	return e.(*weightEntry)
}

// Observe 输入一个读数，更新设备状态并返回快照与判定结果
// 状态机更新与快照在同一把设备锁内完成
func (s *WeightStore) Observe(reading models.WeightReading) (models.WeightState, stability.Result) {
	at := reading.ObservedAt
	if at.IsZero() {
		at = s.now()
	}

	e := s.entry(reading.DeviceID)
	e.mu.Lock()
	defer e.mu.Unlock()

	res := e.tracker.Observe(reading.RawWeight, at)
	e.reportedStable = reading.ReportedStable
	e.reason = reading.Reason
	return e.snapshot(reading.DeviceID), res
}

// Tare 设备去皮
func (s *WeightStore) Tare(deviceID string) models.WeightState {
	e := s.entry(deviceID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tracker.Tare(s.now())
	e.reportedStable = false
	e.reason = "tare"
	return e.snapshot(deviceID)
}

// Get 读取设备状态
func (s *WeightStore) Get(deviceID string) (models.WeightState, bool) {
	v, ok := s.devices.Load(deviceID)
	if !ok {
		return models.WeightState{}, false
	}
	e := v.(*weightEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(deviceID), true
}

// Devices 已知设备列表（排序）
func (s *WeightStore) Devices() []string {
	var ids []string
	s.devices.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	sort.Strings(ids)
	return ids
}
