package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqttcommon "github.com/Sarthak207/FlexiCart/flexi-common/mqtt"
	"github.com/Sarthak207/FlexiCart/internal/config"
	"github.com/Sarthak207/FlexiCart/internal/models"
)

type fakeMQTT struct {
	handlers     map[string]mqttcommon.MessageHandler
	unsubscribed []string
	failTopic    string
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{handlers: map[string]mqttcommon.MessageHandler{}}
}

func (f *fakeMQTT) Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error {
	if topic == f.failTopic {
		return errors.New("not authorized")
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeMQTT) Unsubscribe(topics ...string) error {
	f.unsubscribed = append(f.unsubscribed, topics...)
	return nil
}

type fakeIngestor struct {
	mu       sync.Mutex
	scans    []models.ScanEvent
	readings []models.WeightReading
	scanErr  error
}

func (f *fakeIngestor) IngestScan(ctx context.Context, ev models.ScanEvent) (models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, ev)
	if f.scanErr != nil {
		return models.CartItem{}, f.scanErr
	}
	return models.CartItem{ProductID: ev.ProductID, Quantity: 1}, nil
}

func (f *fakeIngestor) IngestWeight(ctx context.Context, r models.WeightReading) (models.WeightState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = append(f.readings, r)
	return models.WeightState{DeviceID: r.DeviceID}, nil
}

func testConfig(t *testing.T) *config.Config {
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestMQTTConsumer_StartSubscribesBothTopics(t *testing.T) {
	cfg := testConfig(t)
	mq := newFakeMQTT()
	c := NewMQTTConsumer(cfg, mq, &fakeIngestor{}, zap.NewNop())

	require.NoError(t, c.Start(context.Background()))
	assert.Contains(t, mq.handlers, cfg.Topics.Scan)
	assert.Contains(t, mq.handlers, cfg.Topics.Weight)

	require.NoError(t, c.Stop(context.Background()))
	assert.ElementsMatch(t, []string{cfg.Topics.Scan, cfg.Topics.Weight}, mq.unsubscribed)
}

func TestMQTTConsumer_StartFailureRollsBack(t *testing.T) {
	cfg := testConfig(t)
	mq := newFakeMQTT()
	mq.failTopic = cfg.Topics.Weight
	c := NewMQTTConsumer(cfg, mq, &fakeIngestor{}, zap.NewNop())

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{cfg.Topics.Scan}, mq.unsubscribed)
}

func TestHandleScan(t *testing.T) {
	ing := &fakeIngestor{}
	c := NewMQTTConsumer(testConfig(t), newFakeMQTT(), ing, zap.NewNop())

	err := c.handleScan("flexicart/cart-7/scan", []byte(`{
		"user_id": "u1",
		"product_id": "4",
		"quantity": 1,
		"scan_type": "rfid",
		"scan_value": "RF004",
		"timestamp": 1714557600.25
	}`))
	require.NoError(t, err)

	require.Len(t, ing.scans, 1)
	ev := ing.scans[0]
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, models.ScanTypeRFID, ev.ScanType)
	assert.Equal(t, "RF004", ev.ScanValue)
	assert.Equal(t, int64(1714557600), ev.ObservedAt.Unix())
}

func TestHandleScan_DuplicateIsNotAnError(t *testing.T) {
	ing := &fakeIngestor{scanErr: models.ErrDuplicateRejected}
	c := NewMQTTConsumer(testConfig(t), newFakeMQTT(), ing, zap.NewNop())

	err := c.handleScan("flexicart/cart-7/scan", []byte(`{"user_id":"u1","product_id":"1","scan_type":"barcode","scan_value":"x"}`))
	assert.NoError(t, err)
}

func TestHandleScan_Errors(t *testing.T) {
	ing := &fakeIngestor{}
	c := NewMQTTConsumer(testConfig(t), newFakeMQTT(), ing, zap.NewNop())

	assert.Error(t, c.handleScan("flexicart/cart-7/scan", []byte(`{not json`)))
	assert.Empty(t, ing.scans)

	ing.scanErr = models.ErrInvalidArgument
	err := c.handleScan("flexicart/cart-7/scan", []byte(`{"user_id":"u1"}`))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestHandleWeight_DeviceFromTopic(t *testing.T) {
	ing := &fakeIngestor{}
	c := NewMQTTConsumer(testConfig(t), newFakeMQTT(), ing, zap.NewNop())

	require.NoError(t, c.handleWeight("flexicart/scale-9/weight", []byte(`{"weight":152.5,"stable":false,"reason":"periodic"}`)))
	require.NoError(t, c.handleWeight("flexicart/scale-9/weight", []byte(`{"device_id":"esp32-1","weight":10}`)))

	require.Len(t, ing.readings, 2)
	assert.Equal(t, "scale-9", ing.readings[0].DeviceID)
	assert.Equal(t, 152.5, ing.readings[0].RawWeight)
	assert.Equal(t, "periodic", ing.readings[0].Reason)
	assert.Equal(t, "esp32-1", ing.readings[1].DeviceID)
}

func TestHandleWeight_Errors(t *testing.T) {
	ing := &fakeIngestor{}
	c := NewMQTTConsumer(testConfig(t), newFakeMQTT(), ing, zap.NewNop())

	assert.Error(t, c.handleWeight("flexicart/scale-9/weight", []byte(`[]`)))
	err := c.handleWeight("flexicart/scale-9/weight", []byte(`{"stable":true}`))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	assert.Empty(t, ing.readings)
}

func TestDeviceFromTopic(t *testing.T) {
	assert.Equal(t, "cart-1", deviceFromTopic("flexicart/cart-1/scan"))
	assert.Equal(t, "", deviceFromTopic("scan"))
}
