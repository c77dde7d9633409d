package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	mqttcommon "github.com/Sarthak207/FlexiCart/flexi-common/mqtt"
	"github.com/Sarthak207/FlexiCart/internal/config"
	"github.com/Sarthak207/FlexiCart/internal/models"
)

// Ingestor 接收设备事件
type Ingestor interface {
	IngestScan(ctx context.Context, ev models.ScanEvent) (models.CartItem, error)
	IngestWeight(ctx context.Context, reading models.WeightReading) (models.WeightState, error)
}

// MQTTSubscriber MQTT 订阅接口（*mqttcommon.Client 实现）
type MQTTSubscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// MQTTConsumer 订阅扫码端和称重端的 MQTT 主题
type MQTTConsumer struct {
	config     *config.Config
	mqttClient MQTTSubscriber
	ingestor   Ingestor
	logger     *zap.Logger
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(cfg *config.Config, mqttClient MQTTSubscriber, ingestor Ingestor, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		ingestor:   ingestor,
		logger:     logger,
	}
}

// Start 订阅主题后立即返回
func (c *MQTTConsumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.config.Topics.Scan, c.config.MQTT.QoS, c.handleScan); err != nil {
		return fmt.Errorf("failed to subscribe to scan topic: %w", err)
	}
	if err := c.mqttClient.Subscribe(c.config.Topics.Weight, c.config.MQTT.QoS, c.handleWeight); err != nil {
		_ = c.mqttClient.Unsubscribe(c.config.Topics.Scan)
		return fmt.Errorf("failed to subscribe to weight topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("scan_topic", c.config.Topics.Scan),
		zap.String("weight_topic", c.config.Topics.Weight),
	)
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	if err := c.mqttClient.Unsubscribe(c.config.Topics.Scan, c.config.Topics.Weight); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
		return err
	}
	c.logger.Info("MQTT consumer stopped")
	return nil
}

// deviceFromTopic 主题格式: flexicart/{device_id}/scan
func deviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2]
}

// handleScan 处理扫码消息
func (c *MQTTConsumer) handleScan(topic string, payload []byte) error {
	var p models.ScanPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Error("Failed to unmarshal scan message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal scan message: %w", err)
	}

	item, err := c.ingestor.IngestScan(context.Background(), p.ToEvent())
	if errors.Is(err, models.ErrDuplicateRejected) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan from %s rejected: %w", deviceFromTopic(topic), err)
	}

	c.logger.Debug("Scan ingested from MQTT",
		zap.String("device", deviceFromTopic(topic)),
		zap.String("user_id", p.UserID),
		zap.String("product_id", item.ProductID),
	)
	return nil
}

// handleWeight 处理称重消息；payload 没有 device_id 时取主题中的设备号
func (c *MQTTConsumer) handleWeight(topic string, payload []byte) error {
	var p models.WeightPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Error("Failed to unmarshal weight message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal weight message: %w", err)
	}
	if p.DeviceID == "" {
		p.DeviceID = deviceFromTopic(topic)
	}

	reading, err := p.ToReading()
	if err != nil {
		return fmt.Errorf("weight from %s rejected: %w", p.DeviceID, err)
	}
	if _, err := c.ingestor.IngestWeight(context.Background(), reading); err != nil {
		return fmt.Errorf("weight from %s rejected: %w", p.DeviceID, err)
	}
	return nil
}
