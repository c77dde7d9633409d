package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType 广播消息类型
type MessageType string

const (
	MessageTypeCartUpdate   MessageType = "cart_update"
	MessageTypeWeightUpdate MessageType = "weight_update"
	MessageTypePong         MessageType = "pong"
)

// CartAction 购物车变更动作
type CartAction string

const (
	CartActionAdd    CartAction = "add"
	CartActionUpdate CartAction = "update"
	CartActionRemove CartAction = "remove"
)

// BroadcastMessage 推送给实时订阅者的消息
// 构造后不再修改，序列化一次后发给所有订阅者
type BroadcastMessage struct {
	Type      MessageType `json:"type"`
	MessageID string      `json:"message_id"`
	Timestamp time.Time   `json:"timestamp"`

	// CartUpdate
	UserID    string     `json:"user_id,omitempty"`
	Action    CartAction `json:"action,omitempty"`
	Item      *CartItem  `json:"item,omitempty"`
	ProductID string     `json:"product_id,omitempty"`

	// WeightUpdate
	DeviceID string   `json:"device_id,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
	Stable   *bool    `json:"stable,omitempty"`
}

// NewCartUpdate 构造购物车变更消息
// add/update 携带完整商品行，remove 只携带 product_id
func NewCartUpdate(userID string, action CartAction, item CartItem) BroadcastMessage {
	msg := BroadcastMessage{
		Type:      MessageTypeCartUpdate,
		MessageID: uuid.NewString(),
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Action:    action,
	}
	if action == CartActionRemove {
		msg.ProductID = item.ProductID
	} else {
		it := item
		msg.Item = &it
	}
	return msg
}

// NewWeightUpdate 构造称重变更消息
func NewWeightUpdate(deviceID string, weight float64, stable bool) BroadcastMessage {
	return BroadcastMessage{
		Type:      MessageTypeWeightUpdate,
		MessageID: uuid.NewString(),
		Timestamp: time.Now().UTC(),
		DeviceID:  deviceID,
		Weight:    &weight,
		Stable:    &stable,
	}
}
