// Package dispatcher 把扫码、称重和购物车操作路由到对应的存储，并发布广播消息
//
// Dispatcher 不持有状态；所有状态在 CartStore、WeightStore 和 Deduplicator 中。
// 广播只入队，不会阻塞在订阅者 I/O 上。
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/internal/dedup"
	"github.com/Sarthak207/FlexiCart/internal/models"
	"github.com/Sarthak207/FlexiCart/internal/repository"
	"github.com/Sarthak207/FlexiCart/internal/store"
)

// Publisher 广播入队
type Publisher interface {
	Publish(msg models.BroadcastMessage) bool
}

// Dispatcher 事件分发
type Dispatcher struct {
	carts     *store.CartStore
	weights   *store.WeightStore
	dedup     *dedup.Deduplicator
	catalog   repository.ProductCatalog // 可以为 nil
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewDispatcher 创建 Dispatcher
func NewDispatcher(
	carts *store.CartStore,
	weights *store.WeightStore,
	deduplicator *dedup.Deduplicator,
	catalog repository.ProductCatalog,
	publisher Publisher,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		carts:     carts,
		weights:   weights,
		dedup:     deduplicator,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// IngestScan 处理一次扫码
// 校验 -> 去重 -> 加入购物车 -> 广播 CartUpdate(add)
// 校验失败的事件不占用去重窗口
func (d *Dispatcher) IngestScan(ctx context.Context, ev models.ScanEvent) (models.CartItem, error) {
	if ev.UserID == "" {
		return models.CartItem{}, invalid("user_id is required")
	}
	if ev.ScanValue == "" {
		return models.CartItem{}, invalid("scan_value is required")
	}
	if !ev.ScanType.Valid() {
		return models.CartItem{}, invalid("unsupported scan_type %q", ev.ScanType)
	}
	if ev.Quantity < 0 || ev.Quantity > models.MaxItemQuantity {
		return models.CartItem{}, invalid("quantity must be within [1,%d], got %d", models.MaxItemQuantity, ev.Quantity)
	}
	if ev.Confidence != nil && (*ev.Confidence < 0 || *ev.Confidence > 1) {
		return models.CartItem{}, invalid("confidence must be within [0,1], got %v", *ev.Confidence)
	}

	product := d.lookup(ctx, ev.ProductID, ev.ScanValue)
	productID := ev.ProductID
	if productID == "" && product != nil {
		productID = product.ProductID
	}
	if productID == "" {
		return models.CartItem{}, invalid("product_id is required for scan value %q", ev.ScanValue)
	}

	// 冷却窗口按服务端接收时间计算，各设备时钟可能不一致
	received := d.now()
	at := ev.ObservedAt
	if at.IsZero() {
		at = received
	}
	if !d.dedup.ShouldAccept(ev.ScanValue, received) {
		d.logger.Debug("Duplicate scan rejected",
			zap.String("user_id", ev.UserID),
			zap.String("scan_value", ev.ScanValue),
			zap.String("scan_type", string(ev.ScanType)),
		)
		return models.CartItem{}, fmt.Errorf("%w: scan value %s", models.ErrDuplicateRejected, ev.ScanValue)
	}

	item := models.CartItem{
		ProductID:     productID,
		Quantity:      ev.Quantity,
		ScanType:      ev.ScanType,
		ScanValue:     ev.ScanValue,
		Confidence:    ev.Confidence,
		LastUpdatedAt: at,
	}
	enrich(&item, ev, product)

	added, err := d.carts.AddItem(ev.UserID, item)
	if err != nil {
		return models.CartItem{}, err
	}
	d.publisher.Publish(models.NewCartUpdate(ev.UserID, models.CartActionAdd, added))

	d.logger.Info("Scan accepted",
		zap.String("user_id", ev.UserID),
		zap.String("product_id", added.ProductID),
		zap.String("scan_type", string(ev.ScanType)),
		zap.Int("quantity", added.Quantity),
	)
	return added, nil
}

// lookup 目录查询；失败只记录日志，不影响入车
func (d *Dispatcher) lookup(ctx context.Context, productID, scanValue string) *models.Product {
	if d.catalog == nil {
		return nil
	}
	var (
		p   *models.Product
		err error
	)
	if productID != "" {
		p, err = d.catalog.GetProduct(ctx, productID)
	} else {
		p, err = d.catalog.FindByCode(ctx, scanValue)
	}
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			d.logger.Warn("Product catalog lookup failed",
				zap.String("product_id", productID),
				zap.String("scan_value", scanValue),
				zap.Error(err),
			)
		}
		return nil
	}
	return p
}

// enrich 事件自带的商品信息优先，其次目录
func enrich(item *models.CartItem, ev models.ScanEvent, p *models.Product) {
	if p != nil {
		item.Name = p.Name
		item.UnitPrice = p.Price
		item.UnitWeight = p.Weight
	}
	if ev.ProductName != "" {
		item.Name = ev.ProductName
	}
	if ev.ProductPrice != nil {
		item.UnitPrice = *ev.ProductPrice
	}
	if ev.ProductWeight != nil {
		item.UnitWeight = *ev.ProductWeight
	}
}

// IngestWeight 处理一个称重读数，始终返回最新状态
// 只有变化明显或稳定状态翻转时才广播
func (d *Dispatcher) IngestWeight(ctx context.Context, reading models.WeightReading) (models.WeightState, error) {
	if reading.DeviceID == "" {
		return models.WeightState{}, invalid("device_id is required")
	}
	if math.IsNaN(reading.RawWeight) || math.IsInf(reading.RawWeight, 0) {
		return models.WeightState{}, invalid("weight must be a finite number")
	}
	if reading.ObservedAt.IsZero() {
		reading.ObservedAt = d.now()
	}

	state, res := d.weights.Observe(reading)
	if res.BecameStable {
		d.logger.Info("Weight became stable",
			zap.String("device_id", reading.DeviceID),
			zap.Float64("stable_weight", state.StableWeight),
		)
	} else if res.BecameUnstable {
		d.logger.Debug("Weight became unstable",
			zap.String("device_id", reading.DeviceID),
			zap.Float64("smoothed_weight", state.SmoothedWeight),
		)
	}
	if res.ShouldBroadcast {
		d.publisher.Publish(models.NewWeightUpdate(reading.DeviceID, res.Smoothed, state.IsStable))
	}
	return state, nil
}

// TareScale 去皮并广播归零
func (d *Dispatcher) TareScale(ctx context.Context, deviceID string) (models.WeightState, error) {
	if deviceID == "" {
		return models.WeightState{}, invalid("device_id is required")
	}
	state := d.weights.Tare(deviceID)
	d.publisher.Publish(models.NewWeightUpdate(deviceID, 0, false))
	d.logger.Info("Scale tared", zap.String("device_id", deviceID))
	return state, nil
}

// GetWeight 读取设备称重状态
func (d *Dispatcher) GetWeight(deviceID string) (models.WeightState, error) {
	state, ok := d.weights.Get(deviceID)
	if !ok {
		return models.WeightState{}, fmt.Errorf("%w: device %s", models.ErrNotFound, deviceID)
	}
	return state, nil
}

// RemoveFromCart 删除商品；失败时不广播
func (d *Dispatcher) RemoveFromCart(ctx context.Context, userID, productID string) (models.CartItem, error) {
	if userID == "" || productID == "" {
		return models.CartItem{}, invalid("user_id and product_id are required")
	}
	removed, err := d.carts.RemoveItem(userID, productID)
	if err != nil {
		return models.CartItem{}, err
	}
	d.publisher.Publish(models.NewCartUpdate(userID, models.CartActionRemove, removed))
	return removed, nil
}

// UpdateQuantity 修改数量；失败时不广播
func (d *Dispatcher) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (models.CartItem, error) {
	if userID == "" || productID == "" {
		return models.CartItem{}, invalid("user_id and product_id are required")
	}
	updated, err := d.carts.SetQuantity(userID, productID, quantity)
	if err != nil {
		return models.CartItem{}, err
	}
	d.publisher.Publish(models.NewCartUpdate(userID, models.CartActionUpdate, updated))
	return updated, nil
}

// GetCart 读取购物车
func (d *Dispatcher) GetCart(userID string) models.Cart {
	return d.carts.GetCart(userID)
}

// Users 有购物车的用户 id，升序
func (d *Dispatcher) Users() []string {
	return d.carts.Users()
}

// LookupProduct 按 product_id / 条码 / RFID 查询目录
func (d *Dispatcher) LookupProduct(ctx context.Context, code string) (*models.Product, error) {
	if d.catalog == nil {
		return nil, fmt.Errorf("%w: product catalog disabled", models.ErrNotFound)
	}
	return d.catalog.FindByCode(ctx, code)
}
