package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/internal/models"
	"github.com/Sarthak207/FlexiCart/internal/repository"
)

// Scenario 一次购物过程：依次扫码放入商品，每放入一件称重端连续上报读数
type Scenario struct {
	UserID   string
	DeviceID string
	Products []models.Product

	// RepeatAfter 再次扫描第一件商品前的等待，应大于服务端去重窗口
	RepeatAfter time.Duration
	// SamplesPerItem 每放入一件商品上报的读数个数
	SamplesPerItem int
	SampleInterval time.Duration
	// Noise 读数噪声幅度（克）
	Noise float64
	Seed  int64
}

// DefaultScenario 使用内置商品表的前 n 件商品
func DefaultScenario(userID, deviceID string, n int) Scenario {
	products := repository.DefaultProducts()
	if n > 0 && n < len(products) {
		products = products[:n]
	}
	return Scenario{
		UserID:         userID,
		DeviceID:       deviceID,
		Products:       products,
		RepeatAfter:    2500 * time.Millisecond,
		SamplesPerItem: 8,
		SampleInterval: 100 * time.Millisecond,
		Noise:          0.8,
		Seed:           time.Now().UnixNano(),
	}
}

// Report 执行结果
type Report struct {
	Added       int
	Duplicates  int
	Cart        models.Cart
	FinalWeight models.WeightState
}

// scanTypes 依次轮换的扫码方式
var scanTypes = []models.ScanType{models.ScanTypeBarcode, models.ScanTypeRFID, models.ScanTypeCamera}

// scanFor 选择扫码方式和 scan_value；商品没有对应编码时退回条码，再退回手动输入
func scanFor(i int, p models.Product) (models.ScanType, string, *float64) {
	switch scanTypes[i%len(scanTypes)] {
	case models.ScanTypeRFID:
		if p.RFIDCode != "" {
			return models.ScanTypeRFID, p.RFIDCode, nil
		}
	case models.ScanTypeCamera:
		for label, id := range repository.DefaultCameraLabels() {
			if id == p.ProductID {
				conf := 0.9
				return models.ScanTypeCamera, label, &conf
			}
		}
	}
	if p.Barcode != "" {
		return models.ScanTypeBarcode, p.Barcode, nil
	}
	return models.ScanTypeManual, "manual-" + p.ProductID, nil
}

// Run 执行场景
func (s Scenario) Run(ctx context.Context, c *Client, logger *zap.Logger) (*Report, error) {
	if len(s.Products) == 0 {
		return nil, fmt.Errorf("scenario has no products")
	}
	rng := rand.New(rand.NewSource(s.Seed))
	report := &Report{}
	load := 0.0

	if _, err := c.Tare(ctx, s.DeviceID); err != nil {
		return nil, fmt.Errorf("failed to tare scale: %w", err)
	}

	place := func(i int, p models.Product) error {
		scanType, value, conf := scanFor(i, p)
		res, err := c.Scan(ctx, models.ScanPayload{
			UserID:     s.UserID,
			ProductID:  p.ProductID,
			Quantity:   1,
			ScanType:   scanType,
			ScanValue:  value,
			Confidence: conf,
			Timestamp:  models.EpochTime{Time: time.Now()},
		})
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", p.ProductID, err)
		}
		if res.Status != "added" {
			report.Duplicates++
			logger.Info("Scan rejected as duplicate", zap.String("scan_value", value))
			return nil
		}
		report.Added++
		logger.Info("Scan accepted",
			zap.String("product_id", p.ProductID),
			zap.String("scan_type", string(scanType)),
			zap.Int("quantity", res.Item.Quantity),
		)

		from := load
		load += p.Weight
		state, err := s.streamWeight(ctx, c, rng, from, load)
		if err != nil {
			return err
		}
		report.FinalWeight = state
		return nil
	}

	for i, p := range s.Products {
		if err := place(i, p); err != nil {
			return nil, err
		}
	}

	// 同一件商品立刻再扫一次会被去重，等过窗口后再扫则数量合并
	first := s.Products[0]
	if err := place(0, first); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.RepeatAfter):
	}
	if err := place(0, first); err != nil {
		return nil, err
	}

	cart, err := c.GetCart(ctx, s.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	report.Cart = cart
	return report, nil
}

// streamWeight 模拟放入商品后的读数：先跳变再在目标值附近抖动
func (s Scenario) streamWeight(ctx context.Context, c *Client, rng *rand.Rand, from, to float64) (models.WeightState, error) {
	var state models.WeightState
	n := s.SamplesPerItem
	if n <= 0 {
		n = 8
	}
	for i := 0; i < n; i++ {
		w := to
		if i == 0 {
			w = from + (to-from)*0.6
		}
		w += (rng.Float64()*2 - 1) * s.Noise

		var err error
		state, err = c.SendWeight(ctx, models.WeightPayload{
			DeviceID:  s.DeviceID,
			Weight:    &w,
			Timestamp: models.EpochTime{Time: time.Now()},
			Reason:    "periodic",
		})
		if err != nil {
			return state, fmt.Errorf("failed to send weight: %w", err)
		}
		if s.SampleInterval > 0 {
			select {
			case <-ctx.Done():
				return state, ctx.Err()
			case <-time.After(s.SampleInterval):
			}
		}
	}
	return state, nil
}
