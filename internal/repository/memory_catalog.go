package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Sarthak207/FlexiCart/internal/models"
)

// DefaultProducts 扫码终端内置的商品表
func DefaultProducts() []models.Product {
	return []models.Product{
		{ProductID: "1", Name: "Red Apples", Price: 2.99, Weight: 150, Category: "fruits", Brand: "Fresh Farm", Barcode: "000000000000", RFIDCode: "RF001"},
		{ProductID: "2", Name: "Whole Wheat Bread", Price: 1.99, Weight: 400, Category: "bakery", Brand: "Artisan Bakery", Barcode: "000000000001", RFIDCode: "RF002"},
		{ProductID: "3", Name: "Fresh Milk", Price: 3.49, Weight: 1000, Category: "dairy", Brand: "Farm Fresh", Barcode: "000000000002", RFIDCode: "RF003"},
		{ProductID: "4", Name: "Bananas", Price: 1.29, Weight: 120, Category: "fruits", Brand: "Tropical Farms", Barcode: "000000000003", RFIDCode: "RF004"},
		{ProductID: "5", Name: "Cheddar Cheese", Price: 4.99, Weight: 250, Category: "dairy", Brand: "Artisan Cheese", Barcode: "000000000004", RFIDCode: "RF005"},
		{ProductID: "6", Name: "Croissants", Price: 3.99, Weight: 180, Category: "bakery", Brand: "French Bakery", Barcode: "000000000005", RFIDCode: "RF006"},
		{ProductID: "7", Name: "Orange Juice", Price: 2.79, Weight: 950, Category: "beverages", Brand: "Pure Orange", Barcode: "000000000006", RFIDCode: "RF007"},
		{ProductID: "8", Name: "Chicken Breast", Price: 7.99, Weight: 450, Category: "meat", Brand: "Premium Poultry", Barcode: "000000000007", RFIDCode: "RF008"},
		{ProductID: "9", Name: "Test Product", Price: 1.00, Weight: 100, Category: "test", Brand: "Test Brand", Barcode: "123456789012"},
		{ProductID: "10", Name: "Demo Item", Price: 5.00, Weight: 200, Category: "demo", Brand: "Demo Co", Barcode: "1234567890123"},
	}
}

// DefaultCameraLabels 视觉识别标签 -> product_id
func DefaultCameraLabels() map[string]string {
	return map[string]string{
		"apple":     "1",
		"bread":     "2",
		"milk":      "3",
		"banana":    "4",
		"cheese":    "5",
		"croissant": "6",
		"orange":    "7",
		"chicken":   "8",
	}
}

// MemoryCatalog 内存商品目录，未启用数据库时使用
type MemoryCatalog struct {
	mu     sync.RWMutex
	byID   map[string]models.Product
	byCode map[string]string // 条码 / RFID / 视觉标签 -> product_id
}

// NewMemoryCatalog 创建内存目录；labels 可以为 nil
func NewMemoryCatalog(products []models.Product, labels map[string]string) *MemoryCatalog {
	c := &MemoryCatalog{
		byID:   make(map[string]models.Product, len(products)),
		byCode: make(map[string]string, len(products)*2+len(labels)),
	}
	for _, p := range products {
		c.Put(p)
	}
	for label, id := range labels {
		c.byCode[strings.ToLower(label)] = id
	}
	return c
}

// NewDefaultMemoryCatalog 使用内置商品表
func NewDefaultMemoryCatalog() *MemoryCatalog {
	return NewMemoryCatalog(DefaultProducts(), DefaultCameraLabels())
}

// Put 新增或覆盖商品
func (c *MemoryCatalog) Put(p models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[p.ProductID] = p
	if p.Barcode != "" {
		c.byCode[p.Barcode] = p.ProductID
	}
	if p.RFIDCode != "" {
		c.byCode[p.RFIDCode] = p.ProductID
	}
}

func (c *MemoryCatalog) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", models.ErrNotFound, productID)
	}
	return &p, nil
}

func (c *MemoryCatalog) FindByCode(ctx context.Context, code string) (*models.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.byID[code]; ok {
		return &p, nil
	}
	id, ok := c.byCode[code]
	if !ok {
		id, ok = c.byCode[strings.ToLower(code)]
	}
	if ok {
		if p, ok := c.byID[id]; ok {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: product code %s", models.ErrNotFound, code)
}
