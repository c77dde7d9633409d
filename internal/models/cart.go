package models

import "time"

// ScanType 扫码来源
type ScanType string

const (
	ScanTypeBarcode ScanType = "barcode"
	ScanTypeCamera  ScanType = "camera"
	ScanTypeRFID    ScanType = "rfid"
	ScanTypeManual  ScanType = "manual"
)

// Valid 是否为已知的扫码来源
func (s ScanType) Valid() bool {
	switch s {
	case ScanTypeBarcode, ScanTypeCamera, ScanTypeRFID, ScanTypeManual:
		return true
	}
	return false
}

// MaxItemQuantity 单个商品行的数量上限
const MaxItemQuantity = 999

// CartItem 购物车商品行（按 product_id 唯一）
type CartItem struct {
	ProductID     string    `json:"product_id"`
	Quantity      int       `json:"quantity"`
	ScanType      ScanType  `json:"scan_type"`
	ScanValue     string    `json:"scan_value"`
	Confidence    *float64  `json:"confidence,omitempty"`
	Name          string    `json:"name,omitempty"`
	UnitPrice     float64   `json:"unit_price,omitempty"`
	UnitWeight    float64   `json:"unit_weight,omitempty"` // 克
	FirstAddedAt  time.Time `json:"first_added_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// Cart 用户购物车视图
type Cart struct {
	UserID         string     `json:"user_id"`
	Items          []CartItem `json:"items"`
	TotalQuantity  int        `json:"total_quantity"`
	TotalPrice     float64    `json:"total_price"`
	ExpectedWeight float64    `json:"expected_weight"` // 按商品单重估算的总重（克）
}

// NewCart 根据商品行计算汇总
func NewCart(userID string, items []CartItem) Cart {
	c := Cart{UserID: userID, Items: items}
	if c.Items == nil {
		c.Items = []CartItem{}
	}
	for _, it := range c.Items {
		c.TotalQuantity += it.Quantity
		c.TotalPrice += float64(it.Quantity) * it.UnitPrice
		c.ExpectedWeight += float64(it.Quantity) * it.UnitWeight
	}
	return c
}

// ScanEvent 外部采集端上报的扫码事件
type ScanEvent struct {
	UserID     string
	ProductID  string
	Quantity   int // <=0 时按 1 处理
	ScanType   ScanType
	ScanValue  string
	Confidence *float64
	ObservedAt time.Time // 零值表示使用服务端时间

	// 条码端附带的商品信息（可选）
	ProductName   string
	ProductPrice  *float64
	ProductWeight *float64
}

// Product 商品目录条目
type Product struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Weight    float64 `json:"weight"` // 克
	Category  string  `json:"category,omitempty"`
	Brand     string  `json:"brand,omitempty"`
	Barcode   string  `json:"barcode,omitempty"`
	RFIDCode  string  `json:"rfid_code,omitempty"`
}
