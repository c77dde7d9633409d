package repository

import (
	"context"

	"github.com/Sarthak207/FlexiCart/internal/models"
)

// ProductCatalog 商品目录
// 查不到时返回 models.ErrNotFound；其他错误为存储层错误
type ProductCatalog interface {
	// GetProduct 按 product_id 查询
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	// FindByCode 按 product_id、条码或 RFID 码查询
	FindByCode(ctx context.Context, code string) (*models.Product, error)
}
