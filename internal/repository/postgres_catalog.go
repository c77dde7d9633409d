package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/flexi-common/database"
	"github.com/Sarthak207/FlexiCart/internal/models"
)

const productColumns = `product_id, name, price, weight_grams,
	COALESCE(category, ''), COALESCE(brand, ''), COALESCE(barcode, ''), COALESCE(rfid_code, '')`

// PostgresCatalog products 表
type PostgresCatalog struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresCatalog(db *sql.DB, logger *zap.Logger) *PostgresCatalog {
	return &PostgresCatalog{db: db, logger: logger}
}

const productsSchema = `
	CREATE TABLE IF NOT EXISTS products (
		product_id   TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		price        NUMERIC(10, 2) NOT NULL DEFAULT 0,
		weight_grams DOUBLE PRECISION NOT NULL DEFAULT 0,
		category     TEXT,
		brand        TEXT,
		barcode      TEXT UNIQUE,
		rfid_code    TEXT UNIQUE
	)
`

// EnsureSchema 建表（已存在则跳过）
func (r *PostgresCatalog) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, productsSchema); err != nil {
		return fmt.Errorf("failed to create products table: %w", err)
	}
	return nil
}

func (r *PostgresCatalog) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE product_id = $1`
	return r.queryOne(ctx, query, productID)
}

// FindByCode product_id 优先，其次条码、RFID
func (r *PostgresCatalog) FindByCode(ctx context.Context, code string) (*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE product_id = $1 OR barcode = $1 OR rfid_code = $1
		ORDER BY (product_id = $1) DESC
		LIMIT 1
	`
	return r.queryOne(ctx, query, code)
}

func (r *PostgresCatalog) queryOne(ctx context.Context, query, arg string) (*models.Product, error) {
	var p models.Product
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&p.ProductID, &p.Name, &p.Price, &p.Weight,
		&p.Category, &p.Brand, &p.Barcode, &p.RFIDCode,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", models.ErrNotFound, arg)
	}
	if err != nil {
		r.logger.Error("Failed to query product", zap.String("code", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return &p, nil
}

// UpsertProduct 写入或更新商品（初始化目录数据用）
func (r *PostgresCatalog) UpsertProduct(ctx context.Context, p models.Product) error {
	query := `
		INSERT INTO products (product_id, name, price, weight_grams, category, brand, barcode, rfid_code)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))
		ON CONFLICT (product_id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			weight_grams = EXCLUDED.weight_grams,
			category = EXCLUDED.category,
			brand = EXCLUDED.brand,
			barcode = EXCLUDED.barcode,
			rfid_code = EXCLUDED.rfid_code
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ProductID, p.Name, p.Price, p.Weight, p.Category, p.Brand, p.Barcode, p.RFIDCode)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.ProductID, err)
	}
	return nil
}

// SeedProducts 批量写入，单事务
func (r *PostgresCatalog) SeedProducts(ctx context.Context, products []models.Product) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO products (product_id, name, price, weight_grams, category, brand, barcode, rfid_code)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))
			ON CONFLICT (product_id) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare seed statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range products {
			if _, err := stmt.ExecContext(ctx,
				p.ProductID, p.Name, p.Price, p.Weight, p.Category, p.Brand, p.Barcode, p.RFIDCode); err != nil {
				return fmt.Errorf("failed to seed product %s: %w", p.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Info("Product catalog seeded", zap.Int("count", len(products)))
	return nil
}
