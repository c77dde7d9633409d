// Package store 购物车与称重状态的内存存储
//
// 两个存储都按 key（user_id / device_id）独立加锁：不同用户、不同设备之间
// 没有全局锁竞争；同一 key 的读写串行执行，读也走同一把锁以免读到合并到一半的状态。
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Sarthak207/FlexiCart/internal/models"
)

type cartEntry struct {
	mu    sync.Mutex
	items []models.CartItem
}

func (e *cartEntry) indexOf(productID string) int {
	for i := range e.items {
		if e.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// CartStore 按用户保存购物车，进程生命周期内有效
type CartStore struct {
	carts sync.Map // user_id -> *cartEntry
	now   func() time.Time
}

// NewCartStore 创建购物车存储
func NewCartStore() *CartStore {
	return &CartStore{now: time.Now}
}

// entry 懒创建用户购物车
func (s *CartStore) entry(userID string) *cartEntry {
	if e, ok := s.carts.Load(userID); ok {
		return e.(*cartEntry)
	}
	e, _ := s.carts.LoadOrStore(userID, &cartEntry{})
	return e.(*cartEntry)
}

func (s *CartStore) lookup(userID string) (*cartEntry, bool) {
	e, ok := s.carts.Load(userID)
	if !ok {
		return nil, false
	}
	return e.(*cartEntry), true
}

// AddItem 加入商品；同 product_id 已存在时合并数量
// item.Quantity<=0 按 1 处理；item.LastUpdatedAt 非零时作为事件时间
// 合并后超过 MaxItemQuantity 时返回 ErrInvalidArgument，购物车不变
func (s *CartStore) AddItem(userID string, item models.CartItem) (models.CartItem, error) {
	at := item.LastUpdatedAt
	if at.IsZero() {
		at = s.now()
	}
	qty := item.Quantity
	if qty <= 0 {
		qty = 1
	}
	if qty > models.MaxItemQuantity {
		return models.CartItem{}, quantityTooLarge(item.ProductID, qty)
	}

	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := e.indexOf(item.ProductID); i >= 0 {
		existing := &e.items[i]
		if existing.Quantity > models.MaxItemQuantity-qty {
			return models.CartItem{}, quantityTooLarge(item.ProductID, existing.Quantity+qty)
		}
		existing.Quantity += qty
		existing.LastUpdatedAt = at
		// 首次加入时没有目录信息的，用后续扫码补齐
		if existing.Name == "" {
			existing.Name = item.Name
		}
		if existing.UnitPrice == 0 {
			existing.UnitPrice = item.UnitPrice
		}
		if existing.UnitWeight == 0 {
			existing.UnitWeight = item.UnitWeight
		}
		return *existing, nil
	}

	item.Quantity = qty
	item.FirstAddedAt = at
	item.LastUpdatedAt = at
	e.items = append(e.items, item)
	return item, nil
}

func quantityTooLarge(productID string, qty int) error {
	return fmt.Errorf("%w: quantity of product %s would be %d, limit is %d",
		models.ErrInvalidArgument, productID, qty, models.MaxItemQuantity)
}

// RemoveItem 删除商品，返回被删除的商品行
func (s *CartStore) RemoveItem(userID, productID string) (models.CartItem, error) {
	e, ok := s.lookup(userID)
	if !ok {
		return models.CartItem{}, fmt.Errorf("%w: user %s has no cart", models.ErrNotFound, userID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexOf(productID)
	if i < 0 {
		return models.CartItem{}, fmt.Errorf("%w: product %s not in cart of user %s", models.ErrNotFound, productID, userID)
	}
	removed := e.items[i]
	e.items = append(e.items[:i], e.items[i+1:]...)
	return removed, nil
}

// SetQuantity 设置商品数量
// quantity 取值 [0, MaxItemQuantity]；0 保留该商品行，删除只能通过 RemoveItem
func (s *CartStore) SetQuantity(userID, productID string, quantity int) (models.CartItem, error) {
	if quantity < 0 || quantity > models.MaxItemQuantity {
		return models.CartItem{}, fmt.Errorf("%w: quantity must be within [0,%d], got %d",
			models.ErrInvalidArgument, models.MaxItemQuantity, quantity)
	}

	e, ok := s.lookup(userID)
	if !ok {
		return models.CartItem{}, fmt.Errorf("%w: user %s has no cart", models.ErrNotFound, userID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexOf(productID)
	if i < 0 {
		return models.CartItem{}, fmt.Errorf("%w: product %s not in cart of user %s", models.ErrNotFound, productID, userID)
	}
	e.items[i].Quantity = quantity
	e.items[i].LastUpdatedAt = s.now()
	return e.items[i], nil
}

// GetCart 读取购物车；未知用户返回空购物车（不会创建）
func (s *CartStore) GetCart(userID string) models.Cart {
	e, ok := s.lookup(userID)
	if !ok {
		return models.NewCart(userID, nil)
	}

	e.mu.Lock()
	items := make([]models.CartItem, len(e.items))
	copy(items, e.items)
	e.mu.Unlock()

	return models.NewCart(userID, items)
}

// Users 已有购物车的用户列表（排序）
func (s *CartStore) Users() []string {
	var users []string
	s.carts.Range(func(k, _ any) bool {
		users = append(users, k.(string))
		return true
	})
	sort.Strings(users)
	return users
}
