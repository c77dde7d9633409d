package store

import (
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarthak207/FlexiCart/internal/models"
)

func mustAdd(t *testing.T, s *CartStore, userID string, item models.CartItem) models.CartItem {
	t.Helper()
	got, err := s.AddItem(userID, item)
	require.NoError(t, err)
	return got
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCartStore_AddItem_NewLine(t *testing.T) {
	s := NewCartStore()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	got := mustAdd(t, s, "u1", models.CartItem{
		ProductID:     "1",
		Quantity:      1,
		ScanType:      models.ScanTypeBarcode,
		ScanValue:     "123456789012",
		LastUpdatedAt: at,
	})

	assert.Equal(t, 1, got.Quantity)
	assert.Equal(t, at, got.FirstAddedAt)
	assert.Equal(t, at, got.LastUpdatedAt)

	cart := s.GetCart("u1")
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "1", cart.Items[0].ProductID)
}

func TestCartStore_AddItem_MergesQuantity(t *testing.T) {
	s := NewCartStore()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(3 * time.Second)

	mustAdd(t, s, "u1", models.CartItem{ProductID: "1", Quantity: 1, LastUpdatedAt: t0})
	got := mustAdd(t, s, "u1", models.CartItem{ProductID: "1", Quantity: 2, LastUpdatedAt: t1})

	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, t0, got.FirstAddedAt)
	assert.Equal(t, t1, got.LastUpdatedAt)

	cart := s.GetCart("u1")
	require.Len(t, cart.Items, 1, "同一商品只能有一行")
	assert.Equal(t, 3, cart.TotalQuantity)
}

func TestCartStore_AddItem_DefaultQuantity(t *testing.T) {
	s := NewCartStore()
	got := mustAdd(t, s, "u1", models.CartItem{ProductID: "1"})
	assert.Equal(t, 1, got.Quantity)
}

func TestCartStore_AddItem_FillsMissingProductInfo(t *testing.T) {
	s := NewCartStore()
	mustAdd(t, s, "u1", models.CartItem{ProductID: "1"})
	got := mustAdd(t, s, "u1", models.CartItem{ProductID: "1", Name: "Milk", UnitPrice: 2.5, UnitWeight: 1000})

	assert.Equal(t, "Milk", got.Name)
	assert.Equal(t, 2.5, got.UnitPrice)
	assert.Equal(t, 1000.0, got.UnitWeight)
}

func TestCartStore_GetCart_UnknownUser(t *testing.T) {
	s := NewCartStore()

	cart := s.GetCart("ghost")
	assert.Equal(t, "ghost", cart.UserID)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
	assert.Empty(t, s.Users(), "读取不应创建购物车")
}

func TestCartStore_GetCart_ReturnsCopy(t *testing.T) {
	s := NewCartStore()
	mustAdd(t, s, "u1", models.CartItem{ProductID: "1", Quantity: 1})

	cart := s.GetCart("u1")
	cart.Items[0].Quantity = 99

	assert.Equal(t, 1, s.GetCart("u1").Items[0].Quantity)
}

func TestCartStore_UsersAreIsolated(t *testing.T) {
	s := NewCartStore()
	mustAdd(t, s, "u1", models.CartItem{ProductID: "1"})
	mustAdd(t, s, "u2", models.CartItem{ProductID: "2"})

	assert.Equal(t, []string{"u1", "u2"}, s.Users())
	assert.Len(t, s.GetCart("u1").Items, 1)
	assert.Equal(t, "1", s.GetCart("u1").Items[0].ProductID)
	assert.Equal(t, "2", s.GetCart("u2").Items[0].ProductID)
}

func TestCartStore_RemoveItem(t *testing.T) {
	s := NewCartStore()
	mustAdd(t, s, "u1", models.CartItem{ProductID: "1"})
	mustAdd(t, s, "u1", models.CartItem{ProductID: "2"})

	removed, err := s.RemoveItem("u1", "1")
	require.NoError(t, err)
	assert.Equal(t, "1", removed.ProductID)

	cart := s.GetCart("u1")
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "2", cart.Items[0].ProductID)
}

func TestCartStore_RemoveItem_NotFound(t *testing.T) {
	s := NewCartStore()

	_, err := s.RemoveItem("ghost", "1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	mustAdd(t, s, "u1", models.CartItem{ProductID: "1"})
	_, err = s.RemoveItem("u1", "404")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Len(t, s.GetCart("u1").Items, 1)
}

func TestCartStore_SetQuantity(t *testing.T) {
	s := NewCartStore()
	later := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	mustAdd(t, s, "u1", models.CartItem{ProductID: "1", Quantity: 2})
	s.now = fixedClock(later)

	got, err := s.SetQuantity("u1", "1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
	assert.Equal(t, later, got.LastUpdatedAt)

	// 0 保留商品行
	got, err = s.SetQuantity("u1", "1", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
	assert.Len(t, s.GetCart("u1").Items, 1)
}

func TestCartStore_SetQuantity_Errors(t *testing.T) {
	s := NewCartStore()
	mustAdd(t, s, "u1", models.CartItem{ProductID: "1", Quantity: 2})

	_, err := s.SetQuantity("u1", "1", -1)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	assert.Equal(t, 2, s.GetCart("u1").Items[0].Quantity)

	_, err = s.SetQuantity("u1", "404", 1)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = s.SetQuantity("ghost", "1", 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCartStore_AddItem_QuantityLimit(t *testing.T) {
	s := NewCartStore()

	_, err := s.AddItem("u1", models.CartItem{ProductID: "1", Quantity: math.MaxInt})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	assert.Empty(t, s.GetCart("u1").Items)

	mustAdd(t, s, "u1", models.CartItem{ProductID: "1", Quantity: models.MaxItemQuantity - 1, UnitPrice: 2})
	got := mustAdd(t, s, "u1", models.CartItem{ProductID: "1", Quantity: 1})
	assert.Equal(t, models.MaxItemQuantity, got.Quantity)

	// 合并溢出时拒绝，原数量不变
	_, err = s.AddItem("u1", models.CartItem{ProductID: "1", Quantity: 1})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	_, err = s.AddItem("u1", models.CartItem{ProductID: "1", Quantity: models.MaxItemQuantity})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	cart := s.GetCart("u1")
	require.Len(t, cart.Items, 1)
	assert.Equal(t, models.MaxItemQuantity, cart.Items[0].Quantity)
	assert.Equal(t, models.MaxItemQuantity, cart.TotalQuantity)
	assert.Equal(t, float64(2*models.MaxItemQuantity), cart.TotalPrice)
}

func TestCartStore_SetQuantity_UpperBound(t *testing.T) {
	s := NewCartStore()
	mustAdd(t, s, "u1", models.CartItem{ProductID: "1"})

	_, err := s.SetQuantity("u1", "1", models.MaxItemQuantity+1)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	_, err = s.SetQuantity("u1", "1", math.MaxInt)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	got, err := s.SetQuantity("u1", "1", models.MaxItemQuantity)
	require.NoError(t, err)
	assert.Equal(t, models.MaxItemQuantity, got.Quantity)
}

func TestCartStore_ConcurrentAddsSameProduct(t *testing.T) {
	s := NewCartStore()
	const workers = 40
	const perWorker = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, _ = s.AddItem("u1", models.CartItem{ProductID: "1", Quantity: 1})
			}
		}()
	}
	wg.Wait()

	cart := s.GetCart("u1")
	require.Len(t, cart.Items, 1)
	assert.Equal(t, workers*perWorker, cart.Items[0].Quantity)
}

func TestCartStore_ConcurrentUsers(t *testing.T) {
	s := NewCartStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%02d", i)
			for j := 0; j < 10; j++ {
				_, _ = s.AddItem(user, models.CartItem{ProductID: fmt.Sprintf("p%d", j%3)})
				_ = s.GetCart(user)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Users(), 20)
	for _, u := range s.Users() {
		cart := s.GetCart(u)
		assert.Len(t, cart.Items, 3)
		assert.Equal(t, 10, cart.TotalQuantity)
	}
}
