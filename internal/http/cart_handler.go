package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/internal/dispatcher"
	"github.com/Sarthak207/FlexiCart/internal/models"
)

// CartHandler 扫码入车与购物车操作
type CartHandler struct {
	dispatcher *dispatcher.Dispatcher
	logger     *zap.Logger
}

func NewCartHandler(d *dispatcher.Dispatcher, logger *zap.Logger) *CartHandler {
	return &CartHandler{dispatcher: d, logger: logger}
}

// AddItemResult 扫码结果；重复扫码同样返回 200
type AddItemResult struct {
	Status string           `json:"status"`
	Item   *models.CartItem `json:"item,omitempty"`
}

const (
	addStatusAdded     = "added"
	addStatusDuplicate = "duplicate"
)

// AddItem POST /api/cart/add-item
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var p models.ScanPayload
	if !decodeBody(w, r, &p) {
		return
	}

	item, err := h.dispatcher.IngestScan(r.Context(), p.ToEvent())
	if errors.Is(err, models.ErrDuplicateRejected) {
		writeJSON(w, http.StatusOK, Ok(AddItemResult{Status: addStatusDuplicate}))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(AddItemResult{Status: addStatusAdded, Item: &item}))
}

type cartItemRequest struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity,omitempty"`
}

// RemoveItem POST /api/cart/remove-item
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	removed, err := h.dispatcher.RemoveFromCart(r.Context(), req.UserID, req.ProductID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(removed))
}

// UpdateQuantity POST /api/cart/update-quantity
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeError(w, fmt.Errorf("%w: quantity is required", models.ErrInvalidArgument))
		return
	}
	updated, err := h.dispatcher.UpdateQuantity(r.Context(), req.UserID, req.ProductID, *req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(updated))
}

// GetCart GET /api/cart/{userId}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request, userID string) {
	writeJSON(w, http.StatusOK, Ok(h.dispatcher.GetCart(userID)))
}

// CartSummary 购物车列表项
type CartSummary struct {
	UserID        string  `json:"user_id"`
	TotalQuantity int     `json:"total_quantity"`
	TotalPrice    float64 `json:"total_price"`
}

// ListCarts GET /api/carts
func (h *CartHandler) ListCarts(w http.ResponseWriter, r *http.Request) {
	users := h.dispatcher.Users()
	out := make([]CartSummary, 0, len(users))
	for _, u := range users {
		c := h.dispatcher.GetCart(u)
		out = append(out, CartSummary{UserID: u, TotalQuantity: c.TotalQuantity, TotalPrice: c.TotalPrice})
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// ExportCart GET /api/cart/{userId}/export
func (h *CartHandler) ExportCart(w http.ResponseWriter, r *http.Request, userID string) {
	cart := h.dispatcher.GetCart(userID)
	data, err := GenerateCartReceipt(cart)
	if err != nil {
		h.logger.Error("GenerateCartReceipt failed", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(fmt.Sprintf("failed to generate receipt: %v", err)))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=cart-%s.xlsx", sanitizeFilename(userID)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
