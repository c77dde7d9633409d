package httpapi

import (
	"net/http"

	"github.com/Sarthak207/FlexiCart/internal/dispatcher"
)

// ProductHandler 商品目录查询
type ProductHandler struct {
	dispatcher *dispatcher.Dispatcher
}

func NewProductHandler(d *dispatcher.Dispatcher) *ProductHandler {
	return &ProductHandler{dispatcher: d}
}

// Get GET /api/products/{code}，code 可以是 product_id、条码或 RFID
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request, code string) {
	p, err := h.dispatcher.LookupProduct(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}
