package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/internal/broadcast"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Handler 带请求 ID 与访问日志的根 handler
func (r *Router) Handler() http.Handler {
	return WithRequestID(WithLogging(r.logger, r))
}

// pathParam 取前缀后的单段路径参数；为空或含 / 时返回 false
func pathParam(path, prefix string) (string, bool) {
	v := strings.TrimPrefix(path, prefix)
	if v == "" || strings.Contains(v, "/") {
		return "", false
	}
	return v, true
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, Fail("not found"))
}

// RegisterCartRoutes 购物车路由
func (r *Router) RegisterCartRoutes(h *CartHandler) {
	r.Handle("/api/cart/add-item", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethod(w, req, http.MethodPost) {
			return
		}
		h.AddItem(w, req)
	})
	r.Handle("/api/cart/remove-item", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethod(w, req, http.MethodPost) {
			return
		}
		h.RemoveItem(w, req)
	})
	r.Handle("/api/cart/update-quantity", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethod(w, req, http.MethodPost) {
			return
		}
		h.UpdateQuantity(w, req)
	})

	r.Handle("/api/carts", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethod(w, req, http.MethodGet) {
			return
		}
		h.ListCarts(w, req)
	})

	// cart/{userId} 与 cart/{userId}/export
	r.Handle("/api/cart/", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethod(w, req, http.MethodGet) {
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/api/cart/")
		if userID, ok := strings.CutSuffix(rest, "/export"); ok {
			if userID == "" || strings.Contains(userID, "/") {
				notFound(w)
				return
			}
			h.ExportCart(w, req, userID)
			return
		}
		userID, ok := pathParam(req.URL.Path, "/api/cart/")
		if !ok {
			notFound(w)
			return
		}
		h.GetCart(w, req, userID)
	})
}

// RegisterWeightRoutes 称重路由
func (r *Router) RegisterWeightRoutes(h *WeightHandler) {
	r.Handle("/api/weight/update", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethod(w, req, http.MethodPost) {
			return
		}
		h.Update(w, req)
	})
	r.Handle("/api/weight/tare", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethod(w, req, http.MethodPost) {
			return
		}
		h.Tare(w, req)
	})
	r.Handle("/api/weight/", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethod(w, req, http.MethodGet) {
			return
		}
		deviceID, ok := pathParam(req.URL.Path, "/api/weight/")
		if !ok {
			notFound(w)
			return
		}
		h.Get(w, req, deviceID)
	})
}

// RegisterProductRoutes 商品目录路由
func (r *Router) RegisterProductRoutes(h *ProductHandler) {
	r.Handle("/api/products/", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethod(w, req, http.MethodGet) {
			return
		}
		code, ok := pathParam(req.URL.Path, "/api/products/")
		if !ok {
			notFound(w)
			return
		}
		h.Get(w, req, code)
	})
}

// RegisterRealtimeRoutes 健康检查与 websocket
func (r *Router) RegisterRealtimeRoutes(b *broadcast.Broadcaster, ws *WSHandler) {
	r.Handle("/health", healthHandler(b))
	r.HandleHandler("/ws", ws)
}

// RegisterEventRoutes 事件回看，仅在启用 Redis 镜像时注册
func (r *Router) RegisterEventRoutes(h *EventsHandler) {
	r.Handle("/api/events/recent", func(w http.ResponseWriter, req *http.Request) {
		if !allowMethod(w, req, http.MethodGet) {
			return
		}
		h.Recent(w, req)
	})
}
