package service

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server HTTP 服务
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{httpServer: s, logger: logger}
}

// Serve 阻塞直到服务关闭；正常关闭返回 http.ErrServerClosed
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting flexicart HTTP server", zap.String("addr", ln.Addr().String()))
	return s.httpServer.Serve(ln)
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping flexicart HTTP server")
	return s.httpServer.Shutdown(ctx)
}
