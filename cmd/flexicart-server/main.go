package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/flexi-common/logger"
	"github.com/Sarthak207/FlexiCart/internal/config"
	"github.com/Sarthak207/FlexiCart/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	zl, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "flexicart-server")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync()

	zl.Info("Starting flexicart-server",
		zap.String("http_addr", cfg.HTTP.Addr),
		zap.Bool("db_enabled", cfg.DBEnabled),
		zap.Bool("redis_enabled", cfg.RedisEnabled),
		zap.Bool("mqtt_enabled", cfg.MQTTEnabled),
		zap.Duration("scan_cooldown", cfg.Dedup.Cooldown),
	)

	// 创建服务
	cartService, err := service.NewCartService(cfg, zl)
	if err != nil {
		zl.Fatal("Failed to create cart service", zap.Error(err))
	}

	// 启动服务
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := cartService.Start(ctx); err != nil {
		zl.Fatal("Failed to start cart service", zap.Error(err))
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zl.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := cartService.Stop(shutdownCtx); err != nil {
		zl.Error("Error during shutdown", zap.Error(err))
	}

	zl.Info("Service stopped")
}
