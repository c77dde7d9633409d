package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/flexi-common/database"
	mqttcommon "github.com/Sarthak207/FlexiCart/flexi-common/mqtt"
	rediscommon "github.com/Sarthak207/FlexiCart/flexi-common/redis"
	"github.com/Sarthak207/FlexiCart/internal/broadcast"
	"github.com/Sarthak207/FlexiCart/internal/config"
	"github.com/Sarthak207/FlexiCart/internal/consumer"
	"github.com/Sarthak207/FlexiCart/internal/dedup"
	"github.com/Sarthak207/FlexiCart/internal/dispatcher"
	httpapi "github.com/Sarthak207/FlexiCart/internal/http"
	"github.com/Sarthak207/FlexiCart/internal/repository"
	"github.com/Sarthak207/FlexiCart/internal/stability"
	"github.com/Sarthak207/FlexiCart/internal/store"
)

// CartService 购物车后端
// Postgres、Redis、MQTT 都是可选的；连接失败时记录日志并降级运行
type CartService struct {
	config *config.Config
	logger *zap.Logger

	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqttcommon.Client

	broadcaster *broadcast.Broadcaster
	dispatcher  *dispatcher.Dispatcher
	consumer    *consumer.MQTTConsumer
	mirror      *broadcast.StreamSubscriber
	handler     http.Handler
	server      *Server

	cancel context.CancelFunc
}

// NewCartService 创建服务
func NewCartService(cfg *config.Config, logger *zap.Logger) (*CartService, error) {
	s := &CartService{config: cfg, logger: logger}

	catalog := s.initCatalog()
	s.broadcaster = broadcast.NewBroadcaster(logger)
	s.initStreamMirror()

	params := stability.Params{
		Alpha:             cfg.Weight.SmoothingAlpha,
		Tolerance:         cfg.Weight.StabilityTolerance,
		RequiredSamples:   cfg.Weight.RequiredStableSamples,
		SignificantChange: cfg.Weight.SignificantChange,
	}
	s.dispatcher = dispatcher.NewDispatcher(
		store.NewCartStore(),
		store.NewWeightStore(params),
		dedup.New(cfg.Dedup.Cooldown),
		catalog,
		s.broadcaster,
		logger,
	)

	s.initMQTT()

	router := httpapi.NewRouter(logger)
	router.RegisterCartRoutes(httpapi.NewCartHandler(s.dispatcher, logger))
	router.RegisterWeightRoutes(httpapi.NewWeightHandler(s.dispatcher, logger))
	router.RegisterProductRoutes(httpapi.NewProductHandler(s.dispatcher))
	router.RegisterRealtimeRoutes(s.broadcaster, httpapi.NewWSHandler(
		s.broadcaster, cfg.Broadcast.SubscriberBuffer, cfg.Broadcast.WriteTimeout, logger))
	if s.mirror != nil {
		router.RegisterEventRoutes(httpapi.NewEventsHandler(s.mirror, logger))
	}
	s.handler = router.Handler()
	s.server = NewServer(cfg.HTTP.Addr, s.handler, logger)

	return s, nil
}

// initCatalog DB 可用时用 Postgres 目录，否则使用内置商品表
func (s *CartService) initCatalog() repository.ProductCatalog {
	if !s.config.DBEnabled {
		return repository.NewDefaultMemoryCatalog()
	}
	db, err := database.NewPostgresDB(context.Background(), &s.config.Database)
	if err != nil {
		s.logger.Warn("DB enabled but connection failed, falling back to memory catalog", zap.Error(err))
		return repository.NewDefaultMemoryCatalog()
	}

	catalog := repository.NewPostgresCatalog(db, s.logger)
	ctx := context.Background()
	if err := catalog.EnsureSchema(ctx); err != nil {
		s.logger.Warn("Failed to ensure products schema", zap.Error(err))
	} else if err := catalog.SeedProducts(ctx, repository.DefaultProducts()); err != nil {
		s.logger.Warn("Failed to seed products", zap.Error(err))
	}

	s.db = db
	s.logger.Info("DB enabled, using postgres product catalog")
	return catalog
}

// initStreamMirror Redis 可用时把广播镜像到 Redis Stream
func (s *CartService) initStreamMirror() {
	if !s.config.RedisEnabled {
		return
	}
	client := rediscommon.NewRedisClient(&s.config.Redis)
	if err := rediscommon.Ping(context.Background(), client, s.config.Redis.DialTimeout); err != nil {
		s.logger.Warn("Redis enabled but ping failed, stream mirror disabled", zap.Error(err))
		_ = rediscommon.Close(client)
		return
	}
	s.redis = client
	s.mirror = broadcast.NewStreamSubscriber(
		client,
		s.config.Broadcast.EventStream,
		s.config.Broadcast.EventStreamMaxLen,
		s.config.Broadcast.SubscriberBuffer,
		s.logger,
	)
	s.broadcaster.Register(s.mirror)
	s.logger.Info("Redis stream mirror enabled", zap.String("stream", s.config.Broadcast.EventStream))
}

// initMQTT MQTT 可用时订阅设备主题
func (s *CartService) initMQTT() {
	if !s.config.MQTTEnabled {
		return
	}
	client, err := mqttcommon.NewClient(&s.config.MQTT, s.logger)
	if err != nil {
		s.logger.Warn("MQTT enabled but connection failed, HTTP ingestion only", zap.Error(err))
		return
	}
	s.mqttClient = client
	s.consumer = consumer.NewMQTTConsumer(s.config, client, s.dispatcher, s.logger)
}

// Handler HTTP 根 handler
func (s *CartService) Handler() http.Handler {
	return s.handler
}

// Start 启动投递 worker、MQTT 消费者和 HTTP 服务
func (s *CartService) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.HTTP.Addr, err)
	}
	return s.StartWithListener(ctx, ln)
}

// StartWithListener 同 Start，使用给定 listener
func (s *CartService) StartWithListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Starting cart service components")

	ctx, s.cancel = context.WithCancel(ctx)
	s.broadcaster.Start(ctx)

	if s.consumer != nil {
		if err := s.consumer.Start(ctx); err != nil {
			s.logger.Error("Failed to start MQTT consumer", zap.Error(err))
		}
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped unexpectedly", zap.Error(err))
		}
	}()

	s.logger.Info("Cart service started successfully")
	return nil
}

// Stop 停止服务
// 先停入口（HTTP、MQTT），再把已入队的广播投递完，最后关闭订阅者和外部连接
func (s *CartService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping cart service")

	if err := s.server.Stop(ctx); err != nil {
		s.logger.Error("Error stopping HTTP server", zap.Error(err))
	}

	if s.consumer != nil {
		if err := s.consumer.Stop(ctx); err != nil {
			s.logger.Error("Error stopping consumer", zap.Error(err))
		}
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	if err := s.broadcaster.Stop(ctx); err != nil {
		s.logger.Error("Error draining broadcast backlog", zap.Error(err))
	}
	s.broadcaster.CloseAll()
	if s.cancel != nil {
		s.cancel()
	}

	if s.redis != nil {
		_ = rediscommon.Close(s.redis)
	}
	if s.db != nil {
		_ = database.Close(s.db)
	}

	s.logger.Info("Cart service stopped")
	return nil
}
