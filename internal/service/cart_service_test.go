package service

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sarthak207/FlexiCart/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.HTTP.Addr = "127.0.0.1:0"
	return cfg
}

func startService(t *testing.T, cfg *config.Config) (*CartService, string) {
	t.Helper()
	svc, err := NewCartService(cfg, zap.NewNop())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, svc.StartWithListener(context.Background(), ln))
	return svc, "http://" + ln.Addr().String()
}

func stopService(t *testing.T, svc *CartService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Stop(ctx))
}

const scanBody = `{"user_id":"u1","product_id":"2","scan_type":"rfid","scan_value":"RF002"}`

func TestCartService_InMemory(t *testing.T) {
	svc, base := startService(t, testConfig(t))
	defer stopService(t, svc)

	resp, err := http.Post(base+"/api/cart/add-item", "application/json", strings.NewReader(scanBody))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"status":"added"`)
	assert.Contains(t, string(body), "Whole Wheat Bread")

	resp, err = http.Get(base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var health struct {
		Result struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Result.Status)
}

func TestCartService_RedisStreamMirror(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisEnabled = true
	cfg.Redis.Addr = mr.Addr()

	svc, _ := startService(t, cfg)
	require.NotNil(t, svc.redis)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cart/add-item", strings.NewReader(scanBody))
	svc.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	stopService(t, svc)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	entries, err := client.XRange(context.Background(), cfg.Broadcast.EventStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Values["data"], `"action":"add"`)
}

func TestCartService_RecentEventsFromMirror(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisEnabled = true
	cfg.Redis.Addr = mr.Addr()

	svc, base := startService(t, cfg)
	defer stopService(t, svc)

	resp, err := http.Post(base+"/api/cart/add-item", "application/json", strings.NewReader(scanBody))
	require.NoError(t, err)
	resp.Body.Close()

	// 镜像异步写入
	require.Eventually(t, func() bool {
		n, err := svc.redis.XLen(context.Background(), cfg.Broadcast.EventStream).Result()
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp, err = http.Get(base + "/api/events/recent?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Result []map[string]any `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Result, 1)
	assert.Equal(t, "cart_update", body.Result[0]["type"])
}

func TestCartService_NoEventsRouteWithoutRedis(t *testing.T) {
	svc, err := NewCartService(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer svc.Stop(context.Background())

	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events/recent", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartService_FallsBackWhenInfraUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBEnabled = true
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = 1
	cfg.RedisEnabled = true
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.MQTTEnabled = true
	cfg.MQTT.Broker = "tcp://127.0.0.1:1"

	svc, err := NewCartService(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, svc.db)
	assert.Nil(t, svc.redis)
	assert.Nil(t, svc.consumer)

	// 内置商品表仍然可用
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/000000000004", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cheddar Cheese")

	require.NoError(t, svc.Stop(context.Background()))
}
