package config

import (
	"os"
	"strconv"
	"time"

	"github.com/Sarthak207/FlexiCart/flexi-common/config"
)

// Config FlexiCart 服务配置
type Config struct {
	HTTP struct {
		Addr            string
		ShutdownTimeout time.Duration
	}

	// 可选基础设施（默认关闭，纯内存运行）
	DBEnabled    bool
	Database     config.DatabaseConfig
	RedisEnabled bool
	Redis        config.RedisConfig
	MQTTEnabled  bool
	MQTT         config.MQTTConfig

	// 扫码去重
	Dedup struct {
		Cooldown time.Duration // 同一 scan_value 的冷却窗口，默认 2s
	}

	// 称重稳定性判定
	Weight struct {
		SmoothingAlpha        float64 // 指数平滑系数，默认 0.3
		StabilityTolerance    float64 // 稳定容差（克），默认 5
		RequiredStableSamples int     // 连续稳定样本数，默认 5
		SignificantChange     float64 // 触发广播的变化阈值（克），默认 50
	}

	// 实时推送
	Broadcast struct {
		SubscriberBuffer  int           // 每个订阅者的发送队列长度
		WriteTimeout      time.Duration // websocket 写超时
		EventStream       string        // Redis 镜像流名称
		EventStreamMaxLen int64         // Redis 镜像流近似长度上限
	}

	// MQTT 设备主题，+ 为 device_id
	Topics struct {
		Scan   string
		Weight string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8000")
	cfg.HTTP.ShutdownTimeout = time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second

	cfg.DBEnabled = getEnv("DB_ENABLED", "false") == "true"
	cfg.Database = config.DefaultDatabaseConfig()
	cfg.Database.LoadFromEnv("DB")

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis = config.DefaultRedisConfig()
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTTEnabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT = config.DefaultMQTTConfig("flexicart-server")
	cfg.MQTT.LoadFromEnv("MQTT")
	cfg.Topics.Scan = getEnv("MQTT_TOPIC_SCAN", "flexicart/+/scan")
	cfg.Topics.Weight = getEnv("MQTT_TOPIC_WEIGHT", "flexicart/+/weight")

	cfg.Dedup.Cooldown = time.Duration(getEnvInt("SCAN_COOLDOWN_MS", 2000)) * time.Millisecond

	cfg.Weight.SmoothingAlpha = getEnvFloat("WEIGHT_SMOOTHING_ALPHA", 0.3)
	cfg.Weight.StabilityTolerance = getEnvFloat("WEIGHT_STABILITY_TOLERANCE", 5.0)
	cfg.Weight.RequiredStableSamples = getEnvInt("WEIGHT_STABLE_SAMPLES", 5)
	cfg.Weight.SignificantChange = getEnvFloat("WEIGHT_SIGNIFICANT_CHANGE", 50.0)

	cfg.Broadcast.SubscriberBuffer = getEnvInt("BROADCAST_SUBSCRIBER_BUFFER", 256)
	cfg.Broadcast.WriteTimeout = time.Duration(getEnvInt("BROADCAST_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond
	cfg.Broadcast.EventStream = getEnv("REDIS_EVENT_STREAM", "flexicart:events:stream")
	cfg.Broadcast.EventStreamMaxLen = int64(getEnvInt("REDIS_EVENT_STREAM_MAXLEN", 10000))

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil && v > 0 {
		return v
	}
	return defaultValue
}
