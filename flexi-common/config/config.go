package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig 商品目录库配置
type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxConns    int
	MaxIdle     int
	MaxLifetime time.Duration
	PingTimeout time.Duration
}

// RedisConfig 事件镜像用的 Redis 配置
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// MQTTConfig 推车设备接入的 MQTT 配置
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
}

// DefaultDatabaseConfig 本地开发默认值
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:        "localhost",
		Port:        5432,
		User:        "postgres",
		Password:    "postgres",
		Database:    "flexicart",
		SSLMode:     "disable",
		MaxConns:    10,
		MaxIdle:     2,
		MaxLifetime: 30 * time.Minute,
		PingTimeout: 5 * time.Second,
	}
}

// DefaultRedisConfig 本地开发默认值
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		DialTimeout:  3 * time.Second,
		WriteTimeout: 2 * time.Second,
	}
}

// DefaultMQTTConfig 本地开发默认值
func DefaultMQTTConfig(clientID string) MQTTConfig {
	return MQTTConfig{
		Broker:         "tcp://localhost:1883",
		ClientID:       clientID,
		QoS:            1,
		KeepAlive:      30 * time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}

// GetDSN lib/pq 连接串，密码等字段做 URL 转义
func (c *DatabaseConfig) GetDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// LoadFromEnv 以 prefix 读取 _HOST/_PORT/_USER/_PASSWORD/_NAME/_SSLMODE/_MAX_CONNS
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	env := envReader(prefix)
	env.lookupString("_HOST", &c.Host)
	env.lookupInt("_PORT", &c.Port)
	env.lookupString("_USER", &c.User)
	env.lookupString("_PASSWORD", &c.Password)
	env.lookupString("_NAME", &c.Database)
	env.lookupString("_SSLMODE", &c.SSLMode)
	env.lookupInt("_MAX_CONNS", &c.MaxConns)
	env.lookupInt("_MAX_IDLE", &c.MaxIdle)
}

// LoadFromEnv 以 prefix 读取 _ADDR/_PASSWORD/_DB/_POOL_SIZE
func (c *RedisConfig) LoadFromEnv(prefix string) {
	env := envReader(prefix)
	env.lookupString("_ADDR", &c.Addr)
	env.lookupString("_PASSWORD", &c.Password)
	env.lookupInt("_DB", &c.DB)
	env.lookupInt("_POOL_SIZE", &c.PoolSize)
}

// LoadFromEnv 以 prefix 读取 _BROKER/_CLIENT_ID/_USERNAME/_PASSWORD/_QOS
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	env := envReader(prefix)
	env.lookupString("_BROKER", &c.Broker)
	env.lookupString("_CLIENT_ID", &c.ClientID)
	env.lookupString("_USERNAME", &c.Username)
	env.lookupString("_PASSWORD", &c.Password)

	var qos int
	if env.lookupInt("_QOS", &qos) && qos >= 0 && qos <= 2 {
		c.QoS = byte(qos)
	}
}

// envReader 只覆盖已设置且可解析的变量，其余保留原值
type envReader string

func (p envReader) lookupString(suffix string, dst *string) bool {
	v := os.Getenv(string(p) + suffix)
	if v == "" {
		return false
	}
	*dst = v
	return true
}

func (p envReader) lookupInt(suffix string, dst *int) bool {
	v := os.Getenv(string(p) + suffix)
	if v == "" {
		return false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return false
	}
	*dst = n
	return true
}
