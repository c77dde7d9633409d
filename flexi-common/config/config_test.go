package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p@ss word", Database: "flexicart", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss%20word@db:5433/flexicart?sslmode=disable", c.GetDSN())
}

func TestDefaults(t *testing.T) {
	db := DefaultDatabaseConfig()
	assert.Equal(t, 5432, db.Port)
	assert.Equal(t, "flexicart", db.Database)
	assert.Equal(t, 30*time.Minute, db.MaxLifetime)

	r := DefaultRedisConfig()
	assert.Equal(t, "localhost:6379", r.Addr)

	m := DefaultMQTTConfig("cart-gw")
	assert.Equal(t, "cart-gw", m.ClientID)
	assert.Equal(t, byte(1), m.QoS)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "pg.local")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "catalog")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("MQTT_CLIENT_ID", "cart-1")
	t.Setenv("MQTT_QOS", "2")

	db := DefaultDatabaseConfig()
	db.LoadFromEnv("DB")
	assert.Equal(t, "pg.local", db.Host)
	assert.Equal(t, 6543, db.Port)
	assert.Equal(t, "catalog", db.Database)
	assert.Equal(t, 25, db.MaxConns)
	assert.Equal(t, "postgres", db.User)

	r := DefaultRedisConfig()
	r.LoadFromEnv("REDIS")
	assert.Equal(t, "redis:6380", r.Addr)
	assert.Equal(t, 3, r.DB)

	m := DefaultMQTTConfig("x")
	m.LoadFromEnv("MQTT")
	assert.Equal(t, "tcp://broker:1883", m.Broker)
	assert.Equal(t, "cart-1", m.ClientID)
	assert.Equal(t, byte(2), m.QoS)
}

func TestLoadFromEnv_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("MQTT_QOS", "7")

	db := DatabaseConfig{Port: 5432}
	db.LoadFromEnv("DB")
	assert.Equal(t, 5432, db.Port)

	m := MQTTConfig{QoS: 1}
	m.LoadFromEnv("MQTT")
	assert.Equal(t, byte(1), m.QoS)
}
