package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port            string
	MySQLDSN        string
	RedisURL        string
	RateLimitPerSec int64
	PushgatewayURL  string
}

// Load reads the configuration surface from the environment. MYSQL_DSN wins
// when set; otherwise the DSN is composed from the individual MYSQL_* parts.
func Load() *Config {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		user := getenv("MYSQL_USER", "root")
		password := getenv("MYSQL_PASSWORD", "root")
		host := getenv("MYSQL_HOST", "localhost")
		port := getenv("MYSQL_PORT", "3306")
		database := getenv("MYSQL_DATABASE", "seckill")
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, password, host, port, database)
	}

	rateLimit := int64(3)
	if v := os.Getenv("RATE_LIMIT_PER_SEC"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimit = n
		}
	}

	return &Config{
		Port:            getenv("PORT", "8080"),
		MySQLDSN:        dsn,
		RedisURL:        getenv("REDIS_URL", "redis://localhost:6379"),
		RateLimitPerSec: rateLimit,
		PushgatewayURL:  os.Getenv("PUSHGATEWAY_URL"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
