package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort string
	Debug      bool

	// Database（为空时不启用事件日志）
	DatabaseURL string

	// 传感器模拟
	RefreshInterval    time.Duration
	RefreshProbability float64

	// 随机种子，0 表示按当前时间生成
	RandomSeed uint64

	// 初始价格推导方式: cycle | type
	SeedPricing string
}

func Load() (*Config, error) {
	// 尝试加载 .env 文件（可选）
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("PORT", "4000"),
		Debug:              getEnvBool("DEBUG", false),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RefreshInterval:    getEnvDuration("REFRESH_INTERVAL", 5*time.Second),
		RefreshProbability: getEnvFloat("REFRESH_PROBABILITY", 0.2),
		RandomSeed:         getEnvUint("RANDOM_SEED", 0),
		SeedPricing:        getEnv("SEED_PRICING", "cycle"),
	}

	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Second
	}
	if cfg.RefreshProbability < 0 || cfg.RefreshProbability > 1 {
		cfg.RefreshProbability = 0.2
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.ParseUint(value, 10, 64)
		if err == nil {
			return n
		}
	}
	return defaultValue
}
