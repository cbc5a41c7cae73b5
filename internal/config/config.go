package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DBPath            string
	StoreID           string
	TerminalID        string
	RemoteDatabaseURL string
	RemoteBaseURL     string
	RemoteAuthSecret  string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	CacheTTLSeconds   int
	TaxEnabled        bool
	TaxRatePercent    float64
	SyncIntervalSecs  int
	ManagerPINHash    string
	SeedSampleData    bool
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	cacheTTL, err := strconv.Atoi(getEnv("CACHE_TTL_SECONDS", "30"))
	if err != nil || cacheTTL < 1 {
		cacheTTL = 30
	}
	syncInterval, err := strconv.Atoi(getEnv("SYNC_INTERVAL_SECONDS", "60"))
	if err != nil || syncInterval < 1 {
		syncInterval = 60
	}
	taxRate, err := strconv.ParseFloat(getEnv("TAX_RATE_PERCENT", "10"), 64)
	if err != nil || taxRate < 0 || taxRate > 100 {
		taxRate = 10
	}

	cfg := Config{
		DBPath:            os.Getenv("POS_DB_PATH"),
		StoreID:           getEnv("STORE_ID", "main-store"),
		TerminalID:        getEnv("TERMINAL_ID", "terminal-1"),
		RemoteDatabaseURL: os.Getenv("REMOTE_DATABASE_URL"),
		RemoteBaseURL:     os.Getenv("REMOTE_BASE_URL"),
		RemoteAuthSecret:  strings.TrimSpace(os.Getenv("REMOTE_AUTH_SECRET")),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		CacheTTLSeconds:   cacheTTL,
		TaxEnabled:        getEnv("TAX_ENABLED", "false") == "true",
		TaxRatePercent:    taxRate,
		SyncIntervalSecs:  syncInterval,
		ManagerPINHash:    strings.TrimSpace(os.Getenv("MANAGER_PIN_HASH")),
		SeedSampleData:    getEnv("SEED_SAMPLE_DATA", "false") == "true",
	}

	return cfg
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
