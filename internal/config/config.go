package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/ws-deviation-dashboard/internal/adapter/warehouse"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Warehouse connection.
	WarehouseDriver       string
	WarehouseDSN          string
	WarehouseQueryTimeout time.Duration

	// Query result cache.
	CacheBackend  string
	CacheSize     int
	CacheTTL      time.Duration
	RedisAddr     string
	RedisDB       int
	RedisPassword string

	// Refresh notifications. An empty broker list disables the listener.
	KafkaBrokers       []string
	KafkaRefreshTopic  string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Dashboard defaults.
	MetricCatalogPath string
	ClearSkyThreshold float64
	DefaultRangeDays  int
}

// RefreshEnabled reports whether the Kafka refresh listener should run.
func (c *Config) RefreshEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.CacheBackend != CacheNone
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	queryTimeout, err := parsePositiveDuration("WAREHOUSE_QUERY_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parseDuration("CACHE_TTL", "15m")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("CACHE_SIZE", 512)
	if err != nil {
		return nil, err
	}

	redisDB, err := parseInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	rangeDays, err := parsePositiveInt("DEFAULT_RANGE_DAYS", 30)
	if err != nil {
		return nil, err
	}

	threshold, err := parseThreshold()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		WarehouseDriver:       strings.ToLower(sharedcfg.EnvOrDefault("WAREHOUSE_DRIVER", warehouse.DriverSQLite)),
		WarehouseDSN:          sharedcfg.EnvOrDefault("WAREHOUSE_DSN", "file:warehouse.db"),
		WarehouseQueryTimeout: queryTimeout,

		CacheBackend:  strings.ToLower(sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheMemory)),
		CacheSize:     cacheSize,
		CacheTTL:      cacheTTL,
		RedisAddr:     sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisDB:       redisDB,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers:       parseBrokers(),
		KafkaRefreshTopic:  sharedcfg.EnvOrDefault("KAFKA_REFRESH_TOPIC", "warehouse-table-refreshes"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "ws-deviation-dashboard"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MetricCatalogPath: os.Getenv("METRIC_CATALOG_PATH"),
		ClearSkyThreshold: threshold,
		DefaultRangeDays:  rangeDays,
	}

	switch cfg.WarehouseDriver {
	case warehouse.DriverSQLite, warehouse.DriverPostgres:
	default:
		return nil, fmt.Errorf("invalid WAREHOUSE_DRIVER %q: want sqlite or postgres", cfg.WarehouseDriver)
	}
	if cfg.WarehouseDSN == "" {
		return nil, errors.New("WAREHOUSE_DSN is required")
	}
	switch cfg.CacheBackend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: want memory, redis or none", cfg.CacheBackend)
	}
	if cfg.CacheBackend == CacheRedis && cfg.RedisAddr == "" {
		return nil, errors.New("CACHE_BACKEND is redis but REDIS_ADDR is not set")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaRefreshTopic == "" {
		return nil, errors.New("KAFKA_REFRESH_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// parseBrokers returns nil when KAFKA_BROKERS is unset, which disables the
// refresh listener.
func parseBrokers() []string {
	raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
	if raw == "" {
		return nil
	}
	return sharedcfg.ParseBrokers(raw)
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := parseDuration(key, def)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	n, err := parseInt(key, def)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}

func parseThreshold() (float64, error) {
	s := os.Getenv("CLEAR_SKY_THRESHOLD")
	if s == "" {
		return 0.85, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || v > 1 {
		return 0, errors.New("invalid CLEAR_SKY_THRESHOLD: must be in (0, 1]")
	}
	return v, nil
}
