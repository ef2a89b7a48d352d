package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Pricing  PricingConfig
	Limits   LimitsConfig
	Cache    CacheConfig
	Tracing  TracingConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// PricingConfig holds the demand signal window. The per-event weights and
// rates live on the event row, not here.
type PricingConfig struct {
	DemandWindow time.Duration
}

type LimitsConfig struct {
	RateLimitMax    int
	RateLimitWindow time.Duration
	MaxPerOrder     int
}

type CacheConfig struct {
	PriceTTL time.Duration
	EventTTL time.Duration
	ListTTL  time.Duration
}

// TracingConfig enables the Jaeger exporter when Endpoint is non-empty.
type TracingConfig struct {
	ServiceName string
	Endpoint    string
}

var AppConfig *Config

func LoadConfig() *Config {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	AppConfig = &Config{
		Server:   GetServerConfig(),
		Database: GetDatabaseConfig(),
		Redis:    GetRedisConfig(),
		Pricing:  GetPricingConfig(),
		Limits:   GetLimitsConfig(),
		Cache:    GetCacheConfig(),
		Tracing:  GetTracingConfig(),
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // test DB runs on 5433
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
		MaxConns: 10,
		MinConns: 2,
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // test Redis runs on 6380
		Password: "",
		DB:       1,
	}

	return &Config{
		Server:   ServerConfig{Port: "8081"},
		Database: *testConfig,
		Redis:    testRedisConfig,
		Pricing:  GetPricingConfig(),
		Limits:   GetLimitsConfig(),
		Cache:    GetCacheConfig(),
	}
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Port: getEnv("SERVER_PORT", "8080"),
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
		MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
	}
}

func GetRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

func GetPricingConfig() PricingConfig {
	return PricingConfig{
		DemandWindow: getEnvDuration("PRICING_DEMAND_WINDOW", time.Hour),
	}
}

func GetLimitsConfig() LimitsConfig {
	return LimitsConfig{
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 5),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		MaxPerOrder:     getEnvInt("BOOKING_MAX_PER_ORDER", 10),
	}
}

func GetCacheConfig() CacheConfig {
	return CacheConfig{
		PriceTTL: getEnvDuration("CACHE_PRICE_TTL", 30*time.Second),
		EventTTL: getEnvDuration("CACHE_EVENT_TTL", 60*time.Second),
		ListTTL:  getEnvDuration("CACHE_LIST_TTL", 120*time.Second),
	}
}

func GetTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: getEnv("TRACING_SERVICE_NAME", "ticket-pricing-service"),
		Endpoint:    getEnv("JAEGER_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		panic(err)
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(err)
	}
	return d
}
