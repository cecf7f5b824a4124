package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Rate limiter bounds.
	RateLimitMaxClients int           `mapstructure:"RATE_LIMIT_MAX_CLIENTS"`
	RateLimitIdleTTL    time.Duration `mapstructure:"RATE_LIMIT_IDLE_TTL"`

	// Storage. STORE_DRIVER is "mongo" or "memory".
	StoreDriver  string `mapstructure:"STORE_DRIVER"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`
	// Empty REDIS_ADDR runs without the shared cache and the task queue.
	SettingsCacheTTL time.Duration `mapstructure:"SETTINGS_CACHE_TTL"`

	// Settlement policy.
	MinRefundStars   int           `mapstructure:"MIN_REFUND_STARS"`
	DeclineThreshold int           `mapstructure:"DECLINE_THRESHOLD"`
	DeclineWindow    time.Duration `mapstructure:"DECLINE_WINDOW"`
	VoucherValidity  time.Duration `mapstructure:"VOUCHER_VALIDITY"`

	// Background work.
	WorkerConcurrency int           `mapstructure:"WORKER_CONCURRENCY"`
	CleanupInterval   time.Duration `mapstructure:"CLEANUP_INTERVAL"`

	// Integrations. Empty values disable the integration.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	StripeKey               string `mapstructure:"STRIPE_KEY"`
	StripeCurrency          string `mapstructure:"STRIPE_CURRENCY"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("RATE_LIMIT_MAX_CLIENTS", 10000)
	v.SetDefault("RATE_LIMIT_IDLE_TTL", "10m")
	v.SetDefault("STORE_DRIVER", "mongo")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "installhub")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("SETTINGS_CACHE_TTL", "30s")
	v.SetDefault("MIN_REFUND_STARS", 3)
	v.SetDefault("DECLINE_THRESHOLD", 3)
	v.SetDefault("DECLINE_WINDOW", "168h")
	v.SetDefault("VOUCHER_VALIDITY", "720h")
	v.SetDefault("WORKER_CONCURRENCY", 5)
	v.SetDefault("CLEANUP_INTERVAL", "15m")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("STRIPE_KEY", "")
	v.SetDefault("STRIPE_CURRENCY", "usd")
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

func UseMemoryStore() bool {
	return AppConfig.StoreDriver == "memory"
}
