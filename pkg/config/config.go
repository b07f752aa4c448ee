package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Supported persistence backends for the record store.
const (
	StoreBackendMemory   = "memory"
	StoreBackendSQLite   = "sqlite"
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store     StoreConfig
	Database  DatabaseConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Lifecycle LifecycleConfig
	Sweeper   SweeperConfig
	Swagger   SwaggerConfig
	Bootstrap BootstrapConfig
}

// StoreConfig selects the key-value backend holding record collections.
type StoreConfig struct {
	Backend string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// SQLiteConfig points at the embedded database file.
type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LifecycleConfig holds the time windows driving automatic transitions.
type LifecycleConfig struct {
	DeletionGracePeriod time.Duration
	RecycleRetention    time.Duration
}

// SweeperConfig controls background sweeps of the deletion queue and recycle bin.
type SweeperConfig struct {
	Interval       time.Duration
	OnStaffLogin   bool
	WorkerRetries  int
	RunTimeout     time.Duration
	RetryBackoff   time.Duration
	StartupEnabled bool
}

// BootstrapConfig seeds the first Admin on an empty staff collection.
type BootstrapConfig struct {
	AdminUsername string
	AdminPassword string
}

// SwaggerConfig toggles the docs endpoint.
type SwaggerConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{Backend: strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND")))}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.SQLite = SQLiteConfig{Path: v.GetString("SQLITE_PATH")}

	cfg.Redis = RedisConfig{
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Lifecycle = LifecycleConfig{
		DeletionGracePeriod: parseDuration(v.GetString("DELETION_GRACE_PERIOD"), 20*24*time.Hour),
		RecycleRetention:    parseDuration(v.GetString("RECYCLE_RETENTION"), 30*24*time.Hour),
	}

	cfg.Sweeper = SweeperConfig{
		Interval:       parseDuration(v.GetString("SWEEP_INTERVAL"), time.Hour),
		OnStaffLogin:   v.GetBool("SWEEP_ON_STAFF_LOGIN"),
		WorkerRetries:  v.GetInt("SWEEP_WORKER_RETRIES"),
		RunTimeout:     parseDuration(v.GetString("SWEEP_RUN_TIMEOUT"), 30*time.Second),
		RetryBackoff:   parseDuration(v.GetString("SWEEP_RETRY_BACKOFF"), 5*time.Second),
		StartupEnabled: v.GetBool("SWEEP_ON_STARTUP"),
	}

	cfg.Swagger = SwaggerConfig{Enabled: v.GetBool("ENABLE_SWAGGER")}

	cfg.Bootstrap = BootstrapConfig{
		AdminUsername: strings.TrimSpace(v.GetString("ADMIN_BOOTSTRAP_USERNAME")),
		AdminPassword: v.GetString("ADMIN_BOOTSTRAP_PASSWORD"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_BACKEND", StoreBackendSQLite)
	v.SetDefault("SQLITE_PATH", "./data/feedback.db")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_feedback")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "feedback:")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "sma-feedback-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DELETION_GRACE_PERIOD", "480h")
	v.SetDefault("RECYCLE_RETENTION", "720h")

	v.SetDefault("SWEEP_INTERVAL", "1h")
	v.SetDefault("SWEEP_ON_STAFF_LOGIN", true)
	v.SetDefault("SWEEP_WORKER_RETRIES", 3)
	v.SetDefault("SWEEP_RUN_TIMEOUT", "30s")
	v.SetDefault("SWEEP_RETRY_BACKOFF", "5s")
	v.SetDefault("SWEEP_ON_STARTUP", true)

	v.SetDefault("ENABLE_SWAGGER", true)

	v.SetDefault("ADMIN_BOOTSTRAP_USERNAME", "")
	v.SetDefault("ADMIN_BOOTSTRAP_PASSWORD", "")
}

// isMissingFile reports viper's plain fs error when .env is absent; SetConfigFile bypasses ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no such file")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
