package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort string
	GRPCPort string

	DBDriver          string // postgres, pgx or sqlite
	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DBName            string
	DBPath            string // sqlite only
	MigrationsDirPath string

	CartStore     string // redis or mongo
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartTTL       time.Duration
	MongoURI      string
	MongoDBName   string

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret string

	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	LogLevel string
	Env      string
}

// Load reads configuration from the environment. Values from a .env file in
// the working directory are applied first without overriding variables that
// are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		GRPCPort:          getEnv("GRPC_PORT", "50060"),
		DBDriver:          getEnv("DB_DRIVER", "postgres"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "storefront"),
		DBPath:            getEnv("DB_PATH", "storefront.db"),
		MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
		CartStore:         getEnv("CART_STORE", "redis"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:       getEnv("MONGO_DB_NAME", "storefront"),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "storefront-orders"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Env:               getEnv("APP_ENV", "production"),
	}

	var err error
	if cfg.DBPort, err = getEnvInt("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.CartTTL, err = getEnvDuration("CART_TTL", 72*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	bodySize, err := getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxRequestBodySize = int64(bodySize)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "postgres", "pgx", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres, pgx or sqlite, got %q", c.DBDriver))
	}
	switch c.CartStore {
	case "redis", "mongo":
	default:
		errs = append(errs, fmt.Errorf("CART_STORE must be redis or mongo, got %q", c.CartStore))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.CartTTL <= 0 {
		errs = append(errs, errors.New("CART_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
