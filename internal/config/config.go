package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minJWTSecretLength = 32

type Config struct {
	AppEnv  string
	Port    string
	GinMode string

	// DBDriver selects the storage backend: postgres, mysql or mongo.
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MongoURI      string
	MongoDatabase string

	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string

	SessionSecret   string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	InviteTTL       time.Duration

	LoginRateLimit    int
	ReconcileInterval time.Duration

	OpenAIAPIKey string
	SentryDSN    string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment, after merging an optional .env file.
func Load() *Config {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		AppEnv:  getEnv("APP_ENV", "development"),
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "pmuser"),
		DBPassword: getEnv("DB_PASSWORD", "pmpassword"),
		DBName:     getEnv("DB_NAME", "project_management"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "project_management"),

		RedisEnabled:  getEnvBool("REDIS_ENABLED", true),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		SessionSecret:   getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		InviteTTL:       getEnvDuration("INVITE_TTL", 7*24*time.Hour),

		LoginRateLimit:    getEnvInt("LOGIN_RATE_LIMIT", 10),
		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 5*time.Minute),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		SentryDSN:    getEnv("SENTRY_DSN", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}

	switch c.AppEnv {
	case "development", "production", "test":
	default:
		return fmt.Errorf("unsupported APP_ENV %q", c.AppEnv)
	}

	switch c.DBDriver {
	case "postgres", "mysql":
		if c.DBHost == "" || c.DBName == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for driver %q", c.DBDriver)
		}
	case "mongo":
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("MONGODB_URI and MONGODB_DATABASE are required for driver mongo")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.InviteTTL <= 0 {
		return fmt.Errorf("token and invite lifetimes must be positive")
	}
	if c.LoginRateLimit < 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT must not be negative")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// RedisAddr returns host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
