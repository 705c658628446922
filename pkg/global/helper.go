package global

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func GetEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func GetDefaultTimer() (context.Context, context.CancelFunc) {
	return GetDefaultTimerFrom(context.Background())
}

// GetDefaultTimerFrom bounds a single database call made on behalf of parent.
func GetDefaultTimerFrom(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 10*time.Second)
}

func GetMongoURI() string {
	return os.Getenv("MONGODB_URI")
}

func GetDatabaseName() string {
	return GetEnvOrDefault("MONGODB_DATABASE", "ejc_kiosk")
}

// LoadEnvFile loads a .env file when present. A missing file is only logged.
func LoadEnvFile(logger *zap.Logger, paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		logger.Warn("no .env file loaded, using process environment", zap.Error(err))
	}
}

// Config holds every setting the service reads from the environment.
type Config struct {
	Env               string
	Port              string
	StoreDriver       string
	MongoURI          string
	DatabaseName      string
	MongoTransactions bool
	RedisAddress      string
	RedisPassword     string
	RedisDB           int
	JWTSecret         string
	InviteCode        string
	TokenTTL          time.Duration
	CartTTL           time.Duration
	CatalogCacheTTL   time.Duration
	Timezone          string
	CORSOrigins       []string
	OTelEnabled       bool
	AIEndpoint        string
	AIKey             string
	AIDeployment      string
}

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

func LoadConfig() *Config {
	return &Config{
		Env:               GetEnvOrDefault("ENV", "development"),
		Port:              GetEnvOrDefault("PORT", "8000"),
		StoreDriver:       GetEnvOrDefault("STORE_DRIVER", StoreDriverMongo),
		MongoURI:          GetMongoURI(),
		DatabaseName:      GetDatabaseName(),
		MongoTransactions: GetEnvBool("MONGODB_TRANSACTIONS", true),
		RedisAddress:      GetEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:     GetEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:           GetEnvInt("REDIS_DB", 0),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		InviteCode:        os.Getenv("ADMIN_INVITE_CODE"),
		TokenTTL:          GetEnvDuration("TOKEN_TTL", 12*time.Hour),
		CartTTL:           GetEnvDuration("CART_TTL", 2*time.Hour),
		CatalogCacheTTL:   GetEnvDuration("CATALOG_CACHE_TTL", 30*time.Second),
		Timezone:          GetEnvOrDefault("TIMEZONE", "America/Fortaleza"),
		CORSOrigins:       splitList(GetEnvOrDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		OTelEnabled:       GetEnvBool("OTEL_ENABLED", false),
		AIEndpoint:        os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AIKey:             os.Getenv("AZURE_OPENAI_API_KEY"),
		AIDeployment:      GetEnvOrDefault("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-35-turbo"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate reports the first configuration problem that would prevent startup.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required with STORE_DRIVER=%s", StoreDriverMongo)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q: must be %q or %q", c.StoreDriver, StoreDriverMongo, StoreDriverMemory)
	}
	if c.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured reporting timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
