package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	Archive   ArchiveConfig
	Auth      AuthConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	WindowSeconds int
	UseRedis      bool
}

// StoreConfig configures the document store and trash vault.
type StoreConfig struct {
	// SafeDelete redirects every delete into the trash vault.
	SafeDelete bool
	// TrashCollection is the holding collection for soft-deleted documents.
	TrashCollection string
	// GlobalCollections are exempt from account scoping (comma-separated env).
	GlobalCollections []string
	// GrantsCollection holds the {user, account, level} authorization facts.
	GrantsCollection string
}

// ArchiveConfig configures the optional object-storage sink for purged trash.
type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type AuthConfig struct {
	// OIDCIssuer enables the real verifier when set.
	OIDCIssuer   string
	OIDCClientID string
	// JWTSecret enables an HMAC verifier when no OIDC issuer is configured.
	JWTSecret string
	// InsecureTokens accepts unverified JWT claims; integration tests only.
	InsecureTokens bool
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5020")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "docgate")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("RATE_LIMIT_RPS", 50)
	viper.SetDefault("RATE_LIMIT_BURST", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("TRASH_COLLECTION", "trash")
	viper.SetDefault("GRANTS_COLLECTION", "grants")
	viper.SetDefault("ARCHIVE_BUCKET", "docgate-trash")

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
		},
		Store: StoreConfig{
			SafeDelete:        viper.GetBool("SAFE_DELETE"),
			TrashCollection:   viper.GetString("TRASH_COLLECTION"),
			GlobalCollections: splitList(viper.GetString("GLOBAL_COLLECTIONS")),
			GrantsCollection:  viper.GetString("GRANTS_COLLECTION"),
		},
		Archive: ArchiveConfig{
			Endpoint:  viper.GetString("ARCHIVE_ENDPOINT"),
			AccessKey: os.Getenv("ARCHIVE_ACCESS_KEY"),
			SecretKey: os.Getenv("ARCHIVE_SECRET_KEY"),
			UseSSL:    viper.GetBool("ARCHIVE_USE_SSL"),
			Bucket:    viper.GetString("ARCHIVE_BUCKET"),
		},
		Auth: AuthConfig{
			OIDCIssuer:     viper.GetString("OIDC_ISSUER"),
			OIDCClientID:   viper.GetString("OIDC_CLIENT_ID"),
			JWTSecret:      os.Getenv("JWT_SECRET"),
			InsecureTokens: viper.GetBool("ALLOW_INSECURE_TOKEN"),
		},
	}

	return cfg, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
