package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Server struct {
	Port          int    `validate:"min=1,max=65535"`
	Env           string `validate:"oneof=development production test"`
	PublicURL     string `validate:"required"`
	AllowedOrigin string
}

type DB struct {
	URL        string
	DbHOST     string
	DbPORT     string
	DbUSER     string
	DbPASSWORD string
	DbNAME     string
	DbSSLMODE  string
	MaxOpen    int `validate:"min=1"`
	MaxIdle    int `validate:"min=0"`
	Migrations string
}

// DSN returns DATABASE_URL when set, otherwise a key/value connection string.
func (d DB) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.DbHOST, d.DbPORT, d.DbUSER, d.DbPASSWORD, d.DbNAME, d.DbSSLMODE,
	)
}

type MinIO struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	UseSSL     bool
	Region     string
	PublicURL  string
}

func (m MinIO) Enabled() bool {
	return m.Endpoint != ""
}

type Redis struct {
	URL     string
	Channel string
}

func (r Redis) Enabled() bool {
	return r.URL != ""
}

type OAuthProvider struct {
	ClientID     string
	ClientSecret string
}

type OAuth struct {
	Google   OAuthProvider
	GitHub   OAuthProvider
	Facebook OAuthProvider
	// CallbackURL is formatted with the provider name, e.g. http://host/api/auth/%s/callback.
	CallbackURL string
}

type RateLimit struct {
	RequestsPerSecond float64 `validate:"gt=0"`
	Burst             int     `validate:"min=1"`
}

type Config struct {
	Server               Server
	DB                   DB
	MinIO                MinIO
	Redis                Redis
	OAuth                OAuth
	RateLimit            RateLimit
	JWTSecretKey         string        `validate:"required,min=16"`
	AccessTokenDuration  time.Duration `validate:"gt=0"`
	RefreshTokenDuration time.Duration `validate:"gt=0"`
	MaxUploadSize        int64         `validate:"gt=0"`
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return duration
}

func parseMaxUploadSize(value string) int64 {
	size, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 5 * 1024 * 1024
	}
	return size
}

func LoadDB() DB {
	return DB{
		URL:        getEnv("DATABASE_URL", ""),
		DbHOST:     getEnv("DB_HOST", "localhost"),
		DbPORT:     getEnv("DB_PORT", "5432"),
		DbUSER:     getEnv("DB_USER", "postgres"),
		DbPASSWORD: getEnv("DB_PASSWORD", "password"),
		DbNAME:     getEnv("DB_NAME", "microsocial"),
		DbSSLMODE:  getEnv("DB_SSLMODE", "disable"),
		MaxOpen:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdle:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		Migrations: getEnv("DB_MIGRATIONS", "migrations/001_create_tables.sql"),
	}
}

func LoadMinIO() MinIO {
	return MinIO{
		Endpoint:   getEnv("MINIO_ENDPOINT", ""),
		AccessKey:  getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey:  getEnv("MINIO_SECRET_KEY", "minioadmin"),
		BucketName: getEnv("MINIO_BUCKET_NAME", "profile-images"),
		UseSSL:     getEnvBool("MINIO_USE_SSL", false),
		Region:     getEnv("MINIO_REGION", "us-east-1"),
		PublicURL:  strings.TrimRight(getEnv("MINIO_PUBLIC_URL", ""), "/"),
	}
}

func LoadRedis() Redis {
	return Redis{
		URL:     getEnv("REDIS_URL", ""),
		Channel: getEnv("REDIS_EVENTS_CHANNEL", "microsocial:events"),
	}
}

func LoadOAuth(publicURL string) OAuth {
	return OAuth{
		Google: OAuthProvider{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		},
		GitHub: OAuthProvider{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		},
		Facebook: OAuthProvider{
			ClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
			ClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
		},
		CallbackURL: getEnv("OAUTH_CALLBACK_URL", strings.TrimRight(publicURL, "/")+"/api/auth/%s/callback"),
	}
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	publicURL := getEnv("PUBLIC_URL", "http://localhost:8080")

	return &Config{
		Server: Server{
			Port:          getEnvAsInt("SERVER_PORT", 8080),
			Env:           getEnv("APP_ENV", "development"),
			PublicURL:     publicURL,
			AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
		},
		DB:    LoadDB(),
		MinIO: LoadMinIO(),
		Redis: LoadRedis(),
		OAuth: LoadOAuth(publicURL),
		RateLimit: RateLimit{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 5),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		JWTSecretKey:         getEnv("JWT_SECRET_KEY", ""),
		AccessTokenDuration:  parseDuration(getEnv("ACCESS_TOKEN_DURATION", "2h"), 2*time.Hour),
		RefreshTokenDuration: parseDuration(getEnv("REFRESH_TOKEN_DURATION", "168h"), 168*time.Hour),
		MaxUploadSize:        parseMaxUploadSize(getEnv("MAX_UPLOAD_SIZE", "5242880")),
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsDevelopment is used to pick the logger encoder.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}
