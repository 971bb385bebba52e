package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Env     string
	Port    int
	DBURL   string
	Storage string

	JWTSecret string
	TokenTTL  time.Duration

	CORSOrigins  []string
	MaxBodyBytes int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	UploadDir      string
	MaxUploadBytes int64
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3PublicURL    string

	OTLPEndpoint string

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", "err", err)
	}

	return Config{
		Env:     getEnv("APP_ENV", "dev"),
		Port:    getEnvInt("PORT", 3001),
		DBURL:   getEnv("DATABASE_URL", buildDBURL()),
		Storage: strings.ToLower(getEnv("STORAGE", StoragePostgres)),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  time.Duration(getEnvInt("JWT_TTL_MINUTES", 60)) * time.Minute,

		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getEnvInt("CACHE_TTL_SECONDS", 30)) * time.Second,

		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 5<<20)),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3PublicURL:    os.Getenv("S3_PUBLIC_URL"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
	}
}

// Validate reports configuration that must stop the process at startup.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}

	if c.Storage != StoragePostgres && c.Storage != StorageMemory {
		return errors.New("STORAGE must be postgres or memory")
	}

	return nil
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "bookstore")
	pass := getEnv("DB_PASSWORD", "bookstore")
	name := getEnv("DB_NAME", "bookstore")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("ignoring non-numeric env value", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
