package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the API server and supporting
// services. Policy values (weekly cap, token grants) are fixed in the service
// layer and deliberately absent here.
type Config struct {
	ListenAddr             string
	MySQLDSN               string
	GoogleAIAPIKey         string
	JWTSecret              string
	SuperwallWebhookSecret string
	RequestTimeout         time.Duration
	GenerationConcurrency  int
	ImageModel             string
	VisionModel            string
	S3Endpoint             string
	S3Region               string
	S3AccessKey            string
	S3SecretKey            string
	S3Bucket               string
	S3PublicBaseURL        string
	S3UsePathStyle         bool
	S3Prefix               string
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:            getEnv("LISTEN_ADDR", ":8080"),
		RequestTimeout:        time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 60)),
		GenerationConcurrency: getInt("GENERATION_CONCURRENCY", 6),
		ImageModel:            getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image-preview"),
		VisionModel:           getEnv("GEMINI_VISION_MODEL", "gemini-2.5-flash"),
		S3Endpoint:            getEnv("S3_ENDPOINT", ""),
		S3Region:              os.Getenv("S3_REGION"),
		S3AccessKey:           os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:           os.Getenv("S3_SECRET_KEY"),
		S3Bucket:              os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:       os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:        getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:              getEnv("S3_PREFIX", "user_images"),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.GoogleAIAPIKey = os.Getenv("GOOGLE_AI_API_KEY")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.SuperwallWebhookSecret = os.Getenv("SUPERWALL_WEBHOOK_SECRET")

	if cfg.GenerationConcurrency < 1 {
		cfg.GenerationConcurrency = 1
	}

	var missing []string
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.GoogleAIAPIKey == "" {
		missing = append(missing, "GOOGLE_AI_API_KEY")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.SuperwallWebhookSecret == "" {
		missing = append(missing, "SUPERWALL_WEBHOOK_SECRET")
	}
	if cfg.S3Region == "" {
		missing = append(missing, "S3_REGION")
	}
	if cfg.S3AccessKey == "" {
		missing = append(missing, "S3_ACCESS_KEY")
	}
	if cfg.S3SecretKey == "" {
		missing = append(missing, "S3_SECRET_KEY")
	}
	if cfg.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if cfg.S3PublicBaseURL == "" {
		missing = append(missing, "S3_PUBLIC_BASE_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	// No env file is fine when the environment is already populated.
	return nil
}
