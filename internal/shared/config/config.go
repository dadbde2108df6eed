package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxUploadBytes = 10 << 20 // 10MB

	ModeTest       = "test"
	ModeProduction = "production"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool
	DatabaseURL     string
	JWTSecret       string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	AuthUIRedirectURL  string

	// BackendMode selects between the test and production base URLs below.
	BackendMode            string
	ProcessingBaseURL      string
	ProcessingTestBaseURL  string
	InferenceBaseURL       string
	InferenceTestBaseURL   string
	ProcessingTransport    string
	ProcessingQueueURL     string
	NotifyTimeout          time.Duration
	InferenceTimeout       time.Duration
	CleanupTimeout         time.Duration
	MaxUploadBytes         int64
	AllowedTypes           map[string]string
	ChatSessionMaxAge      time.Duration
	RateLimitUploadsPerMin int
	RateLimitChatPerMin    int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	cfg := Config{
		Port:                   getEnv("PORT", "8080"),
		Env:                    env,
		CORSAllowOrigin:        splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:        normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:          getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:              getEnv("AWS_REGION", ""),
		S3Bucket:               getEnv("S3_BUCKET", ""),
		S3Prefix:               getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:            getEnv("SSE_KMS_KEY_ID", ""),
		MinioEndpoint:          getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:         getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:         getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:            getEnv("MINIO_BUCKET", "documents"),
		MinioUseSSL:            getBool("MINIO_USE_SSL", false),
		DatabaseURL:            dbURL,
		JWTSecret:              getEnv("JWT_SECRET", ""),
		GoogleClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:      getEnv("GOOGLE_REDIRECT_URL", ""),
		AuthUIRedirectURL:      getEnv("AUTH_UI_REDIRECT_URL", "http://localhost:5173/auth/callback"),
		BackendMode:            normalizeMode(getEnv("BACKEND_MODE", ModeProduction)),
		ProcessingBaseURL:      getEnv("PROCESSING_BASE_URL", "http://localhost:5678/webhook"),
		ProcessingTestBaseURL:  getEnv("PROCESSING_TEST_BASE_URL", "http://localhost:5678/webhook-test"),
		InferenceBaseURL:       getEnv("INFERENCE_BASE_URL", "http://localhost:5678/webhook"),
		InferenceTestBaseURL:   getEnv("INFERENCE_TEST_BASE_URL", "http://localhost:5678/webhook-test"),
		ProcessingTransport:    normalizeTransport(getEnv("PROCESSING_TRANSPORT", "webhook")),
		ProcessingQueueURL:     getEnv("PROCESSING_QUEUE_URL", ""),
		NotifyTimeout:          getDuration("NOTIFY_TIMEOUT", 15*time.Second),
		InferenceTimeout:       getDuration("INFERENCE_TIMEOUT", 60*time.Second),
		CleanupTimeout:         getDuration("CLEANUP_TIMEOUT", 10*time.Second),
		MaxUploadBytes:         getInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		AllowedTypes:           DefaultAllowedTypes(),
		ChatSessionMaxAge:      getDuration("CHAT_SESSION_MAX_AGE", 2*time.Hour),
		RateLimitUploadsPerMin: int(getInt64("RATE_LIMIT_UPLOADS_PER_MIN", 20)),
		RateLimitChatPerMin:    int(getInt64("RATE_LIMIT_CHAT_PER_MIN", 30)),
	}

	if raw := strings.TrimSpace(os.Getenv("ALLOWED_TYPES")); raw != "" {
		types, err := parseAllowedTypes(raw)
		if err != nil {
			return Config{}, err
		}
		cfg.AllowedTypes = types
	}
	if path := strings.TrimSpace(os.Getenv("ALLOWED_TYPES_FILE")); path != "" {
		file, err := LoadAllowListFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.AllowedTypes = file.Types
		if file.MaxUploadBytes > 0 {
			cfg.MaxUploadBytes = file.MaxUploadBytes
		}
	}

	if env == "production" && strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required in production")
	}
	return cfg, nil
}

// ProcessingURL returns the processing backend base URL for the configured mode.
func (c Config) ProcessingURL() string {
	if c.BackendMode == ModeTest && c.ProcessingTestBaseURL != "" {
		return c.ProcessingTestBaseURL
	}
	return c.ProcessingBaseURL
}

// InferenceURL returns the inference backend base URL for the configured mode.
func (c Config) InferenceURL() string {
	if c.BackendMode == ModeTest && c.InferenceTestBaseURL != "" {
		return c.InferenceTestBaseURL
	}
	return c.InferenceBaseURL
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config %s invalid bool: %v", key, err)
		return def
	}
	return val
}

func getInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

// getDuration accepts Go durations ("45s") or plain seconds ("45").
func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration %q", key, raw)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "test", "testing":
		return ModeTest
	default:
		return ModeProduction
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeTransport(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	case "none", "off":
		return "none"
	default:
		return "webhook"
	}
}
