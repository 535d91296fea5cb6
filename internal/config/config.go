package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database (optional; without it finished videos are not recorded)
	DatabaseURL string

	// Redis (optional; without it progress updates are not published)
	RedisURL string

	// Supabase storage (optional; without it outputs stay on local disk)
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Pixabay (stock video and music search)
	PixabayAPIKey string

	// Script generation. ContentProvider selects between "openai",
	// "gemini" and the built-in library ("library").
	ContentProvider string
	OpenAIKey       string
	GeminiKey       string

	// Rendering
	FFmpegPath  string
	FFprobePath string
	TempDir     string

	// Scheduler
	WorkerCount int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "stoic-videos"),
		PixabayAPIKey:         getEnv("PIXABAY_API_KEY", ""),
		ContentProvider:       getEnv("CONTENT_PROVIDER", "library"),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		GeminiKey:             getEnv("GEMINI_API_KEY", ""),
		FFmpegPath:            getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:           getEnv("FFPROBE_PATH", "ffprobe"),
		TempDir:               getEnv("TEMP_DIR", os.TempDir()),
		WorkerCount:           getEnvInt("WORKER_COUNT", 2),
	}

	// Validate required fields
	if cfg.PixabayAPIKey == "" {
		return nil, fmt.Errorf("PIXABAY_API_KEY is required")
	}

	if cfg.ContentProvider == "openai" && cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required when CONTENT_PROVIDER=openai")
	}
	if cfg.ContentProvider == "gemini" && cfg.GeminiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required when CONTENT_PROVIDER=gemini")
	}

	if (cfg.SupabaseURL == "") != (cfg.SupabaseServiceKey == "") {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY must be set together")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
