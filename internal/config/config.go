package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Backend はサーバー側の記録保存先の種類。
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendFile     Backend = "file"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	StorageBackend Backend
	DatabaseURL    string
	DataDir        string
	EntriesFile    string
	TeamsFile      string

	// Admin
	AdminUsername string
	AdminPassword string
	TokenTTL      time.Duration

	// Server
	ServerPort        string
	CORSAllowedOrigin string

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitSubmit int
	RateLimitLogin  int

	// Book search
	BookSearchEndpoint string
	BookSearchTimeout  time.Duration

	// Logging
	LogLevel string

	// Client
	APIBaseURL     string
	LocalStorePath string
}

// Load は環境変数からConfigを読み込む。
// envFilesが指定されなければカレントディレクトリの.envを読み込む。
// .envの値は既に設定済みの環境変数を上書きしない。
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	switch backend := Backend(os.Getenv("STORAGE_BACKEND")); backend {
	case "":
		cfg.StorageBackend = BackendFile
		if cfg.DatabaseURL != "" {
			cfg.StorageBackend = BackendPostgres
		}
	case BackendPostgres, BackendFile:
		cfg.StorageBackend = backend
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q (want postgres or file)", backend)
	}

	if cfg.StorageBackend == BackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
	}

	// Optional fields with defaults
	cfg.DataDir = getEnvString("DATA_DIR", ".")
	cfg.EntriesFile = getEnvString("ENTRIES_FILE", filepath.Join(cfg.DataDir, "data.json"))
	cfg.TeamsFile = getEnvString("TEAMS_FILE", filepath.Join(cfg.DataDir, "teams.json"))
	cfg.AdminUsername = getEnvString("ADMIN_USERNAME", defaultAdminUsername)
	cfg.AdminPassword = getEnvString("ADMIN_PASSWORD", defaultAdminPassword)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 24*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "3000")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.RateLimitSubmit = getEnvInt("RATE_LIMIT_SUBMIT", 30)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.BookSearchEndpoint = getEnvString("BOOK_SEARCH_ENDPOINT", "https://openlibrary.org/search.json")
	cfg.BookSearchTimeout = getEnvDuration("BOOK_SEARCH_TIMEOUT", 5*time.Second)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.APIBaseURL = getEnvString("API_BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.LocalStorePath = getEnvString("LOCAL_STORE_PATH", "")

	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive: %s", cfg.TokenTTL)
	}

	return cfg, nil
}

// UsesDefaultCredentials は管理者の資格情報が既定値のままかどうかを返す。
func (c *Config) UsesDefaultCredentials() bool {
	return c.AdminUsername == defaultAdminUsername && c.AdminPassword == defaultAdminPassword
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
