package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv はテスト対象の環境変数を未設定の状態にする。
// t.Setenvで一旦登録してから削除することで、テスト終了時に元の値へ戻る。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORAGE_BACKEND", "DATABASE_URL", "DATA_DIR", "ENTRIES_FILE", "TEAMS_FILE",
		"ADMIN_USERNAME", "ADMIN_PASSWORD", "TOKEN_TTL", "SERVER_PORT", "CORS_ALLOWED_ORIGIN",
		"RATE_LIMIT_SUBMIT", "RATE_LIMIT_LOGIN", "BOOK_SEARCH_ENDPOINT", "BOOK_SEARCH_TIMEOUT",
		"LOG_LEVEL", "API_BASE_URL", "LOCAL_STORE_PATH",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// noEnvFile は存在しない.envのパスを返す。
func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), ".env")
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(noEnvFile(t))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.StorageBackend != BackendFile {
		t.Errorf("StorageBackend = %q, want %q", cfg.StorageBackend, BackendFile)
	}
	if cfg.EntriesFile != "data.json" {
		t.Errorf("EntriesFile = %q, want %q", cfg.EntriesFile, "data.json")
	}
	if cfg.TeamsFile != "teams.json" {
		t.Errorf("TeamsFile = %q, want %q", cfg.TeamsFile, "teams.json")
	}
	if cfg.AdminUsername != "admin" || cfg.AdminPassword != "admin123" {
		t.Errorf("admin = %q/%q, want admin/admin123", cfg.AdminUsername, cfg.AdminPassword)
	}
	if !cfg.UsesDefaultCredentials() {
		t.Error("UsesDefaultCredentials should be true")
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want %v", cfg.TokenTTL, 24*time.Hour)
	}
	if cfg.ServerPort != "3000" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "3000")
	}
	if cfg.CORSAllowedOrigin != "*" {
		t.Errorf("CORSAllowedOrigin = %q, want *", cfg.CORSAllowedOrigin)
	}
	if cfg.RateLimitSubmit != 30 || cfg.RateLimitLogin != 10 {
		t.Errorf("rate limits = %d/%d, want 30/10", cfg.RateLimitSubmit, cfg.RateLimitLogin)
	}
	if cfg.BookSearchEndpoint != "https://openlibrary.org/search.json" {
		t.Errorf("BookSearchEndpoint = %q", cfg.BookSearchEndpoint)
	}
	if cfg.BookSearchTimeout != 5*time.Second {
		t.Errorf("BookSearchTimeout = %v, want 5s", cfg.BookSearchTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.APIBaseURL != "http://localhost:3000" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.LocalStorePath != "" {
		t.Errorf("LocalStorePath = %q, want empty", cfg.LocalStorePath)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", "/var/lib/booktracker")
	t.Setenv("ADMIN_USERNAME", "librarian")
	t.Setenv("ADMIN_PASSWORD", "s3cret")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("RATE_LIMIT_SUBMIT", "5")
	t.Setenv("RATE_LIMIT_LOGIN", "not-a-number")
	t.Setenv("LOCAL_STORE_PATH", "/tmp/local.db")

	cfg, err := Load(noEnvFile(t))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.EntriesFile != filepath.Join("/var/lib/booktracker", "data.json") {
		t.Errorf("EntriesFile = %q", cfg.EntriesFile)
	}
	if cfg.UsesDefaultCredentials() {
		t.Error("UsesDefaultCredentials should be false")
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("TokenTTL = %v, want 2h", cfg.TokenTTL)
	}
	if cfg.APIBaseURL != "http://localhost:8081" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RateLimitSubmit != 5 {
		t.Errorf("RateLimitSubmit = %d, want 5", cfg.RateLimitSubmit)
	}
	// 数値として解釈できない値は既定値になる
	if cfg.RateLimitLogin != 10 {
		t.Errorf("RateLimitLogin = %d, want default 10", cfg.RateLimitLogin)
	}
	if cfg.LocalStorePath != "/tmp/local.db" {
		t.Errorf("LocalStorePath = %q", cfg.LocalStorePath)
	}
}

func TestLoad_StorageBackendSelection(t *testing.T) {
	tests := []struct {
		name        string
		backend     string
		databaseURL string
		want        Backend
		wantErr     bool
	}{
		{name: "unset without database", want: BackendFile},
		{name: "unset with database", databaseURL: "postgres://localhost/db", want: BackendPostgres},
		{name: "explicit file wins over database", backend: "file", databaseURL: "postgres://localhost/db", want: BackendFile},
		{name: "explicit postgres", backend: "postgres", databaseURL: "postgres://localhost/db", want: BackendPostgres},
		{name: "postgres without database", backend: "postgres", wantErr: true},
		{name: "unknown backend", backend: "sqlite", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.backend != "" {
				t.Setenv("STORAGE_BACKEND", tt.backend)
			}
			if tt.databaseURL != "" {
				t.Setenv("DATABASE_URL", tt.databaseURL)
			}

			cfg, err := Load(noEnvFile(t))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cfg.StorageBackend != tt.want {
				t.Errorf("StorageBackend = %q, want %q", cfg.StorageBackend, tt.want)
			}
		})
	}
}

func TestLoad_MissingDatabaseURL_NamesVariable(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_BACKEND", "postgres")

	_, err := Load(noEnvFile(t))
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("err = %v, want mention of DATABASE_URL", err)
	}
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9000")

	path := filepath.Join(t.TempDir(), ".env")
	content := "ADMIN_USERNAME=fromfile\nSERVER_PORT=1234\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("ADMIN_USERNAME") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.AdminUsername != "fromfile" {
		t.Errorf("AdminUsername = %q, want fromfile", cfg.AdminUsername)
	}
	// 既に設定済みの環境変数は.envで上書きされない
	if cfg.ServerPort != "9000" {
		t.Errorf("ServerPort = %q, want 9000", cfg.ServerPort)
	}
}

func TestLoad_InvalidTokenTTL(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN_TTL", "-1h")

	if _, err := Load(noEnvFile(t)); err == nil {
		t.Error("expected error for negative TOKEN_TTL")
	}
}
