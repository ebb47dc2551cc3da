// Package auth は管理者ログインとベアラートークンの発行・検証を提供する。
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/booktracker/internal/metrics"
	"github.com/hitoshi/booktracker/internal/model"
)

// DefaultTokenTTL はトークンの既定の有効期間。
const DefaultTokenTTL = 24 * time.Hour

// Config は管理者認証の設定。
type Config struct {
	Username string
	Password string
	TokenTTL time.Duration
}

// Authenticator は単一の管理者資格情報でログインを受け付け、トークンを発行する。
type Authenticator struct {
	cfg     Config
	store   *TokenStore
	metrics metrics.Recorder
}

// NewAuthenticator はAuthenticatorを生成する。
// storeはベアラー認証ミドルウェアと共有するため、呼び出し側が所有する。
func NewAuthenticator(cfg Config, store *TokenStore, rec metrics.Recorder) *Authenticator {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Authenticator{cfg: cfg, store: store, metrics: rec}
}

// Login は資格情報を照合し、一致すれば新しいトークンを返す。
// 入力が欠けている場合はValidationError、不一致の場合はInvalidCredentialsを返す。
func (a *Authenticator) Login(username, password string) (string, error) {
	if username == "" || password == "" {
		return "", model.NewValidationError("Missing username or password")
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.Password)) == 1
	if !userOK || !passOK {
		a.metrics.RecordLogin(false)
		slog.Warn("admin login rejected", slog.String("username", username))
		return "", model.NewInvalidCredentialsError()
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	a.store.Add(token, a.cfg.TokenTTL)
	a.metrics.RecordLogin(true)

	slog.Info("admin logged in",
		slog.Duration("ttl", a.cfg.TokenTTL),
		slog.Int("active_tokens", a.store.Len()),
	)
	return token, nil
}

// Verify はトークンが有効かを返す。
func (a *Authenticator) Verify(token string) bool {
	return a.store.Valid(token)
}

// Logout はトークンを即座に無効化する。未登録のトークンでもエラーにしない。
func (a *Authenticator) Logout(token string) {
	if a.store.Remove(token) {
		slog.Info("admin logged out", slog.Int("active_tokens", a.store.Len()))
	}
}

// generateToken は32バイトの乱数を16進文字列で返す。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
