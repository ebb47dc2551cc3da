package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/booktracker/internal/metrics"
	"github.com/hitoshi/booktracker/internal/model"
)

type loginRecorder struct {
	metrics.Nop
	success, failure int
}

func (r *loginRecorder) RecordLogin(ok bool) {
	if ok {
		r.success++
	} else {
		r.failure++
	}
}

func newTestAuthenticator(rec metrics.Recorder) *Authenticator {
	return NewAuthenticator(Config{Username: "admin", Password: "admin123", TokenTTL: time.Hour}, NewTokenStore(nil), rec)
}

func apiCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	return apiErr.Code
}

func TestLogin_VerifyUntilLogout(t *testing.T) {
	rec := &loginRecorder{}
	a := newTestAuthenticator(rec)

	token, err := a.Login("admin", "admin123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("len(token) = %d, want 64 hex chars", len(token))
	}
	if !a.Verify(token) {
		t.Error("token should verify after login")
	}
	if rec.success != 1 {
		t.Errorf("success = %d, want 1", rec.success)
	}

	a.Logout(token)
	if a.Verify(token) {
		t.Error("token should not verify after logout")
	}
	// 2回目のログアウトは何もしない
	a.Logout(token)
}

func TestLogin_TokensAreDistinct(t *testing.T) {
	a := newTestAuthenticator(nil)

	t1, _ := a.Login("admin", "admin123")
	t2, _ := a.Login("admin", "admin123")
	if t1 == t2 {
		t.Error("each login should issue a new token")
	}
	if !a.Verify(t1) || !a.Verify(t2) {
		t.Error("both tokens should be valid")
	}
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		pass     string
		wantCode string
	}{
		{"missing username", "", "admin123", model.ErrCodeValidation},
		{"missing password", "admin", "", model.ErrCodeValidation},
		{"wrong password", "admin", "admin124", model.ErrCodeInvalidCredentials},
		{"wrong username", "root", "admin123", model.ErrCodeInvalidCredentials},
		{"prefix of password", "admin", "admin", model.ErrCodeInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &loginRecorder{}
			a := newTestAuthenticator(rec)

			token, err := a.Login(tt.user, tt.pass)
			if code := apiCode(t, err); code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
			if token != "" {
				t.Errorf("token = %q, want empty", token)
			}
			if a.store.Len() != 0 {
				t.Error("failed login must not register a token")
			}
		})
	}
}

func TestNewAuthenticator_DefaultTTL(t *testing.T) {
	a := NewAuthenticator(Config{Username: "admin", Password: "x"}, NewTokenStore(nil), nil)
	if a.cfg.TokenTTL != DefaultTokenTTL {
		t.Errorf("TokenTTL = %v, want %v", a.cfg.TokenTTL, DefaultTokenTTL)
	}
}

// ログイン・ログアウトのログに有効なトークン数が出力されることを検証
func TestLoginLogout_LogsActiveTokens(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	a := newTestAuthenticator(nil)
	first, err := a.Login("admin", "admin123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if _, err := a.Login("admin", "admin123"); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	a.Logout(first)

	var got []float64
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var entry map[string]any
		if err := dec.Decode(&entry); err != nil {
			t.Fatalf("invalid log line: %v", err)
		}
		if n, ok := entry["active_tokens"].(float64); ok {
			got = append(got, n)
		}
	}
	want := []float64{1, 2, 1}
	if len(got) != len(want) {
		t.Fatalf("active_tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("active_tokens[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
