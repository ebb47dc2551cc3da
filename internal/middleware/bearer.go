// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"net/http"
	"strings"

	"github.com/hitoshi/booktracker/internal/model"
)

// TokenVerifier はベアラートークンの検証に必要なインターフェース。
// auth.Authenticatorが実装する。
type TokenVerifier interface {
	Verify(token string) bool
}

// BearerToken は Authorization: Bearer <token> ヘッダーからトークンを取り出す。
// ヘッダーが無い、または形式が異なる場合は空文字列を返す。
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// NewBearerAuthMiddleware は管理者トークンを要求するミドルウェアを返す。
// トークンが無い・無効・期限切れの場合は401を返す。
func NewBearerAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" || !verifier.Verify(token) {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
