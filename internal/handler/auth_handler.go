package handler

import (
	"net/http"

	"github.com/hitoshi/booktracker/internal/middleware"
	"github.com/hitoshi/booktracker/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(username, password string) (string, error)
	Verify(token string) bool
	Logout(token string)
}

// AuthHandler は管理者認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	OK      bool   `json:"ok"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

// tokenRequest はトークンをボディで渡すリクエスト。
type tokenRequest struct {
	Token string `json:"token"`
}

type messageResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Login は管理者の資格情報を検証しトークンを発行する。
// POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{OK: true, Token: token, Message: "Logged in successfully"})
}

// Logout はトークンを無効化する。トークンが無くても成功を返す。
// POST /api/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := requestToken(r); token != "" {
		h.service.Logout(token)
	}
	writeJSON(w, http.StatusOK, messageResponse{OK: true, Message: "Logged out"})
}

// Verify はトークンが有効かどうかを返す。
// POST /api/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if !h.service.Verify(requestToken(r)) {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// requestToken はAuthorizationヘッダー、なければJSONボディのtokenフィールドからトークンを取り出す。
func requestToken(r *http.Request) string {
	if token := middleware.BearerToken(r); token != "" {
		return token
	}
	var req tokenRequest
	if r.Body == nil {
		return ""
	}
	if err := decodeBody(r, &req); err != nil {
		return ""
	}
	return req.Token
}
