package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/booktracker/internal/middleware"
	"github.com/hitoshi/booktracker/internal/model"
)

// TeamServiceInterface はチームハンドラーが必要とするサービスインターフェース。
type TeamServiceInterface interface {
	List(ctx context.Context) ([]model.Team, error)
	Add(ctx context.Context, name string, platform model.Platform) ([]model.Team, error)
	Rename(ctx context.Context, oldName, newName string, platform model.Platform) ([]model.Team, error)
	Remove(ctx context.Context, name string) ([]model.Team, error)
}

// TeamHandler はチーム管理のHTTPハンドラー。
type TeamHandler struct {
	service TeamServiceInterface
}

// NewTeamHandler はTeamHandlerを生成する。
func NewTeamHandler(service TeamServiceInterface) *TeamHandler {
	return &TeamHandler{service: service}
}

// teamRequest はチーム追加・更新リクエストのボディ。
type teamRequest struct {
	Name     string         `json:"name"`
	Platform model.Platform `json:"platform"`
}

// teamsResponse はチーム変更後の一覧レスポンス。
type teamsResponse struct {
	OK    bool         `json:"ok"`
	Teams []model.Team `json:"teams"`
}

// ListTeams はチーム一覧を返す。
// GET /api/teams
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.List(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if teams == nil {
		teams = []model.Team{}
	}
	writeJSON(w, http.StatusOK, teams)
}

// AddTeam はチームを追加する。
// POST /api/teams
func (h *TeamHandler) AddTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	teams, err := h.service.Add(r.Context(), req.Name, req.Platform)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teamsResponse{OK: true, Teams: teams})
}

// RenameTeam はチーム名とプラットフォームを更新する。
// PUT /api/teams/{name}
func (h *TeamHandler) RenameTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	oldName, ok := teamNameParam(w, r)
	if !ok {
		return
	}

	teams, err := h.service.Rename(r.Context(), oldName, req.Name, req.Platform)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teamsResponse{OK: true, Teams: teams})
}

// RemoveTeam はチームを削除する。所属する記録は削除しない。
// DELETE /api/teams/{name}
func (h *TeamHandler) RemoveTeam(w http.ResponseWriter, r *http.Request) {
	name, ok := teamNameParam(w, r)
	if !ok {
		return
	}

	teams, err := h.service.Remove(r.Context(), name)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teamsResponse{OK: true, Teams: teams})
}

// teamNameParam はパスのチーム名を取り出す。
// chiはRawPathが設定されているとエスケープされたままのセグメントを返すため、その場合はデコードする。
func teamNameParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, true
	}
	decoded, err := url.PathUnescape(name)
	if err != nil {
		middleware.WriteError(w, r, model.NewValidationError("Invalid team name"))
		return "", false
	}
	return decoded, true
}
