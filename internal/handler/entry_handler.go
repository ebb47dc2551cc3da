package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/booktracker/internal/entry"
	"github.com/hitoshi/booktracker/internal/middleware"
	"github.com/hitoshi/booktracker/internal/model"
)

// EntryServiceInterface は記録ハンドラーが必要とするサービスインターフェース。
type EntryServiceInterface interface {
	List(ctx context.Context) ([]*model.Entry, error)
	Submit(ctx context.Context, in entry.SubmitInput) (*model.Entry, error)
	Update(ctx context.Context, id int64, patch model.EntryPatch) (*model.Entry, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context, platform model.Platform) (int64, error)
}

// EntryHandler は読書記録のHTTPハンドラー。
type EntryHandler struct {
	service EntryServiceInterface
}

// NewEntryHandler はEntryHandlerを生成する。
func NewEntryHandler(service EntryServiceInterface) *EntryHandler {
	return &EntryHandler{service: service}
}

// clearResponse は一括削除のレスポンス。
type clearResponse struct {
	OK      bool  `json:"ok"`
	Removed int64 `json:"removed"`
}

// ListEntries は全記録（アーカイブ済みを含む）を返す。
// GET /api/entries
func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*model.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// SubmitEntry は新しい記録を登録する。
// POST /api/entries
func (h *EntryHandler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	var in entry.SubmitInput
	if !decodeJSON(w, r, &in) {
		return
	}

	saved, err := h.service.Submit(r.Context(), in)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// UpdateEntry は記録を部分更新する。
// PUT /api/entries/{id}
func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEntryID(w, r)
	if !ok {
		return
	}

	var patch model.EntryPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	updated, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteEntry は記録を論理削除する。
// DELETE /api/entries/{id}
func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEntryID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// ClearEntries は記録を物理削除する。platformクエリ指定時はそのプラットフォームのみ。
// DELETE /api/entries?platform=
func (h *EntryHandler) ClearEntries(w http.ResponseWriter, r *http.Request) {
	platform := model.Platform(r.URL.Query().Get("platform"))

	removed, err := h.service.Clear(r.Context(), platform)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{OK: true, Removed: removed})
}

// parseEntryID はURLパラメータidを整数として取り出す。
// 数値でないIDは存在しない記録として扱う。
func parseEntryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     model.ErrCodeEntryNotFound,
			Message:  "Entry not found: " + raw,
			Category: "entry",
			Action:   "Reload the entry list and try again.",
		})
		return 0, false
	}
	return id, true
}
