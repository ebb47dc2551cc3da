package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/booktracker/internal/model"
)

// BookSearcher は書籍検索のインターフェース。検索失敗時は空の結果を返す。
type BookSearcher interface {
	Search(ctx context.Context, query string) []model.BookCandidate
}

// BookHandler は書籍検索のHTTPハンドラー。
type BookHandler struct {
	searcher BookSearcher
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(searcher BookSearcher) *BookHandler {
	return &BookHandler{searcher: searcher}
}

// Search は書籍候補を返す。外部APIの失敗時も200で空配列を返す。
// GET /api/books/search?q=
func (h *BookHandler) Search(w http.ResponseWriter, r *http.Request) {
	results := h.searcher.Search(r.Context(), r.URL.Query().Get("q"))
	if results == nil {
		results = []model.BookCandidate{}
	}
	writeJSON(w, http.StatusOK, results)
}
