package handler

import (
	"bytes"
	"context"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/booktracker/internal/middleware"
	"github.com/hitoshi/booktracker/internal/model"
	"github.com/hitoshi/booktracker/internal/report"
)

// EntryLister は記録一覧の取得に必要なインターフェース。
type EntryLister interface {
	List(ctx context.Context) ([]*model.Entry, error)
}

// TeamLister はチーム一覧の取得に必要なインターフェース。
type TeamLister interface {
	List(ctx context.Context) ([]model.Team, error)
}

// ReportHandler は集計・エクスポートのHTTPハンドラー。
// 集計は毎回全記録を読み込んで行う。
type ReportHandler struct {
	entries EntryLister
	teams   TeamLister
}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler(entries EntryLister, teams TeamLister) *ReportHandler {
	return &ReportHandler{entries: entries, teams: teams}
}

// Reports はチームごとのページ数集計を返す。
// GET /api/reports?platform=&team=&member=&q=
func (h *ReportHandler) Reports(w http.ResponseWriter, r *http.Request) {
	totals, ok := h.aggregate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// ReportsHTML は集計結果をHTMLのサマリーとして返す。
// GET /api/reports/html
func (h *ReportHandler) ReportsHTML(w http.ResponseWriter, r *http.Request) {
	totals, ok := h.aggregate(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteHTML(&buf, totals); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// MemberEntries はメンバー個人の記録と合計を返す。
// GET /api/members/{handle}/entries?platform=
func (h *ReportHandler) MemberEntries(w http.ResponseWriter, r *http.Request) {
	platform := model.PlatformDiscord
	if p := r.URL.Query().Get("platform"); p != "" {
		platform = model.Platform(p)
	}
	if !platform.Valid() {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid platform"))
		return
	}

	entries, err := h.entries.List(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.SummarizeMember(entries, platform, chi.URLParam(r, "handle")))
}

// Export は記録をCSVとしてダウンロードさせる。アーカイブ済みの記録も含む。
// GET /api/export?team=
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	team := r.URL.Query().Get("team")

	entries, err := h.entries.List(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	var buf bytes.Buffer
	rows, err := report.WriteCSV(&buf, entries, team)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	slog.Info("entries exported",
		slog.String("team", team),
		slog.Int("rows", rows),
	)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", contentDisposition(report.ExportFilename(team)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// contentDisposition はファイル名を必要に応じてクォート・エンコードした添付ヘッダー値を返す。
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

func (h *ReportHandler) aggregate(w http.ResponseWriter, r *http.Request) ([]report.TeamTotal, bool) {
	q := r.URL.Query()
	filter := report.Filter{
		Platform: model.Platform(q.Get("platform")),
		Team:     q.Get("team"),
		Member:   q.Get("member"),
		Query:    q.Get("q"),
	}
	if filter.Platform != "" && !filter.Platform.Valid() {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("Invalid platform"))
		return nil, false
	}

	entries, err := h.entries.List(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return nil, false
	}
	teams, err := h.teams.List(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return nil, false
	}

	totals := report.Aggregate(entries, teams, filter)
	if totals == nil {
		totals = []report.TeamTotal{}
	}
	return totals, true
}
