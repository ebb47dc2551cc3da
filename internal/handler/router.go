package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/booktracker/internal/metrics"
	"github.com/hitoshi/booktracker/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.Recorder
	MetricsHandler    http.Handler
	CORSAllowedOrigin string
	LoginLimiter      *middleware.RateLimiter
	SubmitLimiter     *middleware.RateLimiter
	TokenVerifier     middleware.TokenVerifier

	// 認証
	AuthService AuthServiceInterface

	// 記録・チーム
	EntryService EntryServiceInterface
	TeamService  TeamServiceInterface

	// 書籍検索
	BookSearcher BookSearcher
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS
//
// 管理者向けルートはBearerトークン認証を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(rec))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	entryHandler := NewEntryHandler(deps.EntryService)
	teamHandler := NewTeamHandler(deps.TeamService)
	reportHandler := NewReportHandler(deps.EntryService, deps.TeamService)
	bookHandler := NewBookHandler(deps.BookSearcher)
	requireAdmin := middleware.NewBearerAuthMiddleware(deps.TokenVerifier)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", Ping)

		// 認証
		r.With(limit(deps.LoginLimiter)).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Post("/verify", authHandler.Verify)

		// 読書記録
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", entryHandler.ListEntries)
			r.With(limit(deps.SubmitLimiter)).Post("/", entryHandler.SubmitEntry)
			r.With(requireAdmin).Delete("/", entryHandler.ClearEntries)

			r.Put("/{id}", entryHandler.UpdateEntry)
			r.Delete("/{id}", entryHandler.DeleteEntry)
		})

		// チーム
		r.Route("/teams", func(r chi.Router) {
			r.Get("/", teamHandler.ListTeams)
			r.With(requireAdmin).Post("/", teamHandler.AddTeam)
			r.With(requireAdmin).Put("/{name}", teamHandler.RenameTeam)
			r.With(requireAdmin).Delete("/{name}", teamHandler.RemoveTeam)
		})

		// 集計・エクスポート
		r.Get("/reports", reportHandler.Reports)
		r.Get("/reports/html", reportHandler.ReportsHTML)
		r.Get("/members/{handle}/entries", reportHandler.MemberEntries)
		r.With(requireAdmin).Get("/export", reportHandler.Export)

		r.Get("/books/search", bookHandler.Search)
	})

	return r
}

// Ping は死活監視用のエンドポイント。
// GET /api/ping
func Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// limit はレートリミッターが未設定の場合は何もしないミドルウェアを返す。
func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware()
}
