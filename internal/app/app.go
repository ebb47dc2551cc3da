package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/booktracker/internal/auth"
	"github.com/hitoshi/booktracker/internal/booksearch"
	"github.com/hitoshi/booktracker/internal/config"
	"github.com/hitoshi/booktracker/internal/database"
	"github.com/hitoshi/booktracker/internal/entry"
	"github.com/hitoshi/booktracker/internal/handler"
	"github.com/hitoshi/booktracker/internal/logger"
	"github.com/hitoshi/booktracker/internal/metrics"
	"github.com/hitoshi/booktracker/internal/middleware"
	"github.com/hitoshi/booktracker/internal/repository"
	"github.com/hitoshi/booktracker/internal/security"
	"github.com/hitoshi/booktracker/internal/team"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "3000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("storage_backend", string(cfg.StorageBackend)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSubmit:
		return runSubmit(context.Background(), cfg, os.Stdin, w)
	default:
		return runServe(cfg)
	}
}

// storage はサーバー側の保存先とその後始末をまとめる。
type storage struct {
	entries repository.EntryRepository
	teams   repository.TeamRepository
	close   func()
}

// openStorage はSTORAGE_BACKENDに応じて保存先を1つだけ開く。
// postgresの場合は接続確認とマイグレーションまで行う。
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database connection established")

		return &storage{
			entries: repository.NewPostgresEntryRepo(db),
			teams:   repository.NewPostgresTeamRepo(db),
			close:   func() { db.Close() },
		}, nil

	case config.BackendFile:
		slog.Info("using JSON file storage",
			slog.String("entries_file", cfg.EntriesFile),
			slog.String("teams_file", cfg.TeamsFile),
		)
		return &storage{
			entries: repository.NewFileEntryRepo(cfg.EntriesFile),
			teams:   repository.NewFileTeamRepo(cfg.TeamsFile),
			close:   func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// buildHandler は全依存関係をワイヤリングしたHTTPハンドラーを返す。
// 返り値のcleanupでレートリミッターと保存先を解放する。
func buildHandler(ctx context.Context, cfg *config.Config, log *slog.Logger) (http.Handler, func(), error) {
	// 1. 保存先
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// 3. セキュリティ
	guard := security.NewOutboundGuard()
	if err := guard.ValidateEndpoint(cfg.BookSearchEndpoint); err != nil {
		store.close()
		return nil, nil, fmt.Errorf("invalid BOOK_SEARCH_ENDPOINT: %w", err)
	}

	// 4. ドメインサービス
	entryService := entry.NewService(store.entries, security.NewTextSanitizer(), collector)
	teamService := team.NewService(store.teams)
	authenticator := auth.NewAuthenticator(auth.Config{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		TokenTTL: cfg.TokenTTL,
	}, auth.NewTokenStore(nil), collector)
	bookClient := booksearch.NewClient(
		guard.NewSafeClient(cfg.BookSearchTimeout),
		cfg.BookSearchEndpoint,
		log,
		collector,
	)

	if cfg.UsesDefaultCredentials() {
		log.Warn("admin credentials are the defaults; set ADMIN_USERNAME and ADMIN_PASSWORD")
	}

	// 5. レート制限
	loginLimiter := middleware.NewRateLimiter(middleware.PerMinute("login", cfg.RateLimitLogin))
	submitLimiter := middleware.NewRateLimiter(middleware.PerMinute("submit", cfg.RateLimitSubmit))

	// 6. ルーター
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(reg),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		LoginLimiter:      loginLimiter,
		SubmitLimiter:     submitLimiter,
		TokenVerifier:     authenticator,

		AuthService:  authenticator,
		EntryService: entryService,
		TeamService:  teamService,
		BookSearcher: bookClient,
	})

	cleanup := func() {
		loginLimiter.Stop()
		submitLimiter.Stop()
		store.close()
	}
	return router, cleanup, nil
}

// runServe はAPIサーバーモードで起動する。
// 保存先を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	router, cleanup, err := buildHandler(context.Background(), cfg, slog.Default())
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// fileバックエンドではスキーマが存在しないため何もしない。
func runMigrate(cfg *config.Config) error {
	if cfg.StorageBackend != config.BackendPostgres {
		slog.Info("file storage backend has no migrations to run")
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /api/ping エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s", port))
}

func checkHealth(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(baseURL + "/api/ping")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
