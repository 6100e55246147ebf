package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/webpresence/internal/auth"
	"github.com/hitoshi/webpresence/internal/config"
	"github.com/hitoshi/webpresence/internal/contact"
	"github.com/hitoshi/webpresence/internal/database"
	"github.com/hitoshi/webpresence/internal/handler"
	"github.com/hitoshi/webpresence/internal/logger"
	"github.com/hitoshi/webpresence/internal/metrics"
	"github.com/hitoshi/webpresence/internal/middleware"
	"github.com/hitoshi/webpresence/internal/password"
	"github.com/hitoshi/webpresence/internal/repository"
	"github.com/hitoshi/webpresence/internal/security"
	"github.com/hitoshi/webpresence/internal/session"
	"github.com/hitoshi/webpresence/internal/user"
	"github.com/hitoshi/webpresence/internal/view"
	"github.com/hitoshi/webpresence/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envファイルがあれば環境変数へ読み込み、Configを構築してJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// .envは任意。既存の環境変数は上書きしない。
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		// 設定が読めなくてもエラーログは構造化して出す
		logger.SetupDefault(w, "info")
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.LogLevel)
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
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("session_store", cfg.SessionStore),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newSessionStore は設定に応じたセッションストアを返す。
// 返されるクローズ関数はRedisクライアントを使う場合のみ実際に接続を閉じる。
func newSessionStore(cfg *config.Config, db *sql.DB) (scs.Store, func(), error) {
	if cfg.SessionStore != config.SessionStoreRedis {
		return repository.NewPostgresSessionRepo(db), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close redis client", slog.String("error", err.Error()))
		}
	}
	return repository.NewRedisSessionRepo(client), closeFn, nil
}

// newProviderRegistry は設定済みのOAuthプロバイダーのみを登録したRegistryを返す。
func newProviderRegistry(cfg *config.Config) (*auth.Registry, error) {
	var list []auth.OAuthProvider

	if cfg.Google.Enabled() {
		p, err := auth.NewGoogleProvider(auth.ProviderConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		})
		if err != nil {
			return nil, fmt.Errorf("google provider: %w", err)
		}
		list = append(list, p)
	}

	if cfg.Facebook.Enabled() {
		p, err := auth.NewFacebookProvider(auth.ProviderConfig{
			ClientID:     cfg.Facebook.ClientID,
			ClientSecret: cfg.Facebook.ClientSecret,
			RedirectURL:  cfg.Facebook.RedirectURL,
		})
		if err != nil {
			return nil, fmt.Errorf("facebook provider: %w", err)
		}
		list = append(list, p)
	}

	return auth.NewRegistry(list...), nil
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリとセッションストア
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	messageRepo := repository.NewPostgresMessageRepo(db)

	store, closeStore, err := newSessionStore(cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions := session.NewManager(store, session.Config{
		Lifetime:     cfg.SessionLifetime(),
		CookieSecure: cfg.CookieSecure,
		CookieDomain: cfg.CookieDomain,
	})

	// 3. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "webpresence"),
	)
	collector := metrics.NewCollector(reg)

	// 4. ドメインサービス
	providers, err := newProviderRegistry(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure oauth providers: %w", err)
	}
	slog.Info("oauth providers configured", slog.Any("providers", providers.Names()))

	authService := auth.NewService(
		userRepo, identRepo, password.NewHasher(cfg.BcryptCost),
		sessions, providers, collector,
	)
	presenceService := user.NewService(userRepo, sessions, collector)
	contactService := contact.NewService(messageRepo, security.NewTextSanitizer(), collector)

	renderer, err := view.New()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:      slog.Default(),
		Sessions:    sessions,
		Users:       userRepo,
		RateLimiter: rateLimiter,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			MaxAge:       cfg.SessionMaxAge,
		},
		Renderer: renderer,

		AuthService:     authService,
		PresenceService: presenceService,
		ContactService:  contactService,

		HealthChecker: db,
		Metrics:       collector,
		Gatherer:      reg,
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("web server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server listen failed: %w", err)
	}
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除と、最終アクセスが古いユーザーのオフライン化を定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	reg, collector := newWorkerMetrics(db)
	job := cleanup.NewSessionCleanupJob(
		db, slog.Default(), collector, cfg.SessionLifetime(),
		cfg.SessionStore == config.SessionStorePostgres,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// webとは別プロセスのため、ワーカー自身のメトリクスは専用ポートで公開する
	metricsServer := newWorkerMetricsServer(":"+cfg.WorkerMetricsPort, reg)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker metrics listen error", slog.String("error", err.Error()))
		}
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
		slog.Duration("session_lifetime", cfg.SessionLifetime()),
		slog.String("metrics_addr", metricsServer.Addr),
	)

	// ctxがキャンセルされるまでブロックする
	job.Start(ctx, cfg.SessionCleanupInterval)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("worker metrics shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// newWorkerMetrics はワーカー用のレジストリとCollectorを生成する。
// dbがnilの場合はコネクションプールの統計を登録しない。
func newWorkerMetrics(db *sql.DB) (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if db != nil {
		reg.MustRegister(collectors.NewDBStatsCollector(db, "webpresence"))
	}
	return reg, metrics.NewCollector(reg)
}

// newWorkerMetricsServer は/metricsのみを提供するHTTPサーバーを返す。
func newWorkerMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(gatherer))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("schema_version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
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
