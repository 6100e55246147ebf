package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/webpresence/internal/metrics"
	"github.com/hitoshi/webpresence/internal/middleware"
	"github.com/hitoshi/webpresence/internal/view"
)

// SessionManager はルーターが必要とするセッション操作。
// session.Managerが実装する。
type SessionManager interface {
	SessionState
	LoadAndSave(next http.Handler) http.Handler
	UserID(ctx context.Context) string
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger      *slog.Logger
	Sessions    SessionManager
	Users       middleware.UserFinder
	RateLimiter *middleware.RateLimiter
	CSRF        middleware.CSRFConfig
	Renderer    *view.Renderer

	// サービス
	AuthService     AuthServiceInterface
	PresenceService PresenceServiceInterface
	ContactService  ContactServiceInterface

	// 運用
	HealthChecker HealthChecker
	Metrics       metrics.MetricsCollector
	Gatherer      prometheus.Gatherer
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Logging → Recovery → SecurityHeaders → RateLimit(General)
//	→ Session(LoadAndSave) → CurrentUser → CSRF
//
// /health と /metrics はセッションを使わないため、Session以降のチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewRecoveryMiddleware(logger, panicPage(deps.Renderer)))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.CSRF.CookieSecure))
	r.Use(deps.RateLimiter.GeneralMiddleware())

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	rs := &responder{
		renderer:  deps.Renderer,
		sessions:  deps.Sessions,
		providers: deps.AuthService.Providers,
	}
	pageHandler := NewPageHandler(rs)
	authHandler := NewAuthHandler(rs, deps.AuthService)
	userHandler := NewUserHandler(rs, deps.PresenceService)
	contactHandler := NewContactHandler(rs, deps.ContactService)

	authLimit := deps.RateLimiter.AuthMiddleware()

	r.Group(func(r chi.Router) {
		r.Use(deps.Sessions.LoadAndSave)
		r.Use(middleware.NewCurrentUserMiddleware(deps.Sessions, deps.Users))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		r.NotFound(pageHandler.NotFound)

		// --- 未ログインのみ ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAnonymous)

			r.Get("/", pageHandler.Home)
			r.Get("/about", pageHandler.About)
			r.Get("/contact", pageHandler.Contact)
			r.Get("/newAccount", pageHandler.NewAccount)

			r.With(authLimit).Post("/signup", authHandler.Signup)
			r.With(authLimit).Post("/login", authHandler.Login)

			r.Get("/auth/{provider}", authHandler.FederatedStart)
		})

		// 既にログイン済みでもIdPからの戻りは受け付ける
		r.Get("/auth/{provider}/callback", authHandler.FederatedCallback)

		// --- ログイン必須 ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuthenticated)

			r.Get("/profile", userHandler.Profile)
			r.Post("/logout", userHandler.Logout)
		})

		r.With(authLimit).Post("/contactUs", contactHandler.ContactUs)
	})

	return r
}

// panicPage はpanic回収後に返すエラーページ。
// セッションの外で呼ばれるため、ユーザー情報やフラッシュは載せない。
func panicPage(renderer *view.Renderer) http.Handler {
	if renderer == nil {
		return nil
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renderer.Render(w, http.StatusInternalServerError, view.PageError, view.Data{
			Title:        "Error",
			ErrorMessage: "Something went wrong on our side.",
			ErrorAction:  "Please try again later.",
		})
	})
}
