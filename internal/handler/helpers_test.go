package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/webpresence/internal/auth"
	"github.com/hitoshi/webpresence/internal/contact"
	"github.com/hitoshi/webpresence/internal/metrics"
	"github.com/hitoshi/webpresence/internal/middleware"
	"github.com/hitoshi/webpresence/internal/model"
	"github.com/hitoshi/webpresence/internal/password"
	"github.com/hitoshi/webpresence/internal/repository/repotest"
	"github.com/hitoshi/webpresence/internal/security"
	"github.com/hitoshi/webpresence/internal/session"
	"github.com/hitoshi/webpresence/internal/user"
	"github.com/hitoshi/webpresence/internal/view"
)

// --- モック定義 ---

type mockAuthService struct {
	providers        []string
	signupFn         func(ctx context.Context, in auth.SignupInput) (*model.User, error)
	loginFn          func(ctx context.Context, email, password string) (*model.User, error)
	getLoginURLFn    func(provider, state string) (string, error)
	handleCallbackFn func(ctx context.Context, provider, code string) (*model.User, error)
}

func (m *mockAuthService) Providers() []string { return m.providers }

func (m *mockAuthService) Signup(ctx context.Context, in auth.SignupInput) (*model.User, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, in)
	}
	return &model.User{ID: "u1"}, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) GetLoginURL(provider, state string) (string, error) {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(provider, state)
	}
	return "https://idp.example/authorize?state=" + state, nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, provider, code string) (*model.User, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, provider, code)
	}
	return nil, model.NewFederatedLoginFailedError(provider, nil)
}

type mockPresenceService struct {
	viewProfileFn func(ctx context.Context, userID string) (*model.User, error)
	logoutFn      func(ctx context.Context, userID string) error
}

func (m *mockPresenceService) ViewProfile(ctx context.Context, userID string) (*model.User, error) {
	if m.viewProfileFn != nil {
		return m.viewProfileFn(ctx, userID)
	}
	return &model.User{ID: userID, Online: true}, nil
}

func (m *mockPresenceService) Logout(ctx context.Context, userID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, userID)
	}
	return nil
}

type mockContactService struct {
	submitFn func(ctx context.Context, in contact.Submission) ([]*model.Message, error)
}

func (m *mockContactService) Submit(ctx context.Context, in contact.Submission) ([]*model.Message, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, in)
	}
	return nil, nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// fakeProvider は固定のユーザー情報を返すOAuthプロバイダー。
type fakeProvider struct {
	name string
	info map[string]*auth.OAuthUserInfo // code -> info
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) GetLoginURL(state string) string {
	return "https://idp.example/" + p.name + "/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, code string) (*auth.OAuthUserInfo, error) {
	info, ok := p.info[code]
	if !ok {
		return nil, errors.New("invalid_grant")
	}
	return info, nil
}

// --- テスト環境 ---

// testEnv は実際のルーターを起動したHTTPサーバーとCookieを保持するクライアント。
type testEnv struct {
	t        *testing.T
	server   *httptest.Server
	client   *http.Client
	store    *repotest.Store
	sessions *session.Manager
	registry *prometheus.Registry
}

// newTestEnv はインメモリストア上の実サービスでルーターを構築する。
// overrideでサービスをモックに差し替えられる。
func newTestEnv(t *testing.T, override func(deps *RouterDeps)) *testEnv {
	t.Helper()

	store := repotest.NewStore()
	mgr := session.NewManager(memstore.NewWithCleanupInterval(0), session.Config{Lifetime: time.Hour})
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	google := &fakeProvider{
		name: model.ProviderGoogle,
		info: map[string]*auth.OAuthUserInfo{
			"good-code": {ProviderUserID: "g-123", Email: "bob@gmail.com", Name: "Bob G", Provider: model.ProviderGoogle},
			"dup-email": {ProviderUserID: "g-456", Email: "b@x.com", Name: "Other Bob", Provider: model.ProviderGoogle},
		},
	}

	renderer, err := view.New()
	if err != nil {
		t.Fatalf("view.New() error = %v", err)
	}

	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(1000, 1000))
	t.Cleanup(rl.Stop)

	deps := &RouterDeps{
		Sessions:    mgr,
		Users:       store.Users(),
		RateLimiter: rl,
		Renderer:    renderer,
		AuthService: auth.NewService(
			store.Users(), store.Identities(), password.NewHasher(4), mgr,
			auth.NewRegistry(google), collector,
		),
		PresenceService: user.NewService(store.Users(), mgr, collector),
		ContactService:  contact.NewService(store.Messages(), security.NewTextSanitizer(), collector),
		HealthChecker:   &mockHealthChecker{},
		Metrics:         collector,
		Gatherer:        reg,
	}
	if override != nil {
		override(deps)
	}

	server := httptest.NewServer(NewRouter(deps))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() error = %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{
		t:        t,
		server:   server,
		client:   client,
		store:    store,
		sessions: mgr,
		registry: reg,
	}
}

// get はGETリクエストを送り、ステータスとボディを返す。
func (e *testEnv) get(path string) (*http.Response, string) {
	e.t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	if err != nil {
		e.t.Fatalf("GET %s error = %v", path, err)
	}
	return resp, readBody(e.t, resp)
}

// postForm はCSRFトークンを付与してフォームを送信する。
func (e *testEnv) postForm(path string, values url.Values) (*http.Response, string) {
	e.t.Helper()
	if values == nil {
		values = url.Values{}
	}
	values.Set(middleware.CSRFFormField, e.csrfToken())
	resp, err := e.client.PostForm(e.server.URL+path, values)
	if err != nil {
		e.t.Fatalf("POST %s error = %v", path, err)
	}
	return resp, readBody(e.t, resp)
}

// csrfToken はCookieJarのCSRFトークンを返す。未取得の場合はページを開いて取得する。
func (e *testEnv) csrfToken() string {
	e.t.Helper()
	if token := e.cookie("csrf_token"); token != "" {
		return token
	}
	e.get("/about")
	token := e.cookie("csrf_token")
	if token == "" {
		e.t.Fatal("csrf_token cookie was not issued")
	}
	return token
}

func (e *testEnv) cookie(name string) string {
	u, _ := url.Parse(e.server.URL)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(b)
}

func assertRedirect(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther && resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want redirect to %s", resp.StatusCode, want)
	}
	if loc := resp.Header.Get("Location"); loc != want {
		t.Fatalf("Location = %q, want %q", loc, want)
	}
}

func assertContains(t *testing.T, body, want string) {
	t.Helper()
	if !strings.Contains(body, want) {
		t.Errorf("body should contain %q\n%s", want, body)
	}
}
