// Package session はサーバー側セッションの管理を提供する。
//
// セッションIDは推測困難な不透明トークンで、Cookieにはトークンのみを保存する。
// セッションデータ（ユーザーID、フラッシュメッセージ、OAuth state）はストア側に保持する。
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
)

// CookieName はセッションCookieの名前。
const CookieName = "session_id"

const (
	keyUserID     = "user_id"
	keyFlash      = "flash"
	keyOAuthState = "oauth_state"
)

// Config はセッションマネージャーの設定。
type Config struct {
	Lifetime     time.Duration
	CookieSecure bool
	CookieDomain string
}

// Manager はscs.SessionManagerをラップし、認証フローに必要な操作のみを公開する。
// 設定はコンストラクタで受け取り、リクエスト毎のデータはコンテキスト経由で扱う。
type Manager struct {
	sm *scs.SessionManager
}

// NewManager はstoreを永続化先とするManagerを生成する。
func NewManager(store scs.Store, cfg Config) *Manager {
	sm := scs.New()
	sm.Store = store
	if cfg.Lifetime > 0 {
		sm.Lifetime = cfg.Lifetime
	}
	sm.Cookie.Name = CookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = cfg.CookieSecure
	sm.Cookie.Domain = cfg.CookieDomain
	sm.Cookie.Path = "/"
	sm.ErrorFunc = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Error("session store error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
	}
	return &Manager{sm: sm}
}

// LoadAndSave はリクエスト毎にセッションを読み込み、レスポンス時に保存するミドルウェア。
func (m *Manager) LoadAndSave(next http.Handler) http.Handler {
	return m.sm.LoadAndSave(next)
}

// Establish はセッションをユーザーに紐付ける。
// セッション固定攻撃を防ぐため、紐付け前にトークンを再発行する。
func (m *Manager) Establish(ctx context.Context, userID string) error {
	if err := m.sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("failed to renew session token: %w", err)
	}
	m.sm.Put(ctx, keyUserID, userID)
	return nil
}

// UserID はセッションに紐付いたユーザーIDを返す。匿名の場合は空文字列を返す。
func (m *Manager) UserID(ctx context.Context) string {
	return m.sm.GetString(ctx, keyUserID)
}

// Destroy はセッションを破棄する。以降同じトークンは解決されない。
func (m *Manager) Destroy(ctx context.Context) error {
	if err := m.sm.Destroy(ctx); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// AddFlash は次のページ表示で一度だけ表示するメッセージを追加する。
func (m *Manager) AddFlash(ctx context.Context, message string) {
	flashes, _ := m.sm.Get(ctx, keyFlash).([]string)
	m.sm.Put(ctx, keyFlash, append(flashes, message))
}

// PopFlashes はフラッシュメッセージを取り出し、セッションから削除する。
func (m *Manager) PopFlashes(ctx context.Context) []string {
	flashes, _ := m.sm.Pop(ctx, keyFlash).([]string)
	return flashes
}

// PutOAuthState は外部IdPへのリダイレクト前にstateを保存する。
func (m *Manager) PutOAuthState(ctx context.Context, provider, state string) {
	m.sm.Put(ctx, keyOAuthState, provider+":"+state)
}

// PopOAuthState は保存済みのstateを取り出して照合する。stateは一度しか使用できない。
func (m *Manager) PopOAuthState(ctx context.Context, provider, state string) bool {
	saved := m.sm.PopString(ctx, keyOAuthState)
	return state != "" && saved == provider+":"+state
}

// Load は指定トークンのセッションをコンテキストに読み込む。
// HTTPを介さない呼び出し（テストなど）で使用する。
func (m *Manager) Load(ctx context.Context, token string) (context.Context, error) {
	return m.sm.Load(ctx, token)
}

// Commit はコンテキスト上のセッションをストアに保存し、トークンを返す。
func (m *Manager) Commit(ctx context.Context) (string, error) {
	token, _, err := m.sm.Commit(ctx)
	return token, err
}
