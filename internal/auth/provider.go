package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"golang.org/x/oauth2"

	"github.com/hitoshi/webpresence/internal/security"
)

// maxUserInfoSize はユーザー情報レスポンスとして読み込む最大バイト数。
const maxUserInfoSize = 1 << 20

// outboundTimeout はIdPへのリクエストのタイムアウト。
const outboundTimeout = 10 * time.Second

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 実装はIdPから取得した事実のみを返し、ユーザー作成やセッション管理は行わない。
type OAuthProvider interface {
	// Name はプロバイダー名（"google", "facebook"）を返す。
	Name() string
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ProviderConfig はOAuthプロバイダーの設定。
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string

	// HTTPClient が未指定の場合はsafeurlで保護されたクライアントを使用する。
	HTTPClient *http.Client
}

// userInfoParser はユーザー情報エンドポイントのレスポンスを解釈する。
type userInfoParser func(body []byte) (*OAuthUserInfo, error)

// oauth2Provider はx/oauth2を使った認可コードフローの共通実装。
type oauth2Provider struct {
	name        string
	config      oauth2.Config
	userInfoURL string
	client      *http.Client
	parse       userInfoParser
}

func newOAuth2Provider(name string, cfg ProviderConfig, endpoint oauth2.Endpoint, defaultUserInfoURL string, scopes []string, parse userInfoParser) (*oauth2Provider, error) {
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	userInfoURL := defaultUserInfoURL
	if cfg.UserInfoURL != "" {
		userInfoURL = cfg.UserInfoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		// 本番用クライアントはhttps以外を拒否するため、起動時にエンドポイントを検証しておく
		for _, u := range []string{endpoint.AuthURL, endpoint.TokenURL, userInfoURL} {
			if err := security.ValidateEndpoint(u); err != nil {
				return nil, fmt.Errorf("invalid %s endpoint: %w", name, err)
			}
		}
		client = security.NewOutboundClient(outboundTimeout)
	}

	return &oauth2Provider{
		name: name,
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		client:      client,
		parse:       parse,
	}, nil
}

// Name はプロバイダー名を返す。
func (p *oauth2Provider) Name() string {
	return p.name
}

// GetLoginURL はOAuth認証URLを生成する。
func (p *oauth2Provider) GetLoginURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeCode は認可コードをアクセストークンに交換し、ユーザー情報を取得する。
func (p *oauth2Provider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	// 1. 認可コードをアクセストークンに交換
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	// 2. アクセストークンでユーザー情報を取得
	body, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	info, err := p.parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}
	if info.ProviderUserID == "" {
		return nil, fmt.Errorf("empty subject in user info response")
	}
	info.Provider = p.name
	return info, nil
}

func (p *oauth2Provider) fetchUserInfo(ctx context.Context, token *oauth2.Token) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d", resp.StatusCode)
	}

	return body, nil
}

// Registry は設定済みのOAuthプロバイダーを名前で引けるようにする。
type Registry struct {
	providers map[string]OAuthProvider
}

// NewRegistry はプロバイダーを名前で登録する。nilは無視する。
func NewRegistry(list ...OAuthProvider) *Registry {
	m := make(map[string]OAuthProvider, len(list))
	for _, p := range list {
		if p != nil {
			m[p.Name()] = p
		}
	}
	return &Registry{providers: m}
}

// Get は名前に対応するプロバイダーを返す。
func (r *Registry) Get(name string) (OAuthProvider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names は登録済みプロバイダー名を昇順で返す。
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// compile-time interface check
var _ OAuthProvider = (*oauth2Provider)(nil)
