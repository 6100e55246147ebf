package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/webpresence/internal/auth"
	"github.com/hitoshi/webpresence/internal/model"
	"github.com/hitoshi/webpresence/internal/view"
)

// msgAccountCreated はサインアップ成功時にトップページへ表示するメッセージ。
const msgAccountCreated = "You are successfully created account. You can login now"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Providers() []string
	Signup(ctx context.Context, in auth.SignupInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
	GetLoginURL(provider, state string) (string, error)
	HandleCallback(ctx context.Context, provider, code string) (*model.User, error)
}

// AuthHandler はサインアップ、ログイン、外部IdP連携のHTTPハンドラー。
type AuthHandler struct {
	*responder
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(rs *responder, service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		responder: rs,
		service:   service,
	}
}

// Signup はローカルアカウントを作成する。
// 成功時はメッセージを残してトップページへリダイレクトする。
// 入力エラーやメールアドレス重複時は入力値を保持してフォームを再表示する。
// POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	in := auth.SignupInput{
		FullName:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		Password2: r.PostFormValue("password2"),
	}

	if _, err := h.service.Signup(r.Context(), in); err != nil {
		if isFormError(err) {
			data := h.page(r, "Create an account")
			data.Errors = validationMessages(err)
			data.Form = map[string]string{
				"fullname": in.FullName,
				"email":    in.Email,
			}
			h.render(w, http.StatusUnprocessableEntity, view.PageNewAccount, data)
			return
		}
		h.handleServiceError(w, r, err)
		return
	}

	h.redirectWithFlash(w, r, "/", msgAccountCreated)
}

// Login はメールアドレスとパスワードで認証する。
// 成功時は/profileへ、認証失敗時は汎用メッセージを残して/へリダイレクトする。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	_, err := h.service.Login(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		if model.HasCode(err, model.ErrCodeInvalidCredentials) {
			h.redirectWithFlash(w, r, "/", model.NewInvalidCredentialsError().Message)
			return
		}
		h.handleServiceError(w, r, err)
		return
	}

	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// FederatedStart は外部IdPの認証フローを開始する。
// stateはセッションに保存し、コールバック時に照合する。
// GET /auth/{provider}
func (h *AuthHandler) FederatedStart(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if !slices.Contains(h.service.Providers(), provider) {
		h.notFound(w, r)
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	loginURL, err := h.service.GetLoginURL(provider, state)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.sessions.PutOAuthState(r.Context(), provider, state)
	http.Redirect(w, r, loginURL, http.StatusFound)
}

// FederatedCallback は外部IdPからのコールバックを処理する。
// 拒否、state不一致、ログイン失敗はいずれもメッセージを残して/へリダイレクトし、何も作成しない。
// GET /auth/{provider}/callback?code=xxx&state=yyy
func (h *AuthHandler) FederatedCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := chi.URLParam(r, "provider")
	query := r.URL.Query()

	// stateは一度しか使えないため、拒否された場合も取り出して破棄する
	stateOK := h.sessions.PopOAuthState(ctx, provider, query.Get("state"))

	if idpErr := query.Get("error"); idpErr != "" {
		slog.Info("federated login denied",
			slog.String("provider", provider),
			slog.String("idp_error", idpErr),
		)
		h.redirectWithFlash(w, r, "/", model.NewFederatedLoginFailedError(provider, nil).Message)
		return
	}

	if !stateOK {
		slog.Warn("oauth state mismatch",
			slog.String("provider", provider),
		)
		h.redirectWithFlash(w, r, "/", model.NewFederatedLoginFailedError(provider, nil).Message)
		return
	}

	_, err := h.service.HandleCallback(ctx, provider, query.Get("code"))
	if err != nil {
		switch {
		case model.HasCode(err, model.ErrCodeFederatedLoginFailed):
			slog.Warn("federated login failed",
				slog.String("provider", provider),
				slog.String("error", err.Error()),
			)
			h.redirectWithFlash(w, r, "/", model.NewFederatedLoginFailedError(provider, nil).Message)
		case model.HasCode(err, model.ErrCodeDuplicateEmail):
			h.redirectWithFlash(w, r, "/", model.NewDuplicateEmailError().Message)
		default:
			h.handleServiceError(w, r, err)
		}
		return
	}

	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
