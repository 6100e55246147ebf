// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/webpresence/internal/middleware"
	"github.com/hitoshi/webpresence/internal/model"
	"github.com/hitoshi/webpresence/internal/view"
)

// SessionState はハンドラーがセッションに対して行う操作。
// session.Managerが実装する。
type SessionState interface {
	AddFlash(ctx context.Context, message string)
	PopFlashes(ctx context.Context) []string
	PutOAuthState(ctx context.Context, provider, state string)
	PopOAuthState(ctx context.Context, provider, state string) bool
	Destroy(ctx context.Context) error
}

// responder はページ描画とエラー応答をまとめたハンドラー共通の部品。
type responder struct {
	renderer  *view.Renderer
	sessions  SessionState
	providers func() []string
}

// page はリクエストから共通のテンプレート値を組み立てる。
// フラッシュメッセージはここで取り出され、セッションから消える。
func (rs *responder) page(r *http.Request, title string) view.Data {
	ctx := r.Context()
	data := view.Data{
		Title:     title,
		User:      middleware.UserFromContext(ctx),
		CSRFToken: middleware.CSRFTokenFromContext(ctx),
		Flashes:   rs.sessions.PopFlashes(ctx),
	}
	if rs.providers != nil {
		data.Providers = rs.providers()
	}
	return data
}

func (rs *responder) render(w http.ResponseWriter, status int, name string, data view.Data) {
	rs.renderer.Render(w, status, name, data)
}

// redirectWithFlash はフラッシュメッセージを残してリダイレクトする。
func (rs *responder) redirectWithFlash(w http.ResponseWriter, r *http.Request, to, message string) {
	rs.sessions.AddFlash(r.Context(), message)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// handleServiceError はサービス層から返されたエラーをエラーページとして描画する。
// APIError以外のエラーは詳細をログのみに記録する。
func (rs *responder) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := middleware.StatusForError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	public := middleware.PublicError(err)
	data := rs.page(r, "Error")
	data.ErrorMessage = public.Message
	data.ErrorAction = public.Action
	rs.render(w, status, view.PageError, data)
}

func (rs *responder) notFound(w http.ResponseWriter, r *http.Request) {
	data := rs.page(r, "Not found")
	data.ErrorMessage = "The page you requested does not exist."
	rs.render(w, http.StatusNotFound, view.PageError, data)
}

// validationMessages は再表示フォームに出すメッセージを返す。
func validationMessages(err error) []string {
	public := middleware.PublicError(err)
	if len(public.Details) > 0 {
		return public.Details
	}
	return []string{public.Message}
}

// isFormError はフォームを再表示して応答するエラーかどうかを判定する。
func isFormError(err error) bool {
	return model.HasCode(err, model.ErrCodeValidation) || model.HasCode(err, model.ErrCodeDuplicateEmail)
}
