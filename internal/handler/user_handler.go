package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/webpresence/internal/middleware"
	"github.com/hitoshi/webpresence/internal/model"
	"github.com/hitoshi/webpresence/internal/view"
)

// PresenceServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type PresenceServiceInterface interface {
	// ViewProfile はユーザーをオンラインにしてプロフィールを返す。
	ViewProfile(ctx context.Context, userID string) (*model.User, error)
	// Logout はユーザーをオフラインにしてセッションを破棄する。
	Logout(ctx context.Context, userID string) error
}

// UserHandler はプロフィール表示とログアウトのHTTPハンドラー。
type UserHandler struct {
	*responder
	service PresenceServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(rs *responder, service PresenceServiceInterface) *UserHandler {
	return &UserHandler{
		responder: rs,
		service:   service,
	}
}

// Profile はユーザーをオンラインにしてプロフィールを表示する。
// 表示直前にユーザーが削除されていた場合はセッションを破棄して/へリダイレクトする。
// GET /profile
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	user, err := h.service.ViewProfile(r.Context(), userID)
	if err != nil {
		if model.HasCode(err, model.ErrCodeUserNotFound) {
			if derr := h.sessions.Destroy(r.Context()); derr != nil {
				slog.Error("failed to drop session of missing user",
					slog.String("user_id", userID),
					slog.String("error", derr.Error()),
				)
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		h.handleServiceError(w, r, err)
		return
	}

	data := h.page(r, "Profile")
	data.User = user
	h.render(w, http.StatusOK, view.PageProfile, data)
}

// Logout はユーザーをオフラインにしてセッションを破棄し、/へリダイレクトする。
// POST /logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := h.service.Logout(r.Context(), userID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
