// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/webpresence/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに現在のユーザーを格納するためのキー。
var userContextKey = contextKey("current_user")

// SessionReader はセッションに紐付いたユーザーIDの参照と破棄を行う。
// session.Managerが実装する。
type SessionReader interface {
	UserID(ctx context.Context) string
	Destroy(ctx context.Context) error
}

// UserFinder はユーザーの検索に必要なインターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NewCurrentUserMiddleware はセッションから現在のユーザーを解決し、
// リクエストコンテキストに注入するミドルウェアを返す。
// セッションがない場合は匿名として次に渡す。
// セッションが参照するユーザーが削除済みの場合はセッションを破棄して匿名として扱う。
// ストアに到達できない場合は503を返す。
// session.Manager.LoadAndSaveの内側に配置すること。
func NewCurrentUserMiddleware(sessions SessionReader, users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := sessions.UserID(ctx)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.FindByID(ctx, userID)
			if err != nil {
				slog.Error("failed to resolve current user",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				http.Error(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
				return
			}
			if user == nil {
				slog.Warn("session references missing user",
					slog.String("user_id", userID),
				)
				if err := sessions.Destroy(ctx); err != nil {
					slog.Error("failed to drop stale session",
						slog.String("error", err.Error()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			setLogUserID(ctx, user.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithUser(ctx, user)))
		})
	}
}

// RequireAuthenticated は未認証リクエストを/へリダイレクトする。
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAnonymous は認証済みリクエストを/profileへリダイレクトする。
func RequireAnonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) != nil {
			http.Redirect(w, r, "/profile", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext はリクエストコンテキストから現在のユーザーを取得する。
// 匿名の場合はnilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// UserIDFromContext はリクエストコンテキストから現在のユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	user := UserFromContext(ctx)
	if user == nil || user.ID == "" {
		return "", fmt.Errorf("user not found in context")
	}
	return user.ID, nil
}

// ContextWithUser はコンテキストに現在のユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
