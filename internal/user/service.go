// Package user はユーザーのプロフィール表示とオンライン状態の管理を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/webpresence/internal/metrics"
	"github.com/hitoshi/webpresence/internal/model"
	"github.com/hitoshi/webpresence/internal/repository"
)

// SessionDestroyer はログアウト時にセッションを破棄する。
// session.Managerが実装する。
type SessionDestroyer interface {
	Destroy(ctx context.Context) error
}

// Service はオンライン状態の切り替えを行うサービス層。
// プロフィール表示でオンライン、ログアウトでオフラインにする。
type Service struct {
	userRepo repository.UserRepository
	sessions SessionDestroyer
	metrics  metrics.MetricsCollector
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, sessions SessionDestroyer, m metrics.MetricsCollector) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{
		userRepo: userRepo,
		sessions: sessions,
		metrics:  m,
		now:      time.Now,
	}
}

// ViewProfile はユーザーをオンラインにして永続化し、プロフィールを返す。
// セッション検証後にユーザーが削除されていた場合はUSER_NOT_FOUNDを返す。
func (s *Service) ViewProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	now := s.now()
	user.Online = true
	user.LastSeenAt = now
	user.UpdatedAt = now
	if err := s.userRepo.Save(ctx, user); err != nil {
		if model.HasCode(err, model.ErrCodeUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("オンライン状態の保存に失敗しました: %w", err)
	}

	return user, nil
}

// Logout はユーザーをオフラインにしてからセッションを破棄する。
// オフライン化を先に行うため、途中で失敗してもログイン中なのにオフライン表示という状態にはならない。
// ユーザーが既に削除されている場合はセッションの破棄のみ行う。
// 保存に失敗した場合はセッションを残したままエラーを返す。
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.markOffline(ctx, userID); err != nil {
		return err
	}

	if err := s.sessions.Destroy(ctx); err != nil {
		return fmt.Errorf("セッションの破棄に失敗しました: %w", err)
	}

	s.metrics.RecordLogout()
	slog.Info("user logged out",
		slog.String("user_id", userID),
	)
	return nil
}

func (s *Service) markOffline(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		slog.Warn("logout for missing user",
			slog.String("user_id", userID),
		)
		return nil
	}

	user.Online = false
	user.UpdatedAt = s.now()
	err = s.userRepo.Save(ctx, user)
	if err != nil && !model.HasCode(err, model.ErrCodeUserNotFound) {
		return fmt.Errorf("オンライン状態の保存に失敗しました: %w", err)
	}
	return nil
}
