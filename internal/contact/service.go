// Package contact はお問い合わせフォームの受付と一覧を提供する。
package contact

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/webpresence/internal/metrics"
	"github.com/hitoshi/webpresence/internal/model"
	"github.com/hitoshi/webpresence/internal/repository"
)

// MaxBodyLength はメッセージ本文の最大文字数。
const MaxBodyLength = 5000

// Sanitizer はユーザー入力からマークアップを取り除く。
// security.TextSanitizerが実装する。
type Sanitizer interface {
	Sanitize(input string) string
}

// Submission はお問い合わせフォームの入力値。
type Submission struct {
	FullName string
	Email    string
	Body     string
}

// Service はお問い合わせメッセージの保存と一覧取得を行う。
type Service struct {
	repo      repository.MessageRepository
	sanitizer Sanitizer
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.MessageRepository, sanitizer Sanitizer, m metrics.MetricsCollector) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		metrics:   m,
		now:       time.Now,
	}
}

// Submit はメッセージを保存し、保存済みの全メッセージを送信日時の昇順で返す。
// 入力はタグを除去してから検証する。
func (s *Service) Submit(ctx context.Context, in Submission) ([]*model.Message, error) {
	email, emailOK := model.ParseEmail(in.Email)
	msg := &model.Message{
		FullName: s.sanitizer.Sanitize(in.FullName),
		Email:    email,
		Body:     s.sanitizer.Sanitize(in.Body),
	}

	var problems []string
	if msg.FullName == "" {
		problems = append(problems, "Full name is required")
	} else if model.TooLong(msg.FullName) {
		problems = append(problems, fmt.Sprintf("Full name must be at most %d characters", model.MaxFieldLength))
	}
	if !emailOK {
		problems = append(problems, "Email address is not valid")
	} else if model.TooLong(msg.Email) {
		problems = append(problems, fmt.Sprintf("Email address must be at most %d characters", model.MaxFieldLength))
	}
	if msg.Body == "" {
		problems = append(problems, "Message is required")
	} else if utf8.RuneCountInString(msg.Body) > MaxBodyLength {
		problems = append(problems, fmt.Sprintf("Message must be at most %d characters", MaxBodyLength))
	}
	if len(problems) > 0 {
		return nil, model.NewValidationError(problems...)
	}

	msg.ID = uuid.New().String()
	msg.Date = s.now()
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.metrics.RecordMessageSubmitted()
	slog.Info("contact message received",
		slog.String("message_id", msg.ID),
	)

	messages, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return messages, nil
}
