// Package auth はローカル認証とOAuth認証フロー、セッション確立を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/webpresence/internal/metrics"
	"github.com/hitoshi/webpresence/internal/model"
	"github.com/hitoshi/webpresence/internal/password"
	"github.com/hitoshi/webpresence/internal/repository"
)

// MinPasswordLength はサインアップ時に要求するパスワードの最小文字数。
const MinPasswordLength = 5

// バリデーションメッセージ。フォームにそのまま表示する。
const (
	msgPasswordMismatch = "Password does Not match"
	msgPasswordTooShort = "Password must be at least 5 characters"
	msgPasswordTooLong  = "Password must be at most 72 bytes"
	msgNameRequired     = "Full name is required"
	msgNameTooLong      = "Full name must be at most 255 characters"
	msgEmailInvalid     = "Email address is not valid"
	msgEmailTooLong     = "Email address must be at most 255 characters"
)

// SessionEstablisher は認証成功時にセッションをユーザーに紐付ける。
// session.Managerが実装する。
type SessionEstablisher interface {
	Establish(ctx context.Context, userID string) error
}

// SignupInput はサインアップフォームの入力値。
type SignupInput struct {
	FullName  string
	Email     string
	Password  string
	Password2 string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	identRepo repository.IdentityRepository
	hasher    *password.Hasher
	sessions  SessionEstablisher
	providers *Registry
	metrics   metrics.MetricsCollector

	// dummyDigest は存在しないユーザーのログイン時に照合する固定ダイジェスト。
	// 応答時間からユーザーの存在が推測されるのを防ぐ。
	dummyDigest string
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	hasher *password.Hasher,
	sessions SessionEstablisher,
	providers *Registry,
	m metrics.MetricsCollector,
) *Service {
	if providers == nil {
		providers = NewRegistry()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		// 固定長の入力なので失敗しない
		panic(fmt.Sprintf("failed to prepare dummy digest: %v", err))
	}
	return &Service{
		userRepo:    userRepo,
		identRepo:   identRepo,
		hasher:      hasher,
		sessions:    sessions,
		providers:   providers,
		metrics:     m,
		dummyDigest: dummy,
	}
}

// Providers は有効なOAuthプロバイダー名を返す。
func (s *Service) Providers() []string {
	return s.providers.Names()
}

// Signup はローカルアカウントを作成する。セッションは確立しない。
// 入力に問題がある場合は全ての問題をまとめたVALIDATION_ERRORを返す。
// メールアドレスが登録済みの場合はDUPLICATE_EMAILを返す。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	email, emailOK := model.ParseEmail(in.Email)

	var problems []string
	if fullName == "" {
		problems = append(problems, msgNameRequired)
	} else if model.TooLong(fullName) {
		problems = append(problems, msgNameTooLong)
	}
	if !emailOK {
		problems = append(problems, msgEmailInvalid)
	} else if model.TooLong(email) {
		problems = append(problems, msgEmailTooLong)
	}
	if in.Password != in.Password2 {
		problems = append(problems, msgPasswordMismatch)
	}
	if len([]rune(in.Password)) < MinPasswordLength {
		problems = append(problems, msgPasswordTooShort)
	} else if len(in.Password) > password.MaxLength {
		problems = append(problems, msgPasswordTooLong)
	}
	if len(problems) > 0 {
		s.metrics.RecordSignup(metrics.ResultFailure)
		return nil, model.NewValidationError(problems...)
	}

	// 事前チェックはフォームへの早期応答のため。一意性はDB制約が保証する
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.metrics.RecordSignup(metrics.ResultFailure)
		return nil, err
	}
	if existing != nil {
		s.metrics.RecordSignup(metrics.ResultFailure)
		return nil, model.NewDuplicateEmailError()
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.metrics.RecordSignup(metrics.ResultFailure)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.metrics.RecordSignup(metrics.ResultFailure)
		return nil, err
	}

	s.metrics.RecordSignup(metrics.ResultSuccess)
	slog.Info("user signed up",
		slog.String("user_id", user.ID),
	)
	return user, nil
}

// Login はメールアドレスとパスワードで認証し、セッションを確立する。
// ユーザー不在、パスワード未設定、不一致はいずれも区別せずINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, email, plaintext string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		s.metrics.RecordLogin(metrics.MethodLocal, metrics.ResultFailure)
		return nil, err
	}

	if user == nil || !user.HasPassword() {
		s.hasher.Verify(plaintext, s.dummyDigest)
		s.metrics.RecordLogin(metrics.MethodLocal, metrics.ResultFailure)
		return nil, model.NewInvalidCredentialsError()
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		s.metrics.RecordLogin(metrics.MethodLocal, metrics.ResultFailure)
		return nil, model.NewInvalidCredentialsError()
	}

	if err := s.sessions.Establish(ctx, user.ID); err != nil {
		s.metrics.RecordLogin(metrics.MethodLocal, metrics.ResultFailure)
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}

	s.metrics.RecordLogin(metrics.MethodLocal, metrics.ResultSuccess)
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("method", metrics.MethodLocal),
	)
	return user, nil
}

// GetLoginURL は指定プロバイダーの認証URLを生成する。
func (s *Service) GetLoginURL(provider, state string) (string, error) {
	p, ok := s.providers.Get(provider)
	if !ok {
		return "", model.NewFederatedLoginFailedError(provider, fmt.Errorf("unknown provider"))
	}
	return p.GetLoginURL(state), nil
}

// HandleCallback はOAuthコールバックを処理し、セッションを確立する。
// ユーザーはプロバイダーが発行した識別子で特定し、メールアドレスでは照合しない。
// 未登録の場合はusersとidentitiesを同一トランザクションで作成するため、
// 途中で失敗しても部分的なレコードは残らない。
func (s *Service) HandleCallback(ctx context.Context, provider, code string) (*model.User, error) {
	user, err := s.resolveFederatedUser(ctx, provider, code)
	if err != nil {
		s.metrics.RecordLogin(provider, metrics.ResultFailure)
		return nil, err
	}

	if err := s.sessions.Establish(ctx, user.ID); err != nil {
		s.metrics.RecordLogin(provider, metrics.ResultFailure)
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}

	s.metrics.RecordLogin(provider, metrics.ResultSuccess)
	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("method", provider),
	)
	return user, nil
}

func (s *Service) resolveFederatedUser(ctx context.Context, provider, code string) (*model.User, error) {
	p, ok := s.providers.Get(provider)
	if !ok {
		return nil, model.NewFederatedLoginFailedError(provider, fmt.Errorf("unknown provider"))
	}
	if code == "" {
		return nil, model.NewFederatedLoginFailedError(provider, fmt.Errorf("missing authorization code"))
	}

	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	info, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return nil, model.NewFederatedLoginFailedError(provider, err)
	}

	// 2. identitiesテーブルで既存ユーザーを検索
	user, err := s.findLinkedUser(ctx, provider, info.ProviderUserID)
	if err != nil || user != nil {
		return user, err
	}

	// 3. 新規ユーザー: usersレコードとidentitiesレコードを同時に作成
	if strings.TrimSpace(info.Email) == "" {
		return nil, model.NewFederatedLoginFailedError(provider, fmt.Errorf("provider did not return an email address"))
	}
	email, ok := model.ParseEmail(info.Email)
	if !ok || model.TooLong(email) {
		return nil, model.NewFederatedLoginFailedError(provider, fmt.Errorf("provider returned an unusable email address"))
	}
	name := truncateRunes(strings.TrimSpace(info.Name), model.MaxFieldLength)
	if name == "" {
		name = email
	}

	now := time.Now()
	newUser := &model.User{
		ID:        uuid.New().String(),
		FullName:  name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	newIdentity := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         newUser.ID,
		Provider:       provider,
		ProviderUserID: info.ProviderUserID,
		CreatedAt:      now,
	}

	err = s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity)
	switch {
	case err == nil:
		slog.Info("new user created",
			slog.String("user_id", newUser.ID),
			slog.String("provider", provider),
		)
		return newUser, nil
	case model.HasCode(err, model.ErrCodeIdentityConflict):
		// 同じidentityの同時コールバックに負けた場合は、勝った側のユーザーを使う
		user, findErr := s.findLinkedUser(ctx, provider, info.ProviderUserID)
		if findErr != nil {
			return nil, findErr
		}
		if user == nil {
			return nil, err
		}
		return user, nil
	default:
		// メールアドレスが既存アカウントと重複する場合は別アカウントを黙って統合しない
		return nil, err
	}
}

// findLinkedUser はidentityに紐付くユーザーを返す。紐付けが無い場合はnilを返す。
func (s *Service) findLinkedUser(ctx context.Context, provider, providerUserID string) (*model.User, error) {
	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, provider, providerUserID)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// identityはON DELETE CASCADEで消えるため通常は発生しない
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// GenerateState はOAuthのstateパラメータ用の推測困難な値を生成する。
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// truncateRunes はsを先頭からmax文字までに切り詰める。
func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
