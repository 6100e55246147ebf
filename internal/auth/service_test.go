package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/webpresence/internal/model"
	"github.com/hitoshi/webpresence/internal/password"
	"github.com/hitoshi/webpresence/internal/repository"
	"github.com/hitoshi/webpresence/internal/repository/repotest"
)

// --- モック定義 ---

type mockSessions struct {
	mu          sync.Mutex
	established []string
	establishFn func(ctx context.Context, userID string) error
}

func (m *mockSessions) Establish(ctx context.Context, userID string) error {
	if m.establishFn != nil {
		if err := m.establishFn(ctx, userID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.established = append(m.established, userID)
	return nil
}

func (m *mockSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.established)
}

type mockOAuthProvider struct {
	name           string
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) Name() string {
	return m.name
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, errors.New("not configured")
}

type mockIdentityRepo struct {
	findByProviderFn func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findByProviderFn != nil {
		return m.findByProviderFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

// --- compile-time interface checks ---
var _ SessionEstablisher = (*mockSessions)(nil)
var _ OAuthProvider = (*mockOAuthProvider)(nil)
var _ repository.IdentityRepository = (*mockIdentityRepo)(nil)

// --- ヘルパー ---

func providerReturning(name string, info OAuthUserInfo) *mockOAuthProvider {
	return &mockOAuthProvider{
		name: name,
		exchangeCodeFn: func(_ context.Context, code string) (*OAuthUserInfo, error) {
			if code != "good-code" {
				return nil, errors.New("invalid_grant")
			}
			out := info
			out.Provider = name
			return &out, nil
		},
	}
}

func newTestService(store *repotest.Store, sessions *mockSessions, providers ...OAuthProvider) *Service {
	return NewService(store.Users(), store.Identities(), password.NewHasher(bcrypt.MinCost), sessions, NewRegistry(providers...), nil)
}

func bobSignup() SignupInput {
	return SignupInput{FullName: "bob", Email: "b@x.com", Password: "pass1", Password2: "pass1"}
}

// --- Signup ---

func TestSignup_ValidInput_CreatesUserWithHashedPassword(t *testing.T) {
	store := repotest.NewStore()
	sessions := &mockSessions{}
	svc := newTestService(store, sessions)

	user, err := svc.Signup(context.Background(), SignupInput{
		FullName: " bob ", Email: " B@X.com ", Password: "pass1", Password2: "pass1",
	})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	stored, ok := store.User(user.ID)
	if !ok {
		t.Fatal("user should be persisted")
	}
	if stored.FullName != "bob" {
		t.Errorf("FullName = %q, want %q", stored.FullName, "bob")
	}
	if stored.Email != "b@x.com" {
		t.Errorf("Email = %q, want %q", stored.Email, "b@x.com")
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "pass1" {
		t.Errorf("PasswordHash = %q, want a digest", stored.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pass1")) != nil {
		t.Error("stored digest should verify the original password")
	}
	if stored.Online {
		t.Error("new user should be offline")
	}
	// サインアップではログインしない
	if sessions.count() != 0 {
		t.Errorf("sessions established = %d, want 0", sessions.count())
	}
}

func TestSignup_InvalidInput_ReturnsAllProblems(t *testing.T) {
	svc := newTestService(repotest.NewStore(), &mockSessions{})

	_, err := svc.Signup(context.Background(), SignupInput{
		FullName: "bob", Email: "b@x.com", Password: "abc", Password2: "abd",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeValidation {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
	}
	want := []string{"Password does Not match", "Password must be at least 5 characters"}
	if len(apiErr.Details) != len(want) {
		t.Fatalf("Details = %v, want %v", apiErr.Details, want)
	}
	for i := range want {
		if apiErr.Details[i] != want[i] {
			t.Errorf("Details[%d] = %q, want %q", i, apiErr.Details[i], want[i])
		}
	}
}

func TestSignup_MissingNameAndBadEmail_ReturnsValidationError(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		email    string
		wantMsg  string
	}{
		{"blank name and malformed email", "  ", "not-an-email", msgNameRequired},
		{"malformed email", "bob", "not-an-email", msgEmailInvalid},
		{"angle brackets", "bob", "<b@x.com>", msgEmailInvalid},
		{"display name", "bob", "Bob <b@x.com>", msgEmailInvalid},
		{"quoted display name", "bob", `"Bob" <b@x.com>`, msgEmailInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repotest.NewStore()
			svc := newTestService(store, &mockSessions{})

			_, err := svc.Signup(context.Background(), SignupInput{
				FullName: tt.fullName, Email: tt.email, Password: "pass1", Password2: "pass1",
			})
			if !model.HasCode(err, model.ErrCodeValidation) {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
			if !containsProblem(err, tt.wantMsg) {
				t.Errorf("problems = %v, want to contain %q", problemsOf(err), tt.wantMsg)
			}
			if store.UserCount() != 0 {
				t.Errorf("UserCount() = %d, want 0", store.UserCount())
			}
		})
	}
}

// 同じメールボックスは表記を変えても2つ目のアカウントにならない。
func TestSignup_SameMailboxDifferentSpelling_SingleAccount(t *testing.T) {
	store := repotest.NewStore()
	sessions := &mockSessions{}
	svc := newTestService(store, sessions)

	user, err := svc.Signup(context.Background(), SignupInput{
		FullName: "bob", Email: "  B@X.com ", Password: "pass1", Password2: "pass1",
	})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if user.Email != "b@x.com" {
		t.Errorf("Email = %q, want %q", user.Email, "b@x.com")
	}

	for _, email := range []string{"<b@x.com>", "Bob <b@x.com>", "b@x.com"} {
		_, err := svc.Signup(context.Background(), SignupInput{
			FullName: "bob", Email: email, Password: "pass1", Password2: "pass1",
		})
		if err == nil {
			t.Errorf("Signup(%q) error = nil, want an error", email)
		}
	}
	if store.UserCount() != 1 {
		t.Errorf("UserCount() = %d, want 1", store.UserCount())
	}

	if _, err := svc.Login(context.Background(), "b@x.com", "pass1"); err != nil {
		t.Errorf("Login() error = %v", err)
	}
}

func TestSignup_FieldLengthBoundary(t *testing.T) {
	atLimitEmail := strings.Repeat("a", model.MaxFieldLength-len("@x.com")) + "@x.com"
	overLimitEmail := "a" + atLimitEmail

	tests := []struct {
		name     string
		fullName string
		email    string
		wantMsg  string
	}{
		{"name at limit", strings.Repeat("n", model.MaxFieldLength), "a@x.com", ""},
		{"name over limit", strings.Repeat("n", model.MaxFieldLength+1), "a@x.com", msgNameTooLong},
		{"email at limit", "bob", atLimitEmail, ""},
		{"email over limit", "bob", overLimitEmail, msgEmailTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repotest.NewStore()
			svc := newTestService(store, &mockSessions{})

			_, err := svc.Signup(context.Background(), SignupInput{
				FullName: tt.fullName, Email: tt.email, Password: "pass1", Password2: "pass1",
			})
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("Signup() error = %v, want nil", err)
				}
				return
			}
			if !model.HasCode(err, model.ErrCodeValidation) {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
			if !containsProblem(err, tt.wantMsg) {
				t.Errorf("problems = %v, want to contain %q", problemsOf(err), tt.wantMsg)
			}
			if store.UserCount() != 0 {
				t.Errorf("UserCount() = %d, want 0", store.UserCount())
			}
		})
	}
}

func problemsOf(err error) []string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Details
	}
	return nil
}

func containsProblem(err error, msg string) bool {
	for _, p := range problemsOf(err) {
		if p == msg {
			return true
		}
	}
	return false
}

func TestSignup_PasswordLengthBoundary(t *testing.T) {
	svc := newTestService(repotest.NewStore(), &mockSessions{})

	_, err := svc.Signup(context.Background(), SignupInput{
		FullName: "a", Email: "a@x.com", Password: "12345", Password2: "12345",
	})
	if err != nil {
		t.Errorf("5 characters should be accepted, got %v", err)
	}

	long := strings.Repeat("a", password.MaxLength+1)
	_, err = svc.Signup(context.Background(), SignupInput{
		FullName: "b", Email: "b@x.com", Password: long, Password2: long,
	})
	if !model.HasCode(err, model.ErrCodeValidation) {
		t.Errorf("expected VALIDATION_ERROR for too long password, got %v", err)
	}
}

func TestSignup_DuplicateEmail_ReturnsDuplicateEmail(t *testing.T) {
	store := repotest.NewStore()
	svc := newTestService(store, &mockSessions{})

	if _, err := svc.Signup(context.Background(), bobSignup()); err != nil {
		t.Fatalf("first Signup() error = %v", err)
	}

	in := bobSignup()
	in.Email = "B@X.COM"
	_, err := svc.Signup(context.Background(), in)
	if !model.HasCode(err, model.ErrCodeDuplicateEmail) {
		t.Fatalf("expected DUPLICATE_EMAIL, got %v", err)
	}
	if store.UserCount() != 1 {
		t.Errorf("UserCount() = %d, want 1", store.UserCount())
	}
}

func TestSignup_ConcurrentSameEmail_ExactlyOneSucceeds(t *testing.T) {
	store := repotest.NewStore()
	svc := newTestService(store, &mockSessions{})

	const n = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Signup(context.Background(), bobSignup())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case model.HasCode(err, model.ErrCodeDuplicateEmail):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}
	if duplicates != n-1 {
		t.Errorf("duplicates = %d, want %d", duplicates, n-1)
	}
	if store.UserCount() != 1 {
		t.Errorf("UserCount() = %d, want 1", store.UserCount())
	}
}

func TestSignup_StoreUnavailable_ReturnsStoreError(t *testing.T) {
	store := repotest.NewStore()
	store.Err = model.NewStoreUnavailableError(errors.New("connection refused"))
	svc := newTestService(store, &mockSessions{})

	_, err := svc.Signup(context.Background(), bobSignup())
	if !model.HasCode(err, model.ErrCodeStoreUnavailable) {
		t.Errorf("expected STORE_UNAVAILABLE, got %v", err)
	}
}

// --- Login ---

func TestLogin_ValidCredentials_EstablishesSession(t *testing.T) {
	store := repotest.NewStore()
	sessions := &mockSessions{}
	svc := newTestService(store, sessions)

	created, err := svc.Signup(context.Background(), bobSignup())
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	user, err := svc.Login(context.Background(), "B@x.com", "pass1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("user.ID = %q, want %q", user.ID, created.ID)
	}
	if len(sessions.established) != 1 || sessions.established[0] != created.ID {
		t.Errorf("established = %v, want [%s]", sessions.established, created.ID)
	}
}

func TestLogin_Failures_AreIndistinguishable(t *testing.T) {
	store := repotest.NewStore()
	sessions := &mockSessions{}
	svc := newTestService(store, sessions)

	if _, err := svc.Signup(context.Background(), bobSignup()); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	// パスワード未設定（外部IdPのみ）のユーザー
	if err := store.Users().Create(context.Background(), &model.User{ID: "fed-1", FullName: "fed", Email: "fed@x.com"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	cases := []struct {
		name, email, password string
	}{
		{"unknown email", "nobody@x.com", "pass1"},
		{"wrong password", "b@x.com", "pass2"},
		{"federated only", "fed@x.com", ""},
		{"federated only with password", "fed@x.com", "pass1"},
	}

	var messages []string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.email, tc.password)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
				t.Fatalf("expected INVALID_CREDENTIALS, got %v", err)
			}
			messages = append(messages, apiErr.Message)
		})
	}

	for _, m := range messages {
		if m != "User Not found or Password Incorrect" {
			t.Errorf("message = %q, want generic message", m)
		}
	}
	if sessions.count() != 0 {
		t.Errorf("sessions established = %d, want 0", sessions.count())
	}
}

func TestLogin_SessionError_ReturnsError(t *testing.T) {
	store := repotest.NewStore()
	sessions := &mockSessions{
		establishFn: func(context.Context, string) error { return errors.New("store down") },
	}
	svc := newTestService(store, sessions)

	if _, err := svc.Signup(context.Background(), bobSignup()); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if _, err := svc.Login(context.Background(), "b@x.com", "pass1"); err == nil {
		t.Fatal("expected error when session cannot be established")
	}
}

// --- HandleCallback ---

func TestHandleCallback_NewUser_CreatesUserAndIdentityAndSession(t *testing.T) {
	store := repotest.NewStore()
	sessions := &mockSessions{}
	google := providerReturning(model.ProviderGoogle, OAuthUserInfo{
		ProviderUserID: "g-123", Email: "Alice@Example.com", Name: "Alice",
	})
	svc := newTestService(store, sessions, google)

	user, err := svc.HandleCallback(context.Background(), model.ProviderGoogle, "good-code")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if user.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "alice@example.com")
	}
	if user.FullName != "Alice" {
		t.Errorf("FullName = %q, want %q", user.FullName, "Alice")
	}
	if user.HasPassword() {
		t.Error("federated user should not have a password")
	}
	if store.UserCount() != 1 || store.IdentityCount() != 1 {
		t.Errorf("users = %d, identities = %d, want 1, 1", store.UserCount(), store.IdentityCount())
	}
	if len(sessions.established) != 1 || sessions.established[0] != user.ID {
		t.Errorf("established = %v, want [%s]", sessions.established, user.ID)
	}
}

func TestHandleCallback_ExistingIdentity_ReusesUser(t *testing.T) {
	store := repotest.NewStore()
	sessions := &mockSessions{}
	google := providerReturning(model.ProviderGoogle, OAuthUserInfo{
		ProviderUserID: "g-123", Email: "alice@example.com", Name: "Alice",
	})
	svc := newTestService(store, sessions, google)

	first, err := svc.HandleCallback(context.Background(), model.ProviderGoogle, "good-code")
	if err != nil {
		t.Fatalf("first HandleCallback() error = %v", err)
	}
	second, err := svc.HandleCallback(context.Background(), model.ProviderGoogle, "good-code")
	if err != nil {
		t.Fatalf("second HandleCallback() error = %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("second login user = %q, want %q", second.ID, first.ID)
	}
	if store.UserCount() != 1 {
		t.Errorf("UserCount() = %d, want 1", store.UserCount())
	}
	if sessions.count() != 2 {
		t.Errorf("sessions established = %d, want 2", sessions.count())
	}
}

func TestHandleCallback_SameEmailOtherProvider_DoesNotMerge(t *testing.T) {
	store := repotest.NewStore()
	sessions := &mockSessions{}
	google := providerReturning(model.ProviderGoogle, OAuthUserInfo{
		ProviderUserID: "g-123", Email: "alice@example.com", Name: "Alice",
	})
	facebook := providerReturning(model.ProviderFacebook, OAuthUserInfo{
		ProviderUserID: "fb-999", Email: "alice@example.com", Name: "Alice FB",
	})
	svc := newTestService(store, sessions, google, facebook)

	if _, err := svc.HandleCallback(context.Background(), model.ProviderGoogle, "good-code"); err != nil {
		t.Fatalf("google HandleCallback() error = %v", err)
	}

	_, err := svc.HandleCallback(context.Background(), model.ProviderFacebook, "good-code")
	if !model.HasCode(err, model.ErrCodeDuplicateEmail) {
		t.Fatalf("expected DUPLICATE_EMAIL, got %v", err)
	}
	if store.UserCount() != 1 || store.IdentityCount() != 1 {
		t.Errorf("users = %d, identities = %d, want 1, 1", store.UserCount(), store.IdentityCount())
	}
	if sessions.count() != 1 {
		t.Errorf("sessions established = %d, want 1", sessions.count())
	}
}

func TestHandleCallback_ExchangeFailure_CreatesNothing(t *testing.T) {
	store := repotest.NewStore()
	sessions := &mockSessions{}
	google := providerReturning(model.ProviderGoogle, OAuthUserInfo{ProviderUserID: "g-1", Email: "a@x.com"})
	svc := newTestService(store, sessions, google)

	for _, code := range []string{"bad-code", ""} {
		_, err := svc.HandleCallback(context.Background(), model.ProviderGoogle, code)
		if !model.HasCode(err, model.ErrCodeFederatedLoginFailed) {
			t.Errorf("code %q: expected FEDERATED_LOGIN_FAILED, got %v", code, err)
		}
	}
	if store.UserCount() != 0 || store.IdentityCount() != 0 {
		t.Errorf("users = %d, identities = %d, want 0, 0", store.UserCount(), store.IdentityCount())
	}
	if sessions.count() != 0 {
		t.Errorf("sessions established = %d, want 0", sessions.count())
	}
}

func TestHandleCallback_MissingEmail_Fails(t *testing.T) {
	store := repotest.NewStore()
	facebook := providerReturning(model.ProviderFacebook, OAuthUserInfo{ProviderUserID: "fb-1", Name: "No Mail"})
	svc := newTestService(store, &mockSessions{}, facebook)

	_, err := svc.HandleCallback(context.Background(), model.ProviderFacebook, "good-code")
	if !model.HasCode(err, model.ErrCodeFederatedLoginFailed) {
		t.Fatalf("expected FEDERATED_LOGIN_FAILED, got %v", err)
	}
	if store.UserCount() != 0 {
		t.Errorf("UserCount() = %d, want 0", store.UserCount())
	}
}

func TestHandleCallback_UnusableEmail_Fails(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{"display name", "Eve <eve@example.com>"},
		{"too long", strings.Repeat("e", model.MaxFieldLength) + "@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repotest.NewStore()
			google := providerReturning(model.ProviderGoogle, OAuthUserInfo{ProviderUserID: "g-9", Email: tt.email, Name: "Eve"})
			svc := newTestService(store, &mockSessions{}, google)

			_, err := svc.HandleCallback(context.Background(), model.ProviderGoogle, "good-code")
			if !model.HasCode(err, model.ErrCodeFederatedLoginFailed) {
				t.Fatalf("expected FEDERATED_LOGIN_FAILED, got %v", err)
			}
			if store.UserCount() != 0 {
				t.Errorf("UserCount() = %d, want 0", store.UserCount())
			}
		})
	}
}

func TestHandleCallback_LongName_IsTruncated(t *testing.T) {
	store := repotest.NewStore()
	google := providerReturning(model.ProviderGoogle, OAuthUserInfo{
		ProviderUserID: "g-10", Email: "long@example.com", Name: strings.Repeat("名", model.MaxFieldLength+10),
	})
	svc := newTestService(store, &mockSessions{}, google)

	user, err := svc.HandleCallback(context.Background(), model.ProviderGoogle, "good-code")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if got := len([]rune(user.FullName)); got != model.MaxFieldLength {
		t.Errorf("len(FullName) = %d, want %d", got, model.MaxFieldLength)
	}
}

func TestHandleCallback_UnknownProvider_Fails(t *testing.T) {
	svc := newTestService(repotest.NewStore(), &mockSessions{})

	_, err := svc.HandleCallback(context.Background(), "github", "good-code")
	if !model.HasCode(err, model.ErrCodeFederatedLoginFailed) {
		t.Errorf("expected FEDERATED_LOGIN_FAILED, got %v", err)
	}
}

// 同じidentityの同時コールバックで作成に負けた側は、勝った側のユーザーでログインする。
func TestHandleCallback_IdentityConflict_UsesWinner(t *testing.T) {
	store := repotest.NewStore()
	winner := &model.User{ID: "winner", FullName: "Alice", Email: "alice@example.com"}
	if err := store.Users().CreateWithIdentity(context.Background(), winner, &model.Identity{
		ID: "ident-1", UserID: "winner", Provider: model.ProviderGoogle, ProviderUserID: "g-123",
	}); err != nil {
		t.Fatalf("setup error = %v", err)
	}

	// 初回の検索だけ「未登録」に見せて競合を再現する
	calls := 0
	identRepo := &mockIdentityRepo{
		findByProviderFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			calls++
			if calls == 1 {
				return nil, nil
			}
			return store.Identities().FindByProviderAndProviderUserID(ctx, provider, providerUserID)
		},
	}
	google := providerReturning(model.ProviderGoogle, OAuthUserInfo{
		ProviderUserID: "g-123", Email: "alice2@example.com", Name: "Alice",
	})
	sessions := &mockSessions{}
	svc := NewService(store.Users(), identRepo, password.NewHasher(bcrypt.MinCost), sessions, NewRegistry(google), nil)

	user, err := svc.HandleCallback(context.Background(), model.ProviderGoogle, "good-code")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if user.ID != "winner" {
		t.Errorf("user.ID = %q, want %q", user.ID, "winner")
	}
	if store.UserCount() != 1 {
		t.Errorf("UserCount() = %d, want 1", store.UserCount())
	}
}

// --- その他 ---

func TestGetLoginURL(t *testing.T) {
	google := &mockOAuthProvider{
		name:          model.ProviderGoogle,
		getLoginURLFn: func(state string) string { return "https://accounts.example/auth?state=" + state },
	}
	svc := newTestService(repotest.NewStore(), &mockSessions{}, google)

	url, err := svc.GetLoginURL(model.ProviderGoogle, "s1")
	if err != nil {
		t.Fatalf("GetLoginURL() error = %v", err)
	}
	if url != "https://accounts.example/auth?state=s1" {
		t.Errorf("url = %q", url)
	}

	if _, err := svc.GetLoginURL(model.ProviderFacebook, "s1"); err == nil {
		t.Error("expected error for disabled provider")
	}
}

func TestProviders_ReturnsSortedNames(t *testing.T) {
	svc := newTestService(repotest.NewStore(), &mockSessions{},
		&mockOAuthProvider{name: model.ProviderGoogle},
		&mockOAuthProvider{name: model.ProviderFacebook},
	)

	got := svc.Providers()
	if len(got) != 2 || got[0] != "facebook" || got[1] != "google" {
		t.Errorf("Providers() = %v, want [facebook google]", got)
	}
}

func TestGenerateState_UniqueHex(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	b, _ := GenerateState()

	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
	if a == b {
		t.Error("states should differ")
	}
}
