// Package repotest はテスト用のインメモリリポジトリを提供する。
// 一意制約の扱いはPostgreSQL実装と同じエラーを返す。
package repotest

import (
	"context"
	"sort"
	"sync"

	"github.com/hitoshi/webpresence/internal/model"
	"github.com/hitoshi/webpresence/internal/repository"
)

// Store はusers, identities, messagesをメモリ上に保持する。
// 全操作はミューテックスで直列化され、チェックと挿入は不可分に行われる。
type Store struct {
	mu         sync.Mutex
	users      map[string]model.User
	identities map[string]model.Identity // key: provider + "\x00" + provider_user_id
	messages   []model.Message

	// Err が設定されている場合、全操作がこのエラーを返す。
	Err error
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{
		users:      make(map[string]model.User),
		identities: make(map[string]model.Identity),
	}
}

// Users はStoreをUserRepositoryとして返す。
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Identities はStoreをIdentityRepositoryとして返す。
func (s *Store) Identities() repository.IdentityRepository { return identityRepo{s} }

// Messages はStoreをMessageRepositoryとして返す。
func (s *Store) Messages() repository.MessageRepository { return messageRepo{s} }

// User は保存済みユーザーのコピーを返す。
func (s *Store) User(id string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	return u, ok
}

// UserCount は保存済みユーザー数を返す。
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// IdentityCount は保存済みidentity数を返す。
func (s *Store) IdentityCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.identities)
}

// DeleteUser はユーザーと紐付くidentityを削除する。
// セッション中にユーザーが消えたケースの再現に使う。
func (s *Store) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	for k, ident := range s.identities {
		if ident.UserID == id {
			delete(s.identities, k)
		}
	}
}

func identityKey(provider, providerUserID string) string {
	return provider + "\x00" + providerUserID
}

// insertUserLocked はロック取得済みの状態でユーザーを挿入する。
func (s *Store) insertUserLocked(user *model.User) error {
	for _, u := range s.users {
		if u.Email == user.Email {
			return model.NewDuplicateEmailError()
		}
	}
	s.users[user.ID] = *user
	return nil
}

type userRepo struct{ s *Store }

func (r userRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, u := range r.s.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (r userRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	return r.s.insertUserLocked(user)
}

func (r userRepo) CreateWithIdentity(_ context.Context, user *model.User, identity *model.Identity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	key := identityKey(identity.Provider, identity.ProviderUserID)
	if _, exists := r.s.identities[key]; exists {
		return model.NewIdentityConflictError()
	}
	if err := r.s.insertUserLocked(user); err != nil {
		return err
	}
	r.s.identities[key] = *identity
	return nil
}

func (r userRepo) Save(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if _, ok := r.s.users[user.ID]; !ok {
		return model.NewUserNotFoundError()
	}
	r.s.users[user.ID] = *user
	return nil
}

type identityRepo struct{ s *Store }

func (r identityRepo) FindByProviderAndProviderUserID(_ context.Context, provider, providerUserID string) (*model.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	ident, ok := r.s.identities[identityKey(provider, providerUserID)]
	if !ok {
		return nil, nil
	}
	return &ident, nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, message *model.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	r.s.messages = append(r.s.messages, *message)
	return nil
}

func (r messageRepo) ListAll(_ context.Context) ([]*model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := make([]*model.Message, 0, len(r.s.messages))
	for i := range r.s.messages {
		m := r.s.messages[i]
		out = append(out, &m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// compile-time interface check
var (
	_ repository.UserRepository     = userRepo{}
	_ repository.IdentityRepository = identityRepo{}
	_ repository.MessageRepository  = messageRepo{}
)
