// Package repository はデータ永続化のインターフェースと実装を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/webpresence/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが登録済みの場合はDUPLICATE_EMAILのAPIErrorを返す。
	// 一意性はDBの制約で保証され、アプリ側の事前チェックとは独立している。
	Create(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// メールアドレス重複時はDUPLICATE_EMAIL、identity重複時はIDENTITY_CONFLICTを返す。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// Save はユーザーの変更を永続化する。
	// 対象ユーザーが存在しない場合はUSER_NOT_FOUNDのAPIErrorを返す。
	Save(ctx context.Context, user *model.User) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// MessageRepository はお問い合わせメッセージの永続化インターフェース。
type MessageRepository interface {
	// Create はメッセージを作成する。
	Create(ctx context.Context, message *model.Message) error

	// ListAll は全メッセージを送信日時の昇順で返す。
	ListAll(ctx context.Context) ([]*model.Message, error)
}
