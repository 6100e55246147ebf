// Package model はドメインモデルを定義する。
package model

import "time"

// User はサイトに登録されたユーザーを表す。
// PasswordHashが空のユーザーは外部IdP経由でのみ作成されたアカウント。
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	Online       bool
	LastSeenAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword はローカル認証用のパスワードハッシュを持つかどうかを返す。
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Identity は外部IdPとの紐付け情報を表す。
// (Provider, ProviderUserID) の組はシステム全体で一意。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Provider名の定数。
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)
