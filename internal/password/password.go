// Package password はパスワードの一方向ハッシュ化と照合を提供する。
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost はbcryptのデフォルトコスト。
const DefaultCost = 10

// MaxLength はbcryptが扱えるパスワードの最大バイト長。
const MaxLength = 72

// ErrTooLong はパスワードがMaxLengthを超える場合のエラー。
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Hasher はbcryptによるパスワードハッシュ化を行う。
// ソルトはハッシュ毎にランダム生成され、ダイジェストに埋め込まれる。
type Hasher struct {
	cost int
}

// NewHasher はHasherを生成する。
// costがbcryptの許容範囲外の場合はDefaultCostを使用する。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash は平文パスワードをハッシュ化したダイジェストを返す。
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxLength {
		return "", ErrTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify は平文パスワードがダイジェストと一致するかを返す。
// 比較は定数時間で行われる。不一致や不正なダイジェストはfalseを返す。
func (h *Hasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
