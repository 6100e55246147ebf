package model

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// MaxFieldLength は氏名とメールアドレスの最大文字数。users/messagesテーブルのVARCHAR(255)に合わせる。
const MaxFieldLength = 255

// ParseEmail は入力を素のメールアドレスとして解釈し、小文字化した値を返す。
// 表示名付き（"Bob <b@x.com>"）や山括弧付き（"<b@x.com>"）は同じメールボックスが
// 別の文字列で登録されるのを防ぐため受け付けない。
func ParseEmail(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Name != "" || addr.Address != trimmed {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}

// TooLong はsがMaxFieldLength文字を超えるかを返す。
func TooLong(s string) bool {
	return utf8.RuneCountInString(s) > MaxFieldLength
}
