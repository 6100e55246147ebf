// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力からHTMLを取り除き、プレーンテキストとして保存できる形にする。
// お問い合わせメッセージなど、マークアップを一切許可しない入力に使用する。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はタグを全て除去するポリシーでTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去したプレーンテキストを返す。
// bluemondayがエスケープした文字実体は元に戻す。出力時のエスケープはテンプレート側で行う。
// script, styleは要素の中身ごと除去される。
func (s *TextSanitizer) Sanitize(input string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(input)))
}
