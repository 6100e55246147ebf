package model

import "time"

// Message はお問い合わせフォームから送信されたメッセージを表す。
// 作成後は変更・削除されない。
type Message struct {
	ID       string
	FullName string
	Email    string
	Body     string
	Date     time.Time
}
