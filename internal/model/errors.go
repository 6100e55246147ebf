package model

import (
	"errors"
	"fmt"
)

// APIError はアプリケーション共通のエラーフォーマットを表す。
// 画面に表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string   // エラーコード
	Message  string   // エラーメッセージ
	Category string   // カテゴリ: auth, validation, contact, system
	Action   string   // ユーザー向け対処方法
	Details  []string // 入力検証エラーの個別メッセージ
	Err      error    // 原因エラー（ログ用。画面には出さない）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeDuplicateEmail       = "DUPLICATE_EMAIL"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeFederatedLoginFailed = "FEDERATED_LOGIN_FAILED"
	ErrCodeIdentityConflict     = "IDENTITY_CONFLICT"
	ErrCodeStoreUnavailable     = "STORE_UNAVAILABLE"
)

// HasCode はerrのチェーンに指定コードのAPIErrorが含まれるかを判定する。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewValidationError は入力検証エラーを生成する。
// problemsには画面に表示する個別メッセージを渡す。
func NewValidationError(problems ...string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  "The submitted form contains errors.",
		Category: "validation",
		Action:   "Correct the highlighted fields and submit again.",
		Details:  problems,
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// どのフィールドが誤っていたかは開示しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "User Not found or Password Incorrect",
		Category: "auth",
		Action:   "Check your email and password and try again.",
	}
}

// NewDuplicateEmailError は登録済みメールアドレスのエラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "Email already exist",
		Category: "validation",
		Action:   "Log in with the existing account or use another email address.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: "auth",
		Action:   "Please log in again.",
	}
}

// NewFederatedLoginFailedError は外部IdPでのログイン失敗エラーを生成する。
func NewFederatedLoginFailedError(provider string, cause error) *APIError {
	return &APIError{
		Code:     ErrCodeFederatedLoginFailed,
		Message:  fmt.Sprintf("Login with %s failed.", provider),
		Category: "auth",
		Action:   "Try again or use another login method.",
		Err:      cause,
	}
}

// NewIdentityConflictError はIdP紐付けが同時に作成された場合のエラーを生成する。
// 呼び出し側で紐付けを再取得して解決する内部エラー。
func NewIdentityConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeIdentityConflict,
		Message:  "Identity is already linked.",
		Category: "auth",
		Action:   "Please try again.",
	}
}

// NewStoreUnavailableError は永続化層に到達できない場合のエラーを生成する。
func NewStoreUnavailableError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "The service is temporarily unavailable.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
		Err:      cause,
	}
}
