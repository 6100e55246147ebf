package middleware

import (
	"errors"
	"net/http"

	"github.com/hitoshi/webpresence/internal/model"
)

// StatusForError はエラーに対応するHTTPステータスコードを返す。
// APIError以外のエラーは500として扱う。
func StatusForError(err error) int {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeDuplicateEmail:
		return http.StatusUnprocessableEntity
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeFederatedLoginFailed:
		return http.StatusBadGateway
	case model.ErrCodeIdentityConflict:
		return http.StatusConflict
	case model.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicError は画面に表示してよいエラー情報を返す。
// APIError以外のエラーの詳細はログのみに記録し、一般的なメッセージに置き換える。
func PublicError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "Something went wrong.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}
