package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/webpresence/internal/contact"
	"github.com/hitoshi/webpresence/internal/model"
	"github.com/hitoshi/webpresence/internal/view"
)

// ContactServiceInterface はお問い合わせハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	Submit(ctx context.Context, in contact.Submission) ([]*model.Message, error)
}

// ContactHandler はお問い合わせ送信のHTTPハンドラー。
type ContactHandler struct {
	*responder
	service ContactServiceInterface
}

// NewContactHandler はContactHandlerを生成する。
func NewContactHandler(rs *responder, service ContactServiceInterface) *ContactHandler {
	return &ContactHandler{
		responder: rs,
		service:   service,
	}
}

// ContactUs はメッセージを保存し、保存済みの全メッセージを表示する。
// 入力エラー時は入力値を保持してフォームを再表示する。
// POST /contactUs
func (h *ContactHandler) ContactUs(w http.ResponseWriter, r *http.Request) {
	in := contact.Submission{
		FullName: r.PostFormValue("fullname"),
		Email:    r.PostFormValue("email"),
		Body:     r.PostFormValue("message"),
	}

	messages, err := h.service.Submit(r.Context(), in)
	if err != nil {
		if isFormError(err) {
			data := h.page(r, "Contact")
			data.Errors = validationMessages(err)
			data.Form = map[string]string{
				"fullname": in.FullName,
				"email":    in.Email,
				"message":  in.Body,
			}
			h.render(w, http.StatusUnprocessableEntity, view.PageContact, data)
			return
		}
		h.handleServiceError(w, r, err)
		return
	}

	if len(messages) == 0 {
		h.render(w, http.StatusOK, view.PageNoMessage, h.page(r, "Messages"))
		return
	}

	data := h.page(r, "Messages")
	data.Messages = messages
	h.render(w, http.StatusOK, view.PageNewMessage, data)
}
