package handler

import (
	"net/http"

	"github.com/hitoshi/webpresence/internal/view"
)

// PageHandler は静的な画面を表示するハンドラー。
type PageHandler struct {
	*responder
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(rs *responder) *PageHandler {
	return &PageHandler{responder: rs}
}

// Home はトップページ（ログインフォーム）を表示する。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, view.PageHome, h.page(r, "Home"))
}

// About は紹介ページを表示する。
// GET /about
func (h *PageHandler) About(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, view.PageAbout, h.page(r, "About"))
}

// Contact はお問い合わせフォームを表示する。
// GET /contact
func (h *PageHandler) Contact(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, view.PageContact, h.page(r, "Contact"))
}

// NewAccount はサインアップフォームを表示する。
// GET /newAccount
func (h *PageHandler) NewAccount(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, view.PageNewAccount, h.page(r, "Create an account"))
}

// NotFound は存在しないパスへのアクセスに404ページを返す。
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.notFound(w, r)
}
