// Package view はHTMLテンプレートの読み込みとレンダリングを提供する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/webpresence/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

// ページ名。templates/配下のファイル名と一致する。
const (
	PageHome       = "home"
	PageAbout      = "about"
	PageContact    = "contact"
	PageNewAccount = "newAccount"
	PageProfile    = "profile"
	PageNewMessage = "newmessage"
	PageNoMessage  = "noMessage"
	PageError      = "error"
)

var pages = []string{
	PageHome, PageAbout, PageContact, PageNewAccount,
	PageProfile, PageNewMessage, PageNoMessage, PageError,
}

// Data はテンプレートに渡す値。
type Data struct {
	Title     string
	User      *model.User
	CSRFToken string
	Flashes   []string
	Errors    []string
	Providers []string

	// Form はバリデーションエラー時に再表示する入力値。パスワードは含めない。
	Form map[string]string

	Messages []*model.Message

	ErrorMessage string
	ErrorAction  string
}

// Renderer はページ毎にレイアウトと結合済みのテンプレートを保持する。
type Renderer struct {
	pages map[string]*template.Template
}

// New は埋め込みテンプレートを全てパースしてRendererを生成する。
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tmpl, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render はページをレンダリングしてレスポンスに書き込む。
// 途中まで書き込まれたレスポンスを返さないよう、バッファに描画してから送信する。
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data Data) {
	tmpl, ok := r.pages[name]
	if !ok {
		slog.Error("unknown template", slog.String("template", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
