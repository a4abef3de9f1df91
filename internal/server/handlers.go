package server

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// defaultGuest is greeted when the form carries no username.
const defaultGuest = "ゲスト"

var shell = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <script src="{{.HTMXSrc}}"></script>
    <style>
      body { font-family: sans-serif; max-width: 600px; margin: 2rem auto; padding: 1rem; }
      input { padding: 8px; margin-right: 8px; }
      button { padding: 8px 16px; cursor: pointer; background: #0070f3; color: white; border: none; border-radius: 4px; }
      #response { margin-top: 1rem; padding: 1rem; background: #f4f4f4; border-radius: 4px; }
    </style>
  </head>
  <body>
{{.Body}}
  </body>
</html>
`))

var greeting = template.Must(template.New("greeting").Parse(`<p style="color: green;">
  サーバー完了: <strong>{{.}}</strong> さん、こんにちは！
</p>
`))

type shellData struct {
	Title   string
	HTMXSrc string
	Body    template.HTML
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, "index")
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, chi.URLParam(r, "name"))
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, name string) {
	body, err := s.Render(name)
	if errors.Is(err, ErrPageNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("render failed", "page", name, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := shellData{Title: "MDMX: " + name, HTMXSrc: s.htmxSrc, Body: body}
	if err := shell.Execute(w, data); err != nil {
		s.logger.Warn("failed to write page", "page", name, "error", err)
	}
}

func (s *Server) handleGreet(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.PostForm.Get("username"))
	if name == "" {
		name = defaultGuest
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := greeting.Execute(w, name); err != nil {
		s.logger.Warn("failed to write greeting", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
