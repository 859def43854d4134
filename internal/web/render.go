package web

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"math"
	"net/http"
	"net/url"

	"github.com/KaramelBytes/edadash/internal/utils"
)

var pageNames = []string{"index", "fraud", "marketing", "overview", "error"}

var funcs = template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.2f%%", v*100) },
	"num": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"query": func(base string, q url.Values) string {
		if enc := q.Encode(); enc != "" {
			return base + "?" + enc
		}
		return base
	},
	"heat": func(v, top int) string {
		if top <= 0 {
			return shade(0)
		}
		return shade(float64(v) / float64(top))
	},
	"hours": func() []int {
		out := make([]int, 24)
		for i := range out {
			out[i] = i
		}
		return out
	},
}

// shade maps 0..1 to a white to red background colour.
func shade(frac float64) string {
	if math.IsNaN(frac) || frac <= 0 {
		return "#ffffff"
	}
	level := 255 - int(math.Min(frac, 1)*200)
	return fmt.Sprintf("#ff%02x%02x", level, level)
}

// parsePages builds one template set per page on top of the shared layout.
func parsePages() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

type pageData struct {
	Title string
	Nav   string
	Body  any
}

func (s *Server) render(w http.ResponseWriter, status int, page, title string, body any) {
	t, ok := s.pages[page]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", pageData{Title: title, Nav: page, Body: body}); err != nil {
		log.Printf("[Server] template %s: %v", page, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorPage struct {
	Status  int
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, status int, err error) {
	s.render(w, status, "error", http.StatusText(status), errorPage{Status: status, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

type apiError struct {
	Error string `json:"error"`
}

func download(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(data)
}
