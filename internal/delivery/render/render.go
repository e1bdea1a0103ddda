package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"strings"
	"time"

	"advertisement-service/internal/domain"
	"advertisement-service/internal/service"
	"advertisement-service/pkg/utils"
)

const (
	ViewIndex  = "index"
	ViewShow   = "show"
	ViewCreate = "create"
	ViewEdit   = "edit"
	ViewDelete = "delete"
	ViewError  = "error"
)

var views = []string{ViewIndex, ViewShow, ViewCreate, ViewEdit, ViewDelete, ViewError}

//go:embed templates/*.html
var templateFS embed.FS

// Form is the state of a create or edit form: what was submitted and what was wrong with it.
type Form struct {
	Action string
	Method string
	Values domain.AdvertisementInput
	Errors domain.ValidationErrors
}

func (f *Form) FieldErrors() map[string]string {
	return f.Errors.ByField()
}

type ViewData struct {
	Flash         string
	Page          *service.PaginationResult
	Advertisement *domain.Advertisement
	Form          *Form
	Error         string
}

type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, view string, data ViewData)
	RenderError(w http.ResponseWriter, r *http.Request, status int, message string)
}

// Negotiator answers with JSON when the client asks for it and with HTML otherwise.
type Negotiator struct {
	templates map[string]*template.Template
}

func New() (*Negotiator, error) {
	funcs := template.FuncMap{
		"formatTime": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
	}

	templates := make(map[string]*template.Template, len(views))
	for _, view := range views {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+view+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", view, err)
		}
		templates[view] = t
	}
	return &Negotiator{templates: templates}, nil
}

func (n *Negotiator) Render(w http.ResponseWriter, r *http.Request, status int, view string, data ViewData) {
	if WantsJSON(r) {
		utils.RespondWithJSON(w, status, jsonPayload(view, data))
		return
	}

	t, ok := n.templates[view]
	if !ok {
		http.Error(w, "unknown view "+view, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (n *Negotiator) RenderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if WantsJSON(r) {
		utils.RespondWithErrorJSON(w, status, message)
		return
	}
	n.Render(w, r, status, ViewError, ViewData{Error: message})
}

// WantsJSON reports whether the request sent JSON or ranks JSON above HTML in Accept.
func WantsJSON(r *http.Request) bool {
	if ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && ct == "application/json" {
		return true
	}

	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mt {
		case "application/json":
			return true
		case "text/html", "application/xhtml+xml":
			return false
		}
	}
	return false
}

type formPayload struct {
	Values domain.AdvertisementInput `json:"values"`
	Errors domain.ValidationErrors   `json:"errors"`
}

func jsonPayload(view string, data ViewData) interface{} {
	switch view {
	case ViewIndex:
		return struct {
			*service.PaginationResult
			Flash string `json:"flash,omitempty"`
		}{data.Page, data.Flash}
	case ViewShow:
		return data.Advertisement
	case ViewCreate, ViewEdit, ViewDelete:
		out := map[string]interface{}{}
		if data.Advertisement != nil {
			out["advertisement"] = data.Advertisement
			out["version"] = data.Advertisement.Version()
		}
		if data.Form != nil {
			errs := data.Form.Errors
			if errs == nil {
				errs = domain.ValidationErrors{}
			}
			out["form"] = formPayload{Values: data.Form.Values, Errors: errs}
		}
		if data.Error != "" {
			out["error"] = data.Error
		}
		return out
	default:
		return map[string]string{"error": data.Error}
	}
}
