package http

import (
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// loginPageData feeds both the login and registration forms; Error carries
// the inline message shown when a submission is re-rendered.
type loginPageData struct {
	ClientName string
	Error      string
}

type consentPageData struct {
	ClientName string
	Scopes     []string
	Error      string
}

type successPageData struct {
	Message string
}

func renderPage(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = pageTemplates.ExecuteTemplate(w, name, data)
}

func renderLoginPage(w http.ResponseWriter, status int, data loginPageData) {
	renderPage(w, status, "login.html", data)
}

func renderConsentPage(w http.ResponseWriter, status int, data consentPageData) {
	renderPage(w, status, "consent.html", data)
}

func renderSuccessPage(w http.ResponseWriter, data successPageData) {
	renderPage(w, http.StatusOK, "success.html", data)
}
