// Package handlers provides HTTP handlers for the web backend.
package handlers

import (
	"html/template"
	"log"
	"net/http"

	"mt5bridge/internal/mt5"
)

// ClientFactory builds a fresh API client per request.
type ClientFactory func() *mt5.Client

// render renders a template with the given data.
func render(w http.ResponseWriter, templates map[string]*template.Template, name string, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}

	tmpl, ok := templates[name]
	if !ok {
		http.Error(w, "Template not found: "+name, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
	}
}
