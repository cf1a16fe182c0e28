package handler

import (
	"fmt"
	"net/http"

	"gopkg.in/yaml.v3"
)

// DocsHandler serves the OpenAPI document
type DocsHandler struct {
	spec []byte
	info DocsInfo
}

// DocsInfo is the summary served at /docs/info
type DocsInfo struct {
	Title       string `json:"title" yaml:"title"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
	DocsURL     string `json:"docs_url" yaml:"-"`
}

// NewDocsHandler parses the document's info block so a malformed spec fails at startup
func NewDocsHandler(spec []byte) (*DocsHandler, error) {
	var doc struct {
		Info DocsInfo `yaml:"info"`
	}
	if err := yaml.Unmarshal(spec, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if doc.Info.Title == "" {
		return nil, fmt.Errorf("OpenAPI document has no info.title")
	}
	doc.Info.DocsURL = "/docs"

	return &DocsHandler{spec: spec, info: doc.Info}, nil
}

// GetOpenAPISpec handles GET /docs
func (h *DocsHandler) GetOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(h.spec)
}

// GetOpenAPIInfo handles GET /docs/info
func (h *DocsHandler) GetOpenAPIInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.info, http.StatusOK)
}
