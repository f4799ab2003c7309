package api

import (
	"net/http"

	"github.com/TimurManjosov/godecider/internal/decider"
	"github.com/go-chi/chi/v5"
)

type featuresResponse struct {
	ETag     string                `json:"etag"`
	Registry string                `json:"registry"`
	Features []decider.FeatureInfo `json:"features"`
}

type dynamicResponse struct {
	ETag    string         `json:"etag"`
	Configs map[string]any `json:"configs"`
}

type dynamicValueResponse struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// handleListFeatures handles GET /v1/features
func (s *Server) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	view := s.decider.View()
	if notModified(w, r, view.ETag()) {
		return
	}
	writeJSON(w, http.StatusOK, featuresResponse{
		ETag:     view.ETag(),
		Registry: s.decider.RegistryID(),
		Features: view.Features(),
	})
}

// handleGetFeature handles GET /v1/features/{name}
func (s *Server) handleGetFeature(w http.ResponseWriter, r *http.Request) {
	info, err := s.decider.Feature(chi.URLParam(r, "name"))
	if err != nil {
		s.writeDecisionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleDynamicConfigs handles GET /v1/dynamic
func (s *Server) handleDynamicConfigs(w http.ResponseWriter, r *http.Request) {
	view := s.decider.View()
	if notModified(w, r, view.ETag()) {
		return
	}
	writeJSON(w, http.StatusOK, dynamicResponse{ETag: view.ETag(), Configs: view.DynamicConfigs()})
}

// handleDynamicConfig handles GET /v1/dynamic/{name}
func (s *Server) handleDynamicConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	typ, value, err := s.decider.View().DynamicConfig(name)
	if err != nil {
		s.writeDecisionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dynamicValueResponse{
		Name:  name,
		Type:  string(typ),
		Value: value,
	})
}
