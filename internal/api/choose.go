package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/TimurManjosov/godecider/internal/decider"
	"github.com/TimurManjosov/godecider/internal/engine"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// chooseRequest is the body of POST /v1/choose. Expose defaults to true;
// a client sending false records the exposure later through POST /v1/expose.
type chooseRequest struct {
	Feature string         `json:"feature"`
	Context map[string]any `json:"context,omitempty"`
	Expose  *bool          `json:"expose,omitempty"`
}

// chooseResponse wraps one decision. EventID is set when an exposure event
// was emitted for it.
type chooseResponse struct {
	Decision       engine.Decision `json:"decision"`
	EventID        string          `json:"event_id,omitempty"`
	DroppedContext []string        `json:"dropped_context,omitempty"`
}

// chooseAllRequest is the body of POST /v1/choose/all. Identifier restricts
// evaluation to features bucketing on that identifier kind.
type chooseAllRequest struct {
	Context    map[string]any `json:"context,omitempty"`
	Identifier string         `json:"identifier,omitempty"`
	Expose     *bool          `json:"expose,omitempty"`
}

// exposeRequest is the body of POST /v1/expose.
type exposeRequest struct {
	Feature string         `json:"feature"`
	Variant string         `json:"variant"`
	Context map[string]any `json:"context,omitempty"`
}

// exposeResponse reports whether an exposure event was written. Exposed is
// false for an empty variant and for features that do not emit events.
type exposeResponse struct {
	Exposed bool   `json:"exposed"`
	EventID string `json:"event_id,omitempty"`
}

type chooseAllResponse struct {
	Decisions      map[string]engine.Decision `json:"decisions"`
	Errors         []string                   `json:"errors,omitempty"`
	ETag           string                     `json:"etag"`
	DroppedContext []string                   `json:"dropped_context,omitempty"`
}

// handleChoose handles POST /v1/choose
func (s *Server) handleChoose(w http.ResponseWriter, r *http.Request) {
	var req chooseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	feature := strings.TrimSpace(req.Feature)
	if feature == "" {
		MissingFieldError(w, r, "feature", "feature is required")
		return
	}

	ctx, dropped := s.sanitize(r, req.Context)
	dec, err := s.decider.Choose(feature, ctx)
	if err != nil {
		s.writeDecisionError(w, r, err)
		return
	}

	resp := chooseResponse{Decision: dec, DroppedContext: dropped}
	if exposing(req.Expose) {
		resp.EventID = s.logExposure(r, dec)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleChooseAll handles POST /v1/choose/all
func (s *Server) handleChooseAll(w http.ResponseWriter, r *http.Request) {
	var req chooseAllRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, dropped := s.sanitize(r, req.Context)
	view := s.decider.View()
	decisions, err := view.ChooseAll(ctx, strings.TrimSpace(req.Identifier))

	resp := chooseAllResponse{Decisions: decisions, ETag: view.ETag(), DroppedContext: dropped}
	if err != nil {
		s.log.Warn().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("some features failed to evaluate")
		resp.Errors = splitJoined(err)
	}
	if exposing(req.Expose) {
		for _, dec := range decisions {
			s.logExposure(r, dec)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleExpose handles POST /v1/expose
func (s *Server) handleExpose(w http.ResponseWriter, r *http.Request) {
	var req exposeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	feature := strings.TrimSpace(req.Feature)
	if feature == "" {
		MissingFieldError(w, r, "feature", "feature is required")
		return
	}

	ctx, _ := s.sanitize(r, req.Context)
	dec, err := s.decider.Expose(feature, strings.TrimSpace(req.Variant), ctx)
	if err != nil {
		s.writeDecisionError(w, r, err)
		return
	}

	var resp exposeResponse
	if dec.HasVariant() {
		resp.EventID = s.logExposure(r, dec)
		resp.Exposed = resp.EventID != ""
	}
	writeJSON(w, http.StatusOK, resp)
}

func exposing(flag *bool) bool { return flag == nil || *flag }

// sanitize converts the request context, logging any attributes it had to drop.
func (s *Server) sanitize(r *http.Request, values map[string]any) (engine.Context, []string) {
	ctx, dropped := engine.SanitizeContext(values)
	if len(dropped) > 0 {
		s.log.Warn().
			Strs("keys", dropped).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("dropped unsupported context values")
	}
	return ctx, dropped
}

// logExposure writes the exposure event of dec when its feature asks for one
// and returns the event id.
func (s *Server) logExposure(r *http.Request, dec engine.Decision) string {
	if !dec.Exposure.EmitEvent {
		return ""
	}
	eventID := uuid.NewString()
	exp := dec.Exposure
	s.log.Info().
		Str("event_id", eventID).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("feature", dec.Feature).
		Bool("enabled", dec.Enabled).
		Str("variant", dec.Variant).
		Str("decision_maker", exp.DecisionMaker).
		Str("identifier", exp.Identifier).
		Str("identifier_value", exp.IdentifierValue).
		Float64("bucket", exp.Bucket).
		Int64("experiment_id", exp.ExperimentID).
		Str("version", exp.Version).
		Str("owner", exp.Owner).
		Int64("start_ts", exp.StartTS).
		Int64("stop_ts", exp.StopTS).
		Msg("exposure")
	return eventID
}

// writeDecisionError maps decider errors onto responses.
func (s *Server) writeDecisionError(w http.ResponseWriter, r *http.Request, err error) {
	var evalErr *engine.EvalError
	switch {
	case errors.Is(err, decider.ErrUnknownFeature):
		NotFoundError(w, r, ErrCodeUnknownFeature, err.Error())
	case errors.Is(err, decider.ErrNotDynamicConfig):
		NotFoundError(w, r, ErrCodeNotDynamicConfig, err.Error())
	case errors.As(err, &evalErr):
		s.log.Warn().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("evaluation failed")
		EvalErrorResponse(w, r, err.Error())
	default:
		s.log.Error().Err(err).Msg("unexpected decider error")
		InternalError(w, r, "decision failed")
	}
}

// splitJoined flattens an errors.Join result into messages.
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		out := make([]string, 0, len(joined.Unwrap()))
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
