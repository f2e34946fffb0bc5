package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/interviewd/interviewd/internal/auth"
	"github.com/interviewd/interviewd/internal/interview"
	"github.com/interviewd/interviewd/internal/llm"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn("encoding response failed", zap.Error(err))
	}
}

func (s *Server) decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	defer r.Body.Close()

	reader := io.LimitReader(r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}

	var extra json.RawMessage
	if err := dec.Decode(&extra); err != nil && !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}

	return nil
}

// writeError maps service errors onto the HTTP taxonomy: user errors are 4xx,
// provider failures are 5xx, and nothing leaks partial state either way.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, llm.ErrUnsupportedModel):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Code: "unsupported_model", Message: err.Error()})
	case errors.Is(err, interview.ErrUnknownSession):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Code: "unknown_session", Message: err.Error()})
	case errors.Is(err, interview.ErrNotStarted),
		errors.Is(err, interview.ErrAlreadyStarted),
		errors.Is(err, interview.ErrEnded):
		s.writeJSON(w, http.StatusConflict, errorResponse{Code: "invalid_session_state", Message: err.Error()})
	case errors.Is(err, interview.ErrProviderTimeout):
		s.writeJSON(w, http.StatusGatewayTimeout, errorResponse{Code: "provider_timeout", Message: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "invalid_credentials", Message: err.Error()})
	default:
		s.log.Error("completion provider failure", zap.Error(err))
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Code: "provider_failure", Message: err.Error()})
	}
}
