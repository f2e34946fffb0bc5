package server

import (
	"net/http"
	"strings"
)

// requireAuth guards a handler with bearer token validation.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.unauthorized(w)
			return
		}

		if _, err := s.authenticator.VerifyToken(strings.TrimSpace(token)); err != nil {
			s.unauthorized(w)
			return
		}

		next(w, r)
	})
}

func (s *Server) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	s.writeJSON(w, http.StatusUnauthorized, errorResponse{
		Code:    "unauthorized",
		Message: "could not validate credentials",
	})
}
