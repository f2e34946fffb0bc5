package server

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/interviewd/interviewd/internal/document"
	"github.com/interviewd/interviewd/internal/interview"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type createInterviewRequest struct {
	Resume         string `json:"resume"`
	JobDescription string `json:"job_description"`
	Model          string `json:"model"`
}

type createInterviewResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type turnResponse struct {
	Message chatMessage `json:"message"`
	Stage   string      `json:"stage"`
}

type closingResponse struct {
	Summary    string                  `json:"summary"`
	NextSteps  string                  `json:"next_steps"`
	Statistics interview.UsageSnapshot `json:"statistics"`
}

type transcriptResponse struct {
	Transcript []interview.TranscriptEntry `json:"transcript"`
}

type candidateMessageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_request", Message: err.Error()})
		return
	}

	token, err := s.authenticator.IssueToken(req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createInterviewRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_request", Message: err.Error()})
		return
	}

	if strings.TrimSpace(req.Resume) == "" || strings.TrimSpace(req.JobDescription) == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_request", Message: "resume and job_description are required"})
		return
	}

	resumeData, err := base64.StdEncoding.DecodeString(req.Resume)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_request", Message: "resume must be base64 encoded"})
		return
	}

	resumeText, err := document.Extract("resume", resumeData)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_document", Message: err.Error()})
		return
	}

	session, err := s.registry.Create(r.Context(), resumeText, req.JobDescription, req.Model)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, createInterviewResponse{
		SessionID: session.ID(),
		Message:   "Interview session created successfully",
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	session, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.controller.Start(r.Context(), session)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, turnResponse{
		Message: chatMessage{Role: string(interview.RoleInterviewer), Content: result.Content},
		Stage:   result.Stage.String(),
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	session, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req candidateMessageRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_request", Message: err.Error()})
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Code: "invalid_request", Message: "message is required"})
		return
	}

	result, err := s.controller.Submit(r.Context(), session, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, turnResponse{
		Message: chatMessage{Role: string(interview.RoleInterviewer), Content: result.Content},
		Stage:   result.Stage.String(),
	})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	session, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.controller.End(r.Context(), session)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, closingResponse{
		Summary:    result.Summary,
		NextSteps:  result.NextSteps,
		Statistics: result.Usage,
	})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	session, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, transcriptResponse{Transcript: session.Transcript()})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	session, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, session.Statistics())
}
