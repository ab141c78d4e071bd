// Package app exposes the profile mutation surface over HTTP JSON.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"strings"

	"github.com/emberstream/platform/internal/platform/requestctx"
	"github.com/emberstream/platform/internal/services/profile/auth"
	"github.com/emberstream/platform/internal/services/profile/domain"
	"github.com/emberstream/platform/internal/services/profile/mutation"
)

const maxBodyBytes = 1 << 16

// Password strength bounds enforced at the binding; the mutation core
// trusts its callers on this. 72 is the bcrypt input limit.
const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

// Server binds profile mutations to HTTP routes behind bearer auth.
type Server struct {
	mutations *mutation.Service
	verifier  *auth.Verifier
	logger    *log.Logger
}

// NewServer wires the HTTP surface. The logger defaults to the standard
// logger.
func NewServer(mutations *mutation.Service, verifier *auth.Verifier, logger *log.Logger) (*Server, error) {
	if mutations == nil {
		return nil, fmt.Errorf("mutation service is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("auth verifier is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{mutations: mutations, verifier: verifier, logger: logger}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /v1/profile/email", s.authenticated(s.handleChangeEmail))
	mux.Handle("POST /v1/profile/display-name", s.authenticated(s.handleChangeDisplayName))
	mux.Handle("POST /v1/profile/display-color", s.authenticated(s.handleChangeDisplayColor))
	mux.Handle("POST /v1/profile/password", s.authenticated(s.handleChangePassword))
	mux.Handle("PUT /v1/follows/{channelID}", s.authenticated(s.handleSetFollow))
	return mux
}

// userView is the JSON shape returned for the mutated profile.
type userView struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	DisplayName   string `json:"displayName"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayColor  string `json:"displayColor"`
}

func viewOf(user domain.User) userView {
	return userView{
		ID:            user.ID,
		Username:      user.Username,
		DisplayName:   user.DisplayName,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		DisplayColor:  user.DisplayColor.String(),
	}
}

type errorBody struct {
	Error errorView `json:"error"`
}

type errorView struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// authenticated resolves the bearer token to a session before invoking
// the handler.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		session, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				s.writeError(w, mutation.New(mutation.CodeUnauthenticated, "request is not authenticated"))
				return
			}
			s.writeError(w, mutation.Wrap(mutation.CodePersistenceFailure, "verify session", err))
			return
		}
		next(w, r.WithContext(requestctx.WithSession(r.Context(), session)))
	})
}

func (s *Server) handleChangeEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	email := strings.TrimSpace(req.Email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		s.writeError(w, mutation.Invalid("email address is invalid", "email"))
		return
	}
	user, err := s.mutations.ChangeEmail(r.Context(), email)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(user))
}

func (s *Server) handleChangeDisplayName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"displayName"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.mutations.ChangeDisplayName(r.Context(), req.DisplayName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(user))
}

func (s *Server) handleChangeDisplayColor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayColor string `json:"displayColor"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.mutations.ChangeDisplayColor(r.Context(), req.DisplayColor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(user))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		s.writeError(w, mutation.Invalid("new password is too short", "newPassword"))
		return
	}
	if len(req.NewPassword) > maxPasswordLength {
		s.writeError(w, mutation.Invalid("new password is too long", "newPassword"))
		return
	}
	user, err := s.mutations.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(user))
}

func (s *Server) handleSetFollow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Following bool `json:"following"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.mutations.SetFollow(r.Context(), r.PathValue("channelID"), req.Following); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.writeError(w, mutation.Wrap(mutation.CodeInvalidInput, "request body is not valid JSON", err))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code, ok := mutation.CodeOf(err)
	if !ok {
		code = mutation.CodePersistenceFailure
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Printf("mutation failed: %v", err)
	}

	view := errorView{Code: string(code), Message: publicMessage(err, code)}
	var mutErr *mutation.Error
	if errors.As(err, &mutErr) {
		view.Fields = mutErr.Fields
	}
	s.writeJSON(w, status, errorBody{Error: view})
}

// statusFor maps mutation codes to HTTP statuses. PUBLISH_FAILURE maps
// to 502 so clients can tell "state may have changed" apart from "write
// failed".
func statusFor(code mutation.Code) int {
	switch code {
	case mutation.CodeUnauthenticated:
		return http.StatusUnauthorized
	case mutation.CodeNotFound:
		return http.StatusNotFound
	case mutation.CodeInvalidInput:
		return http.StatusBadRequest
	case mutation.CodeConflict:
		return http.StatusConflict
	case mutation.CodePublishFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal detail for server-side failures.
func publicMessage(err error, code mutation.Code) string {
	switch code {
	case mutation.CodePersistenceFailure:
		return "the change could not be saved"
	case mutation.CodePublishFailure:
		return "the change was saved but subscribers were not notified"
	}
	var mutErr *mutation.Error
	if errors.As(err, &mutErr) {
		return mutErr.Message
	}
	return "request failed"
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
