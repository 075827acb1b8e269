package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/gorilla/mux"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required"`
}

type requestChangePasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type updateUserRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username" validate:"required"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type validateResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// userResponse is the sanitized user projection: the password hash never
// leaves the server.
type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type errorResponse struct {
	Status   int      `json:"status"`
	Messages []string `json:"messages"`
}

func userResponseFrom(user *models.User) userResponse {
	return userResponse{ID: user.ID, Email: user.Email, Username: user.Username}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := s.auth.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, messageResponse{
		Message: fmt.Sprintf("User %s registered successfully", user.Username),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	_, pair, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		s.writeError(r.Context(), w, common.ErrInvalidToken)
		return
	}

	if _, err := s.auth.GetUserByID(r.Context(), claims.Subject); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, validateResponse{Valid: true, Message: "User is valid"})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		s.writeError(r.Context(), w, common.ErrInvalidToken)
		return
	}

	user, err := s.auth.GetUserByID(r.Context(), claims.Subject)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, userResponseFrom(user))
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		s.writeError(r.Context(), w, common.ErrInvalidToken)
		return
	}

	var req updateUserRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := s.auth.UpdateUser(r.Context(), &models.User{
		ID:       claims.Subject,
		Email:    req.Email,
		Username: req.Username,
	})
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, userResponseFrom(user))
}

func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		s.writeError(r.Context(), w, common.ErrInvalidToken)
		return
	}

	if err := s.auth.DeleteUser(r.Context(), claims.Subject); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("User with ID %s deleted successfully", claims.Subject),
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		s.writeError(r.Context(), w, common.ErrInvalidToken)
		return
	}

	var req changePasswordRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.auth.ChangePassword(r.Context(), claims.Subject, req.NewPassword); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Password for user ID %s changed successfully", claims.Subject),
	})
}

func (s *Server) handleRequestChangePassword(w http.ResponseWriter, r *http.Request) {
	var req requestChangePasswordRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if _, err := s.auth.RequestPasswordReset(r.Context(), req.Email, req.NewPassword); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Change password request for %s created successfully", req.Email),
	})
}

func (s *Server) handleConfirmChangePassword(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	email := r.URL.Query().Get("email")
	if email == "" {
		s.writeValidationError(w, "email query parameter is required")
		return
	}

	if err := s.auth.ConfirmPasswordReset(r.Context(), email, token); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Password for %s changed successfully", email),
	})
}

// --- helpers below ---

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeValidationError(w, "invalid request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeValidationError(w, err.Error())
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeValidationError(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{
		Status:   http.StatusBadRequest,
		Messages: []string{message},
	})
}

// writeError maps the error taxonomy to transport codes. Anything outside the
// taxonomy is coerced to a generic 500 so internal details never reach the
// wire.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal Server Error"

	switch {
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidToken):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, common.ErrUsernameTaken),
		errors.Is(err, common.ErrRequestAlreadyExists),
		errors.Is(err, common.ErrInvalidConfirmation):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	default:
		s.logger.Error(ctx, "unexpected error", "error", err.Error())
	}

	s.writeJSON(w, status, errorResponse{Status: status, Messages: []string{message}})
}
