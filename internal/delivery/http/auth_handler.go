package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"chatql/internal/entity"
	"chatql/internal/session"
	"chatql/internal/usecase"
)

type AuthHandler struct {
	authUc usecase.AuthUsecase
	logger *slog.Logger
}

func NewAuthHandler(authUc usecase.AuthUsecase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUc: authUc,
		logger: logger,
	}
}

// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req entity.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}

	// Validate password length
	if len(req.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, Response{Message: "password must be at least 6 characters"})
		return
	}

	// Validate username length
	if len(req.Username) < 3 {
		writeJSON(w, http.StatusBadRequest, Response{Message: "username must be at least 3 characters"})
		return
	}

	authResponse, err := h.authUc.Register(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal server error"

		switch {
		case errors.Is(err, usecase.ErrMissingFields):
			status = http.StatusBadRequest
			message = err.Error()
		case errors.Is(err, usecase.ErrEmailAlreadyTaken), errors.Is(err, usecase.ErrUsernameAlreadyTaken):
			status = http.StatusConflict
			message = err.Error()
		default:
			h.logger.Error("register failed", "error", err)
		}

		writeJSON(w, status, Response{Message: message})
		return
	}

	writeJSON(w, http.StatusCreated, Response{
		Message: "registration successful",
		Data:    authResponse,
	})
}

// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req entity.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Message: "invalid request body"})
		return
	}

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, Response{Message: "email and password are required"})
		return
	}

	authResponse, err := h.authUc.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, Response{Message: "invalid email or password"})
			return
		}
		h.logger.Error("login failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, Response{Message: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Message: "login successful",
		Data:    authResponse,
	})
}

// GET /auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		writeJSON(w, http.StatusUnauthorized, Response{Message: "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "success", Data: s})
}
