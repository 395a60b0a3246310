package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/shophub/internal/user"
)

// UserHandler handles authentication and admin user management.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		code, message := mapUserError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    u,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		code, message := mapUserError(err)
		respondMessage(w, code, message)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   token,
		"user":    u,
	})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := userFromContext(r.Context())
	if !ok {
		respondMessage(w, http.StatusUnauthorized, "Not authorized")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		code, message := mapUserError(err)
		respondMessage(w, code, message)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		code, message := mapUserError(err)
		respondMessage(w, code, message)
		return
	}

	respondMessage(w, http.StatusOK, "User deleted successfully")
}

func mapUserError(err error) (int, string) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, user.ErrEmailExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, user.ErrCannotDeleteAdmin):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, user.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	default:
		log.Error().Err(err).Msg("handler: unexpected user error")
		return http.StatusInternalServerError, err.Error()
	}
}
