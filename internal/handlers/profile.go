package handlers

import (
	"net/http"

	"github.com/vzalabardo/tomorrowmanyers/internal/middleware"
	"github.com/vzalabardo/tomorrowmanyers/internal/services"
)

// ProfileHandler handles the profile of the session user
type ProfileHandler struct {
	userService   *services.UserService
	avatarService *services.AvatarService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(userService *services.UserService, avatarService *services.AvatarService) *ProfileHandler {
	return &ProfileHandler{userService: userService, avatarService: avatarService}
}

// GetProfile handles GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetProfile(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondAppError(w, r, err, "get profile")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, err, "update profile")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondAppError(w, r, err, "update profile")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UploadAvatar handles POST /api/profile/avatar
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	var req services.AvatarUploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondAppError(w, r, err, "issue avatar upload")
		return
	}

	resp, err := h.avatarService.GetUploadURL(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondAppError(w, r, err, "issue avatar upload")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
