package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vzalabardo/tomorrowmanyers/internal/models"
	"github.com/vzalabardo/tomorrowmanyers/internal/validation"
)

// UpdateProfileRequest represents a profile update. Empty bio and avatar
// URL clear the stored values.
type UpdateProfileRequest struct {
	Name      string  `json:"name" validate:"required,min=2,max=100"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url,max=2048"`
}

// UserService handles profile reads and updates
type UserService struct {
	users UserStore
}

// NewUserService creates a new user service
func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// GetProfile returns the user without its password hash
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile validates and stores the editable profile fields
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Bio = emptyToNil(req.Bio)
	req.AvatarURL = emptyToNil(req.AvatarURL)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateProfile(ctx, userID, req.Name, req.Bio, req.AvatarURL)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	log.Info().Str("user_id", userID).Msg("Profile updated")
	return user, nil
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
