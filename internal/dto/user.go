package dto

import "github.com/noah-isme/classroom-api/internal/models"

// RegisterUserRequest is the sign-up payload. Role binding rejects anything outside the closed role set.
type RegisterUserRequest struct {
	Email        string          `json:"email" validate:"required,email"`
	Password     string          `json:"password" validate:"required,min=6"`
	FullName     string          `json:"full_name" validate:"required,max=255"`
	Role         models.UserRole `json:"role" validate:"required"`
	ProfilePhoto *string         `json:"profile_photo" validate:"omitempty,url"`
	BirthPlace   *string         `json:"birth_place" validate:"omitempty,max=255"`
	BirthDate    *models.Date    `json:"birth_date"`
	Bio          *string         `json:"bio" validate:"omitempty,max=2000"`
}

// UpdateProfileRequest carries optional profile changes.
type UpdateProfileRequest struct {
	FullName     *string      `json:"full_name" validate:"omitempty,min=1,max=255"`
	ProfilePhoto *string      `json:"profile_photo" validate:"omitempty,url"`
	BirthPlace   *string      `json:"birth_place" validate:"omitempty,max=255"`
	BirthDate    *models.Date `json:"birth_date"`
	Bio          *string      `json:"bio" validate:"omitempty,max=2000"`
}
