package validator

import (
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
)

type CourseCreateRequest struct {
	Title       string        `json:"title" validate:"required,course_title"`
	Description string        `json:"description" validate:"max=5000"`
	Price       pricing.Money `json:"price" validate:"course_price"`
	Category    string        `json:"category" validate:"required,max=100"`
	ImageURL    string        `json:"image" validate:"omitempty,url"`
}

type CourseUpdateRequest struct {
	Title       *string        `json:"title" validate:"omitempty,course_title"`
	Description *string        `json:"description" validate:"omitempty,max=5000"`
	Price       *pricing.Money `json:"price" validate:"omitempty,course_price"`
	Category    *string        `json:"category" validate:"omitempty,min=1,max=100"`
	ImageURL    *string        `json:"image" validate:"omitempty,url"`
}

type VideoRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	URL         string `json:"url" validate:"required,url"`
}

type SectionCreateRequest struct {
	Name     string         `json:"name" validate:"required,max=200"`
	Position *int           `json:"position" validate:"omitempty,min=0"`
	Videos   []VideoRequest `json:"videos" validate:"max=100,dive"`
}

type ReviewCreateRequest struct {
	Rating  int    `json:"rating" validate:"rating"`
	Comment string `json:"comment" validate:"max=2000"`
}

type RegisterRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email,max=255"`
	Password string          `json:"password" validate:"required,min=6,max=72"`
	Role     models.UserRole `json:"role" validate:"omitempty,user_role"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
}

type AdminUpdateUserRequest struct {
	Name    *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Email   *string          `json:"email" validate:"omitempty,email,max=255"`
	Role    *models.UserRole `json:"role" validate:"omitempty,user_role"`
	IsAdmin *bool            `json:"is_admin"`
}
