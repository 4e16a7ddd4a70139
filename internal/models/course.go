package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
)

type Course struct {
	ID           string        `json:"id" gorm:"primaryKey;size:64"`
	Title        string        `json:"title" gorm:"not null;size:200;index"`
	Description  string        `json:"description" gorm:"type:text"`
	InstructorID string        `json:"instructor_id" gorm:"not null;size:64;index"`
	Price        pricing.Money `json:"price" gorm:"type:decimal(10,2);not null;default:0"`
	Category     string        `json:"category" gorm:"size:100;index"`
	ImageURL     string        `json:"image_url" gorm:"size:500"`

	Rating     float64 `json:"rating" gorm:"not null;default:0"`
	NumReviews int     `json:"num_reviews" gorm:"not null;default:0"`

	Sections []ContentSection `json:"sections,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
	Reviews  []Review         `json:"reviews,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// IsFree reports whether the course can be enrolled in without a paid order.
func (c *Course) IsFree() bool {
	return c.Price.IsZero()
}

// Enrollment is one member of a course's enrolled-user set.
type Enrollment struct {
	CourseID  string    `json:"course_id" gorm:"primaryKey;size:64"`
	UserID    string    `json:"user_id" gorm:"primaryKey;size:64;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (Enrollment) TableName() string {
	return "course_enrollments"
}

type Video struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}

// ContentSection groups videos of a course. Sections are immutable once created.
type ContentSection struct {
	ID        string                     `json:"id" gorm:"primaryKey;size:64"`
	CourseID  string                     `json:"course_id" gorm:"not null;size:64;index"`
	Name      string                     `json:"name" gorm:"not null;size:200"`
	Position  int                        `json:"position" gorm:"not null;default:0"`
	Videos    datatypes.JSONSlice[Video] `json:"videos"`
	CreatedAt time.Time                  `json:"created_at"`
}

func (ContentSection) TableName() string {
	return "content_sections"
}

func (s *ContentSection) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type Review struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	CourseID  string    `json:"course_id" gorm:"not null;size:64;uniqueIndex:idx_reviews_course_user"`
	UserID    string    `json:"user_id" gorm:"not null;size:64;uniqueIndex:idx_reviews_course_user"`
	Name      string    `json:"name" gorm:"size:100"`
	Rating    int       `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "course_reviews"
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
