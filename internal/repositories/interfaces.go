package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/marketplace-service/internal/models"
)

// ===== FILTERS =====

type CourseFilters struct {
	Keyword      string
	Category     string
	InstructorID string
	IDs          []string

	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

type OrderFilters struct {
	UserID   string
	IsPaid   *bool
	DateFrom *time.Time
	DateTo   *time.Time

	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

type UserFilters struct {
	Role    *models.UserRole
	IsAdmin *bool
	Search  string

	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// ===== CATALOG =====

type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id string) (*models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters CourseFilters) ([]*models.Course, int64, error)
	Top(ctx context.Context, limit int) ([]*models.Course, error)

	// UpdateRating stores the aggregate rating and review count.
	UpdateRating(ctx context.Context, id string, rating float64, numReviews int) error
}

type SectionRepository interface {
	Create(ctx context.Context, section *models.ContentSection) error
	ListByCourse(ctx context.Context, courseID string) ([]*models.ContentSection, error)
}

type ReviewRepository interface {
	// Create returns ErrDuplicate when the user already reviewed the course.
	Create(ctx context.Context, review *models.Review) error
	Exists(ctx context.Context, courseID, userID string) (bool, error)
	ListByCourse(ctx context.Context, courseID string) ([]*models.Review, error)
	Aggregate(ctx context.Context, courseID string) (avg float64, count int, err error)
}

type EnrollmentRepository interface {
	// Enroll inserts (courseID, userID) into the enrolled set. It reports
	// false without error when the pair is already present.
	Enroll(ctx context.Context, courseID, userID string) (bool, error)
	IsEnrolled(ctx context.Context, courseID, userID string) (bool, error)
	ListCourseIDs(ctx context.Context, userID string) ([]string, error)
	CountByCourse(ctx context.Context, courseID string) (int64, error)
}

// ===== PURCHASING =====

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Order, error)
	List(ctx context.Context, filters OrderFilters) ([]*models.Order, int64, error)

	ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error)

	// MarkPaid flips an unpaid order to paid. It returns ErrDuplicate when the
	// transaction id is already recorded and ErrConflict when the order is
	// no longer unpaid.
	MarkPaid(ctx context.Context, id string, result models.PaymentResult, paidAt time.Time) error

	// HasPaidForCourse reports whether userID owns a paid order containing courseID.
	HasPaidForCourse(ctx context.Context, userID, courseID string) (bool, error)
}
