package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
	"github.com/SAP-F-2025/marketplace-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateCourseRequest = validator.CourseCreateRequest
type UpdateCourseRequest = validator.CourseUpdateRequest
type CreateSectionRequest = validator.SectionCreateRequest
type VideoRequest = validator.VideoRequest
type CreateReviewRequest = validator.ReviewCreateRequest
type RegisterRequest = validator.RegisterRequest
type LoginRequest = validator.LoginRequest
type UpdateProfileRequest = validator.UpdateProfileRequest
type AdminUpdateUserRequest = validator.AdminUpdateUserRequest

type ListParams struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

// Normalize clamps page and size to the supported range.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = 20
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}

func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Size
}

type CourseListParams struct {
	ListParams
	Keyword  string `form:"keyword"`
	Category string `form:"category"`
}

type OrderListParams struct {
	ListParams
	IsPaid *bool `form:"is_paid"`
}

type UserListParams struct {
	ListParams
	Search string           `form:"q"`
	Role   *models.UserRole `form:"role"`
}

type OrderItemRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	// Price is accepted for compatibility and ignored.
	Price *pricing.Money `json:"price,omitempty"`
}

type CreateOrderRequest struct {
	OrderItems []OrderItemRequest `json:"order_items" validate:"dive"`
}

type PayerInfo struct {
	EmailAddress string `json:"email_address"`
}

// PaymentConfirmationRequest is the client's report of a completed payment.
type PaymentConfirmationRequest struct {
	ID         string    `json:"id" validate:"required,max=128"`
	Status     string    `json:"status"`
	UpdateTime string    `json:"update_time"`
	Payer      PayerInfo `json:"payer"`
	Value      string    `json:"value" validate:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type EnrollmentResult struct {
	CourseID        string `json:"course_id"`
	AlreadyEnrolled bool   `json:"already_enrolled"`
}

type EnrollmentOutcome struct {
	CourseID        string `json:"course_id"`
	AlreadyEnrolled bool   `json:"already_enrolled"`
	Error           string `json:"error,omitempty"`
}

type CheckoutResult struct {
	Order       *models.Order       `json:"order"`
	Enrollments []EnrollmentOutcome `json:"enrollments"`
}

type CourseResponse struct {
	*models.Course
	IsEnrolled bool `json:"is_enrolled"`
	CanEdit    bool `json:"can_edit"`
}

// ===== SERVICE INTERFACES =====

type UserService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	GetProfile(ctx context.Context, p *authz.Principal) (*models.User, error)
	UpdateProfile(ctx context.Context, p *authz.Principal, req *UpdateProfileRequest) (*models.User, error)

	// Administration
	List(ctx context.Context, p *authz.Principal, params UserListParams) (*models.UserList, error)
	Get(ctx context.Context, p *authz.Principal, id string) (*models.User, error)
	Update(ctx context.Context, p *authz.Principal, id string, req *AdminUpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, p *authz.Principal, id string) error
}

type CourseService interface {
	Create(ctx context.Context, p *authz.Principal, req *CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, p *authz.Principal, id string, req *UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, p *authz.Principal, id string) error
	// Get works without a principal; p may be nil.
	Get(ctx context.Context, p *authz.Principal, id string) (*CourseResponse, error)
	List(ctx context.Context, params CourseListParams) (*models.CourseList, error)
	Top(ctx context.Context, limit int) ([]*models.Course, error)
	ListMine(ctx context.Context, p *authz.Principal) ([]*models.CourseSummary, error)

	AddSection(ctx context.Context, p *authz.Principal, courseID string, req *CreateSectionRequest) (*models.ContentSection, error)
	ListSections(ctx context.Context, p *authz.Principal, courseID string) ([]*models.ContentSection, error)
}

type ReviewService interface {
	Create(ctx context.Context, p *authz.Principal, courseID string, req *CreateReviewRequest) (*models.Review, error)
	ListByCourse(ctx context.Context, courseID string) ([]*models.Review, error)
}

type OrderService interface {
	CreateOrder(ctx context.Context, p *authz.Principal, req *CreateOrderRequest) (*models.Order, error)
	ConfirmPayment(ctx context.Context, p *authz.Principal, orderID string, req *PaymentConfirmationRequest) (*models.Order, error)
	GetOrder(ctx context.Context, p *authz.Principal, id string) (*models.Order, error)
	ListMine(ctx context.Context, p *authz.Principal) ([]*models.Order, error)
	ListAll(ctx context.Context, p *authz.Principal, params OrderListParams) (*models.OrderList, error)
}

type EnrollmentService interface {
	Enroll(ctx context.Context, p *authz.Principal, courseID string) (*EnrollmentResult, error)
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
	ListEnrolledCourses(ctx context.Context, p *authz.Principal) ([]*models.Course, error)
}

type CheckoutService interface {
	PayAndEnroll(ctx context.Context, p *authz.Principal, orderID string, req *PaymentConfirmationRequest) (*CheckoutResult, error)
}

type ReportService interface {
	// ExportOrders renders matching orders as an .xlsx workbook.
	ExportOrders(ctx context.Context, p *authz.Principal, isPaid *bool, from, to *time.Time) ([]byte, error)
}

type DashboardService interface {
	GetDashboardStats(ctx context.Context, p *authz.Principal, period int) (*DashboardStatsResponse, error)
	GetSalesTrends(ctx context.Context, p *authz.Principal, period string) ([]SalesTrendResponse, error)
	GetTopSellingCourses(ctx context.Context, p *authz.Principal, limit int) ([]repositories.CourseSalesData, error)
}

type ServiceManager interface {
	Initialize(ctx context.Context) error

	User() UserService
	Course() CourseService
	Review() ReviewService
	Order() OrderService
	Enrollment() EnrollmentService
	Checkout() CheckoutService
	Report() ReportService
	Dashboard() DashboardService

	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
