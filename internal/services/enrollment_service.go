package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/events"
	"github.com/SAP-F-2025/marketplace-service/internal/metrics"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
)

const enrolledCoursesBatch = 100

type enrollmentService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	publisher events.Publisher
	metrics   *metrics.Metrics
}

func NewEnrollmentService(repo repositories.Repository, logger *slog.Logger, publisher events.Publisher, m *metrics.Metrics) EnrollmentService {
	return newEnrollmentService(repo, logger, publisher, m)
}

func newEnrollmentService(repo repositories.Repository, logger *slog.Logger, publisher events.Publisher, m *metrics.Metrics) *enrollmentService {
	return &enrollmentService{
		repo:      repo,
		logger:    logger,
		publisher: publisher,
		metrics:   m,
	}
}

// Enroll adds the caller to the course's enrolled set. Enrolling twice is
// not an error; the result reports already_enrolled instead.
func (s *enrollmentService) Enroll(ctx context.Context, p *authz.Principal, courseID string) (*EnrollmentResult, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if !p.Can(authz.CapEnroll) {
		return nil, NewPermissionError(p.UserID, courseID, "course", "enroll", "enrollment not allowed for role")
	}
	return s.enrollUser(ctx, p.UserID, courseID, p.IsAdmin)
}

// enrollUser enrolls userID without looking at who asked. Checkout uses it
// to enroll the order owner when someone else paid.
func (s *enrollmentService) enrollUser(ctx context.Context, userID, courseID string, skipPayment bool) (*EnrollmentResult, error) {
	course, err := s.repo.Course().GetByID(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, &CourseNotFoundError{CourseID: courseID}
		}
		return nil, fmt.Errorf("failed to load course: %w", err)
	}

	enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		s.metrics.Enrolled("already_enrolled")
		return &EnrollmentResult{CourseID: courseID, AlreadyEnrolled: true}, nil
	}

	if !skipPayment {
		if err := s.checkPaid(ctx, userID, course); err != nil {
			s.metrics.Enrolled("payment_required")
			return nil, err
		}
	}

	inserted, err := s.repo.Enrollment().Enroll(ctx, courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}
	if !inserted {
		s.metrics.Enrolled("already_enrolled")
		return &EnrollmentResult{CourseID: courseID, AlreadyEnrolled: true}, nil
	}

	s.logger.Info("User enrolled", "course_id", courseID, "user_id", userID)
	s.metrics.Enrolled("enrolled")
	if err := events.Emit(ctx, s.publisher, events.CourseEnrolled, events.CourseEnrolledData{
		CourseID: courseID,
		UserID:   userID,
	}); err != nil {
		s.logger.Error("Failed to publish event", "type", events.CourseEnrolled, "error", err)
	}

	return &EnrollmentResult{CourseID: courseID}, nil
}

// checkPaid requires a paid order for priced courses. Free courses and the
// course's own instructor skip the check.
func (s *enrollmentService) checkPaid(ctx context.Context, userID string, course *models.Course) error {
	if course.IsFree() || course.InstructorID == userID {
		return nil
	}
	paid, err := s.repo.Order().HasPaidForCourse(ctx, userID, course.ID)
	if err != nil {
		return fmt.Errorf("failed to check course payment: %w", err)
	}
	if !paid {
		return ErrEnrollmentRequiresPayment
	}
	return nil
}

func (s *enrollmentService) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, courseID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return enrolled, nil
}

func (s *enrollmentService) ListEnrolledCourses(ctx context.Context, p *authz.Principal) ([]*models.Course, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	ids, err := s.repo.Enrollment().ListCourseIDs(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Course{}, nil
	}

	// Stores cap page sizes, so load the ids in batches below that cap.
	courses := make([]*models.Course, 0, len(ids))
	for batch := range slices.Chunk(ids, enrolledCoursesBatch) {
		page, _, err := s.repo.Course().List(ctx, repositories.CourseFilters{IDs: batch, Limit: len(batch)})
		if err != nil {
			return nil, fmt.Errorf("failed to load enrolled courses: %w", err)
		}
		courses = append(courses, page...)
	}
	return courses, nil
}
