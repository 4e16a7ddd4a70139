package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/events"
	"github.com/SAP-F-2025/marketplace-service/internal/metrics"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
	"github.com/SAP-F-2025/marketplace-service/internal/validator"
)

type reviewService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.Publisher
	metrics   *metrics.Metrics
}

func NewReviewService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.Publisher, m *metrics.Metrics) ReviewService {
	return &reviewService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		metrics:   m,
	}
}

// Create stores the caller's review and refreshes the course aggregate in
// the same transaction.
func (s *reviewService) Create(ctx context.Context, p *authz.Principal, courseID string, req *CreateReviewRequest) (*models.Review, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if !p.Can(authz.CapReview) {
		return nil, NewPermissionError(p.UserID, courseID, "course", "review", "reviewing not allowed for role")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.Course().GetByID(ctx, courseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, &CourseNotFoundError{CourseID: courseID}
		}
		return nil, fmt.Errorf("failed to load course: %w", err)
	}

	enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, courseID, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	exists, err := s.repo.Review().Exists(ctx, courseID, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}
	if exists {
		return nil, ErrAlreadyReviewed
	}

	review := &models.Review{
		CourseID: courseID,
		UserID:   p.UserID,
		Name:     p.Name,
		Rating:   req.Rating,
		Comment:  strings.TrimSpace(req.Comment),
	}

	var avg float64
	var count int
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Review().Create(ctx, review); err != nil {
			return err
		}
		var err error
		avg, count, err = tx.Review().Aggregate(ctx, courseID)
		if err != nil {
			return fmt.Errorf("failed to aggregate reviews: %w", err)
		}
		return tx.Course().UpdateRating(ctx, courseID, roundRating(avg), count)
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrAlreadyReviewed
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.logger.Info("Review created",
		"course_id", courseID,
		"user_id", p.UserID,
		"rating", req.Rating,
		"course_rating", roundRating(avg),
		"num_reviews", count,
	)
	s.metrics.ReviewCreated()
	if err := events.Emit(ctx, s.publisher, events.ReviewCreated, events.ReviewCreatedData{
		CourseID: courseID,
		UserID:   p.UserID,
		Rating:   req.Rating,
	}); err != nil {
		s.logger.Error("Failed to publish event", "type", events.ReviewCreated, "error", err)
	}

	return review, nil
}

func (s *reviewService) ListByCourse(ctx context.Context, courseID string) ([]*models.Review, error) {
	reviews, err := s.repo.Review().ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func roundRating(v float64) float64 {
	return math.Round(v*100) / 100
}
