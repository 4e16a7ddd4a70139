package services

import (
	"context"
	"log/slog"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
)

// ownerEnroller enrolls a user chosen by the service rather than the caller.
type ownerEnroller interface {
	enrollUser(ctx context.Context, userID, courseID string, skipPayment bool) (*EnrollmentResult, error)
}

type checkoutService struct {
	orders      OrderService
	enrollments ownerEnroller
	logger      *slog.Logger
}

func NewCheckoutService(orders OrderService, enrollments ownerEnroller, logger *slog.Logger) CheckoutService {
	return &checkoutService{orders: orders, enrollments: enrollments, logger: logger}
}

// PayAndEnroll confirms the payment and then enrolls the order owner in
// every course of the order, also when an administrator paid it. A failed enrollment is reported per course; the
// payment stays recorded.
func (s *checkoutService) PayAndEnroll(ctx context.Context, p *authz.Principal, orderID string, req *PaymentConfirmationRequest) (*CheckoutResult, error) {
	order, err := s.orders.ConfirmPayment(ctx, p, orderID, req)
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{Order: order}
	for _, courseID := range order.CourseIDs() {
		outcome := EnrollmentOutcome{CourseID: courseID}
		enrollment, err := s.enrollments.enrollUser(ctx, order.UserID, courseID, false)
		if err != nil {
			s.logger.Error("Enrollment after payment failed",
				"order_id", order.ID,
				"course_id", courseID,
				"user_id", order.UserID,
				"error", err,
			)
			outcome.Error = err.Error()
		} else {
			outcome.AlreadyEnrolled = enrollment.AlreadyEnrolled
		}
		result.Enrollments = append(result.Enrollments, outcome)
	}
	return result, nil
}
