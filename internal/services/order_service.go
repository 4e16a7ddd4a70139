package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/events"
	"github.com/SAP-F-2025/marketplace-service/internal/metrics"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/payments"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
	"github.com/SAP-F-2025/marketplace-service/internal/validator"
)

// Payment rejection reasons, used as the metric label and in audit events.
const (
	reasonNotVerified    = "not_verified"
	reasonDuplicateTxn   = "duplicate_transaction"
	reasonOrderNotFound  = "order_not_found"
	reasonForbidden      = "forbidden"
	reasonAlreadyPaid    = "already_paid"
	reasonAmountMismatch = "amount_mismatch"
	reasonCurrency       = "currency_mismatch"
	reasonStoreFailure   = "store_failure"
)

type orderService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	verifier  payments.Verifier
	publisher events.Publisher
	metrics   *metrics.Metrics
	currency  string
	now       func() time.Time
}

func NewOrderService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, verifier payments.Verifier, publisher events.Publisher, m *metrics.Metrics, currency string) OrderService {
	return &orderService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		verifier:  verifier,
		publisher: publisher,
		metrics:   m,
		currency:  currency,
		now:       time.Now,
	}
}

// CreateOrder prices the requested courses from the catalog and stores an
// unpaid order for the caller. Client-supplied prices never reach the order.
func (s *orderService) CreateOrder(ctx context.Context, p *authz.Principal, req *CreateOrderRequest) (*models.Order, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if !p.Can(authz.CapPurchase) {
		return nil, NewPermissionError(p.UserID, "", "order", "create", "purchasing not allowed for role")
	}
	if req == nil || len(req.OrderItems) == 0 {
		return nil, ErrNoOrderItems
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(req.OrderItems))
	prices := make([]pricing.Money, 0, len(req.OrderItems))
	for _, line := range req.OrderItems {
		course, err := s.repo.Course().GetByID(ctx, line.CourseID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, &CourseNotFoundError{CourseID: line.CourseID}
			}
			return nil, fmt.Errorf("failed to load course %s: %w", line.CourseID, err)
		}

		if line.Price != nil && !line.Price.Equal(course.Price) {
			s.logger.Debug("Ignoring client price",
				"course_id", course.ID,
				"client_price", line.Price.String(),
				"catalog_price", course.Price.String(),
			)
		}

		items = append(items, models.OrderItem{
			CourseID: course.ID,
			Name:     course.Title,
			Image:    course.ImageURL,
			Price:    course.Price,
		})
		prices = append(prices, course.Price)
	}

	totals := pricing.Calculate(prices)
	if err := totals.Valid(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPricing, err)
	}

	order := &models.Order{
		UserID:     p.UserID,
		Items:      items,
		ItemsPrice: totals.ItemsPrice,
		TaxPrice:   totals.TaxPrice,
		TotalPrice: totals.TotalPrice,
	}
	if err := s.repo.Order().Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("Order created",
		"order_id", order.ID,
		"user_id", p.UserID,
		"items", len(items),
		"total", order.TotalPrice.String(),
	)
	s.metrics.OrderCreated()
	s.emit(ctx, events.OrderCreated, events.OrderCreatedData{
		OrderID:    order.ID,
		UserID:     order.UserID,
		CourseIDs:  order.CourseIDs(),
		TotalPrice: order.TotalPrice.String(),
	})

	return order, nil
}

// ConfirmPayment marks an order paid once the provider vouches for the
// transaction and the amounts agree. Preconditions are checked in a fixed
// order so the first failing one determines the error.
func (s *orderService) ConfirmPayment(ctx context.Context, p *authz.Principal, orderID string, req *PaymentConfirmationRequest) (*models.Order, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if req == nil {
		return nil, NewValidationError("id", "is required", nil)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	verification, err := s.verifier.Verify(ctx, req.ID)
	if err != nil {
		s.reject(ctx, p, orderID, req.ID, reasonNotVerified, err)
		return nil, fmt.Errorf("%w: %v", ErrPaymentNotVerified, err)
	}
	if !verification.Verified {
		s.reject(ctx, p, orderID, req.ID, reasonNotVerified, fmt.Errorf("provider status %q", verification.Status))
		return nil, ErrPaymentNotVerified
	}

	used, err := s.repo.Order().ExistsByTransactionID(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check transaction id: %w", err)
	}
	if used {
		s.reject(ctx, p, orderID, req.ID, reasonDuplicateTxn, ErrDuplicateTransaction)
		return nil, ErrDuplicateTransaction
	}

	order, err := s.repo.Order().GetByID(ctx, orderID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.reject(ctx, p, orderID, req.ID, reasonOrderNotFound, ErrOrderNotFound)
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if !p.Owns(order.UserID) && !p.Can(authz.CapPayAnyOrder) {
		s.reject(ctx, p, orderID, req.ID, reasonForbidden, ErrPermissionDenied)
		return nil, NewPermissionError(p.UserID, orderID, "order", "pay", "order belongs to another user")
	}
	if order.IsPaid {
		s.reject(ctx, p, orderID, req.ID, reasonAlreadyPaid, ErrOrderAlreadyPaid)
		return nil, ErrOrderAlreadyPaid
	}

	clientValue, parseErr := pricing.ParseMoney(req.Value)
	if parseErr != nil || !clientValue.Equal(order.TotalPrice) || !verification.Value.Equal(order.TotalPrice) {
		s.reject(ctx, p, orderID, req.ID, reasonAmountMismatch, fmt.Errorf(
			"order total %s, client value %q, provider value %s",
			order.TotalPrice.String(), req.Value, verification.Value.String(),
		))
		return nil, ErrAmountMismatch
	}
	if !strings.EqualFold(verification.Currency, s.currency) {
		s.reject(ctx, p, orderID, req.ID, reasonCurrency, fmt.Errorf(
			"store currency %s, provider currency %q", s.currency, verification.Currency,
		))
		return nil, ErrAmountMismatch
	}

	txnID := req.ID
	email := req.Payer.EmailAddress
	if email == "" {
		email = verification.PayerEmail
	}
	result := models.PaymentResult{
		TransactionID: &txnID,
		Status:        verification.Status,
		UpdateTime:    req.UpdateTime,
		EmailAddress:  email,
	}
	paidAt := s.now().UTC()

	if err := s.repo.Order().MarkPaid(ctx, order.ID, result, paidAt); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicate):
			s.reject(ctx, p, orderID, req.ID, reasonDuplicateTxn, err)
			return nil, ErrDuplicateTransaction
		case errors.Is(err, repositories.ErrConflict):
			s.reject(ctx, p, orderID, req.ID, reasonAlreadyPaid, err)
			return nil, ErrOrderAlreadyPaid
		case errors.Is(err, repositories.ErrNotFound):
			s.reject(ctx, p, orderID, req.ID, reasonOrderNotFound, err)
			return nil, ErrOrderNotFound
		default:
			s.reject(ctx, p, orderID, req.ID, reasonStoreFailure, err)
			return nil, fmt.Errorf("failed to mark order paid: %w", err)
		}
	}

	order.IsPaid = true
	order.PaidAt = &paidAt
	order.PaymentResult = result

	s.logger.Info("Order paid", "order_id", order.ID, "user_id", order.UserID, "transaction_id", txnID)
	s.metrics.OrderPaid()
	s.emit(ctx, events.OrderPaid, events.OrderPaidData{
		OrderID:       order.ID,
		UserID:        order.UserID,
		TransactionID: txnID,
		Amount:        order.TotalPrice.String(),
		PaidAt:        paidAt,
	})

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, p *authz.Principal, id string) (*models.Order, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	order, err := s.repo.Order().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if !p.Owns(order.UserID) && !p.Can(authz.CapViewAllOrders) {
		return nil, NewPermissionError(p.UserID, id, "order", "read", "order belongs to another user")
	}
	return order, nil
}

func (s *orderService) ListMine(ctx context.Context, p *authz.Principal) ([]*models.Order, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	orders, err := s.repo.Order().ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) ListAll(ctx context.Context, p *authz.Principal, params OrderListParams) (*models.OrderList, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if !p.Can(authz.CapViewAllOrders) {
		return nil, NewPermissionError(p.UserID, "", "order", "list_all", "administrator only")
	}

	page := params.ListParams.Normalize()
	orders, total, err := s.repo.Order().List(ctx, repositories.OrderFilters{
		IsPaid:    params.IsPaid,
		Limit:     page.Size,
		Offset:    page.Offset(),
		SortBy:    "created_at",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return &models.OrderList{Orders: orders, Page: models.NewPage(page.Page, page.Size, total)}, nil
}

// reject logs, counts and publishes a refused payment confirmation.
func (s *orderService) reject(ctx context.Context, p *authz.Principal, orderID, txnID, reason string, cause error) {
	s.logger.Warn("Payment rejected",
		"order_id", orderID,
		"user_id", p.UserID,
		"transaction_id", txnID,
		"reason", reason,
		"error", cause,
	)
	s.metrics.PaymentRejected(reason)
	s.emit(ctx, events.PaymentRejected, events.PaymentRejectedData{
		OrderID:       orderID,
		UserID:        p.UserID,
		TransactionID: txnID,
		Reason:        reason,
	})
}

func (s *orderService) emit(ctx context.Context, t events.EventType, data any) {
	if err := events.Emit(ctx, s.publisher, t, data); err != nil {
		s.logger.Error("Failed to publish event", "type", t, "error", err)
	}
}
