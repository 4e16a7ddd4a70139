package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/events"
	"github.com/SAP-F-2025/marketplace-service/internal/metrics"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/payments"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories/memory"
	"github.com/SAP-F-2025/marketplace-service/internal/validator"
)

type testEnv struct {
	store     *memory.Store
	sandbox   *payments.SandboxVerifier
	publisher *events.MockEventPublisher
	manager   ServiceManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		store:     memory.NewStore(),
		sandbox:   payments.NewSandboxVerifier(),
		publisher: events.NewMockEventPublisher(logger),
	}
	env.manager = NewServiceManager(Dependencies{
		Repo:      env.store,
		Logger:    logger,
		Validator: validator.New(),
		Verifier:  env.sandbox,
		Issuer:    stubIssuer{},
		Publisher: env.publisher,
		Metrics:   metrics.New(),
	})
	require.NoError(t, env.manager.Initialize(context.Background()))
	return env
}

func (e *testEnv) user(t *testing.T, name string, role models.UserRole, admin bool) *authz.Principal {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Role: role, IsAdmin: admin}
	require.NoError(t, e.store.User().Create(context.Background(), u))
	return authz.Resolve(u)
}

func (e *testEnv) course(t *testing.T, instructor *authz.Principal, title, price string) *models.Course {
	t.Helper()
	c := &models.Course{
		Title:        title,
		InstructorID: instructor.UserID,
		Price:        pricing.MustMoney(price),
		Category:     "dev",
	}
	require.NoError(t, e.store.Course().Create(context.Background(), c))
	return c
}

// pay registers a capture for the order total and returns the confirmation body.
func (e *testEnv) pay(order *models.Order) *PaymentConfirmationRequest {
	txn := e.sandbox.Register(order.TotalPrice, "payer@example.com")
	return &PaymentConfirmationRequest{ID: txn, Status: payments.StatusCompleted, Value: order.TotalPrice.String()}
}

func orderFor(courseIDs ...string) *CreateOrderRequest {
	req := &CreateOrderRequest{}
	for _, id := range courseIDs {
		req.OrderItems = append(req.OrderItems, OrderItemRequest{CourseID: id})
	}
	return req
}

type stubIssuer struct{}

func (stubIssuer) Issue(u *models.User) (string, error) { return "token-" + u.ID, nil }
