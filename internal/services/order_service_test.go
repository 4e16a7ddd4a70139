package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/events"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/payments"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
)

func TestCreateOrder_PricesFromCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inst := env.user(t, "inst", models.RoleInstructor, false)
	buyer := env.user(t, "buyer", models.RoleStudent, false)
	c1 := env.course(t, inst, "Go", "20.00")
	c2 := env.course(t, inst, "SQL", "10.00")

	cheap := pricing.MustMoney("0.01")
	req := orderFor(c1.ID, c2.ID)
	req.OrderItems[0].Price = &cheap

	order, err := env.manager.Order().CreateOrder(ctx, buyer, req)
	require.NoError(t, err)

	assert.Equal(t, "30.00", order.ItemsPrice.String())
	assert.Equal(t, "4.50", order.TaxPrice.String())
	assert.Equal(t, "34.50", order.TotalPrice.String())
	assert.False(t, order.IsPaid)
	assert.Equal(t, buyer.UserID, order.UserID)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "20.00", order.Items[0].Price.String())
	assert.Equal(t, "Go", order.Items[0].Name)

	assert.Len(t, env.publisher.EventsOfType(events.OrderCreated), 1)
}

func TestCreateOrder_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inst := env.user(t, "inst", models.RoleInstructor, false)
	buyer := env.user(t, "buyer", models.RoleStudent, false)
	env.course(t, inst, "Go", "20.00")

	_, err := env.manager.Order().CreateOrder(ctx, buyer, &CreateOrderRequest{})
	assert.ErrorIs(t, err, ErrNoOrderItems)
	assert.True(t, IsValidationError(err))

	_, err = env.manager.Order().CreateOrder(ctx, buyer, orderFor("missing"))
	assert.ErrorIs(t, err, ErrCourseNotFound)
	assert.True(t, IsNotFoundError(err))

	_, err = env.manager.Order().CreateOrder(ctx, nil, orderFor("missing"))
	assert.ErrorIs(t, err, ErrUnauthenticated)

	orders, err := env.manager.Order().ListMine(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestConfirmPayment_MarksPaid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inst := env.user(t, "inst", models.RoleInstructor, false)
	buyer := env.user(t, "buyer", models.RoleStudent, false)
	c := env.course(t, inst, "Go", "20.00")

	order, err := env.manager.Order().CreateOrder(ctx, buyer, orderFor(c.ID))
	require.NoError(t, err)

	req := env.pay(order)
	paid, err := env.manager.Order().ConfirmPayment(ctx, buyer, order.ID, req)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	require.NotNil(t, paid.PaymentResult.TransactionID)
	assert.Equal(t, req.ID, *paid.PaymentResult.TransactionID)
	assert.Equal(t, "payer@example.com", paid.PaymentResult.EmailAddress)

	stored, err := env.manager.Order().GetOrder(ctx, buyer, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)

	assert.Len(t, env.publisher.EventsOfType(events.OrderPaid), 1)
}

func TestConfirmPayment_Rejections(t *testing.T) {
	ctx := context.Background()

	type fixture struct {
		env   *testEnv
		buyer *authz.Principal
		order *models.Order
	}
	setup := func(t *testing.T) fixture {
		env := newTestEnv(t)
		inst := env.user(t, "inst", models.RoleInstructor, false)
		buyer := env.user(t, "buyer", models.RoleStudent, false)
		c := env.course(t, inst, "Go", "20.00")
		order, err := env.manager.Order().CreateOrder(ctx, buyer, orderFor(c.ID))
		require.NoError(t, err)
		return fixture{env: env, buyer: buyer, order: order}
	}

	t.Run("unknown capture", func(t *testing.T) {
		f := setup(t)
		_, err := f.env.manager.Order().ConfirmPayment(ctx, f.buyer, f.order.ID,
			&PaymentConfirmationRequest{ID: "nope", Value: f.order.TotalPrice.String()})
		assert.ErrorIs(t, err, ErrPaymentNotVerified)
		assert.True(t, IsPaymentRequiredError(err))
	})

	t.Run("capture not completed", func(t *testing.T) {
		f := setup(t)
		f.env.sandbox.Put(payments.Verification{TransactionID: "PENDING-1", Status: "PENDING", Value: f.order.TotalPrice})
		_, err := f.env.manager.Order().ConfirmPayment(ctx, f.buyer, f.order.ID,
			&PaymentConfirmationRequest{ID: "PENDING-1", Value: f.order.TotalPrice.String()})
		assert.ErrorIs(t, err, ErrPaymentNotVerified)
	})

	t.Run("client amount mismatch", func(t *testing.T) {
		f := setup(t)
		req := f.env.pay(f.order)
		req.Value = "0.01"
		_, err := f.env.manager.Order().ConfirmPayment(ctx, f.buyer, f.order.ID, req)
		assert.ErrorIs(t, err, ErrAmountMismatch)
	})

	t.Run("provider amount mismatch", func(t *testing.T) {
		f := setup(t)
		txn := f.env.sandbox.Register(pricing.MustMoney("1.00"), "")
		_, err := f.env.manager.Order().ConfirmPayment(ctx, f.buyer, f.order.ID,
			&PaymentConfirmationRequest{ID: txn, Value: f.order.TotalPrice.String()})
		assert.ErrorIs(t, err, ErrAmountMismatch)
	})

	t.Run("provider currency mismatch", func(t *testing.T) {
		f := setup(t)
		f.env.sandbox.Put(payments.Verification{
			TransactionID: "JPY-1",
			Verified:      true,
			Status:        payments.StatusCompleted,
			Value:         f.order.TotalPrice,
			Currency:      "JPY",
		})
		_, err := f.env.manager.Order().ConfirmPayment(ctx, f.buyer, f.order.ID,
			&PaymentConfirmationRequest{ID: "JPY-1", Value: f.order.TotalPrice.String()})
		assert.ErrorIs(t, err, ErrAmountMismatch)

		stored, err := f.env.manager.Order().GetOrder(ctx, f.buyer, f.order.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsPaid)

		rejected := f.env.publisher.EventsOfType(events.PaymentRejected)
		require.Len(t, rejected, 1)
		var data events.PaymentRejectedData
		require.NoError(t, rejected[0].Decode(&data))
		assert.Equal(t, "currency_mismatch", data.Reason)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := setup(t)
		_, err := f.env.manager.Order().ConfirmPayment(ctx, f.buyer, "missing", f.env.pay(f.order))
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("another user's order", func(t *testing.T) {
		f := setup(t)
		other := f.env.user(t, "other", models.RoleStudent, false)
		_, err := f.env.manager.Order().ConfirmPayment(ctx, other, f.order.ID, f.env.pay(f.order))
		assert.True(t, IsPermissionError(err))
	})

	t.Run("already paid", func(t *testing.T) {
		f := setup(t)
		_, err := f.env.manager.Order().ConfirmPayment(ctx, f.buyer, f.order.ID, f.env.pay(f.order))
		require.NoError(t, err)
		_, err = f.env.manager.Order().ConfirmPayment(ctx, f.buyer, f.order.ID, f.env.pay(f.order))
		assert.ErrorIs(t, err, ErrOrderAlreadyPaid)
	})

	t.Run("every rejection is published", func(t *testing.T) {
		f := setup(t)
		_, _ = f.env.manager.Order().ConfirmPayment(ctx, f.buyer, f.order.ID,
			&PaymentConfirmationRequest{ID: "nope", Value: "1"})
		rejected := f.env.publisher.EventsOfType(events.PaymentRejected)
		require.Len(t, rejected, 1)

		var data events.PaymentRejectedData
		require.NoError(t, rejected[0].Decode(&data))
		assert.Equal(t, "not_verified", data.Reason)
	})
}

func TestConfirmPayment_TransactionSpentOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inst := env.user(t, "inst", models.RoleInstructor, false)
	buyer := env.user(t, "buyer", models.RoleStudent, false)
	c := env.course(t, inst, "Go", "20.00")

	first, err := env.manager.Order().CreateOrder(ctx, buyer, orderFor(c.ID))
	require.NoError(t, err)
	second, err := env.manager.Order().CreateOrder(ctx, buyer, orderFor(c.ID))
	require.NoError(t, err)

	req := env.pay(first)
	_, err = env.manager.Order().ConfirmPayment(ctx, buyer, first.ID, req)
	require.NoError(t, err)

	_, err = env.manager.Order().ConfirmPayment(ctx, buyer, second.ID, req)
	assert.ErrorIs(t, err, ErrDuplicateTransaction)
	assert.True(t, IsConflictError(err))

	again, err := env.manager.Order().GetOrder(ctx, buyer, second.ID)
	require.NoError(t, err)
	assert.False(t, again.IsPaid)
}

func TestConfirmPayment_ConcurrentSpendSucceedsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inst := env.user(t, "inst", models.RoleInstructor, false)
	buyer := env.user(t, "buyer", models.RoleStudent, false)
	c := env.course(t, inst, "Go", "20.00")

	const n = 8
	orders := make([]*models.Order, n)
	for i := range orders {
		o, err := env.manager.Order().CreateOrder(ctx, buyer, orderFor(c.ID))
		require.NoError(t, err)
		orders[i] = o
	}
	req := env.pay(orders[0])

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range orders {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.manager.Order().ConfirmPayment(ctx, buyer, orders[i].ID, req)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrDuplicateTransaction), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestOrderVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inst := env.user(t, "inst", models.RoleInstructor, false)
	buyer := env.user(t, "buyer", models.RoleStudent, false)
	other := env.user(t, "other", models.RoleStudent, false)
	admin := env.user(t, "admin", models.RoleInstructor, true)
	c := env.course(t, inst, "Go", "20.00")

	order, err := env.manager.Order().CreateOrder(ctx, buyer, orderFor(c.ID))
	require.NoError(t, err)

	_, err = env.manager.Order().GetOrder(ctx, other, order.ID)
	assert.True(t, IsPermissionError(err))

	got, err := env.manager.Order().GetOrder(ctx, admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = env.manager.Order().ListAll(ctx, buyer, OrderListParams{})
	assert.True(t, IsPermissionError(err))

	unpaid := false
	list, err := env.manager.Order().ListAll(ctx, admin, OrderListParams{IsPaid: &unpaid})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)
}
