package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/payments"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
)

func TestCheckoutFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u1 := &models.User{ID: "U1", Name: "U1", Email: "u1@example.com", Role: models.RoleStudent}
	require.NoError(t, env.store.User().Create(ctx, u1))
	student := authz.Resolve(u1)
	inst := env.user(t, "inst", models.RoleInstructor, false)

	for id, price := range map[string]string{"C1": "20.00", "C2": "10.00"} {
		require.NoError(t, env.store.Course().Create(ctx, &models.Course{
			ID: id, Title: id, InstructorID: inst.UserID, Price: pricing.MustMoney(price),
		}))
	}

	order, err := env.manager.Order().CreateOrder(ctx, student, orderFor("C1", "C2"))
	require.NoError(t, err)
	assert.Equal(t, "30.00", order.ItemsPrice.String())
	assert.Equal(t, "4.50", order.TaxPrice.String())
	assert.Equal(t, "34.50", order.TotalPrice.String())
	assert.False(t, order.IsPaid)

	env.sandbox.Put(payments.Verification{
		TransactionID: "T9",
		Verified:      true,
		Status:        payments.StatusCompleted,
		Value:         pricing.MustMoney("34.50"),
		Currency:      "USD",
	})
	paid, err := env.manager.Order().ConfirmPayment(ctx, student, order.ID,
		&PaymentConfirmationRequest{ID: "T9", Value: "34.50"})
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)

	for _, id := range []string{"C1", "C2"} {
		_, err := env.manager.Enrollment().Enroll(ctx, student, id)
		require.NoError(t, err)
		enrolled, err := env.store.Enrollment().IsEnrolled(ctx, id, "U1")
		require.NoError(t, err)
		assert.True(t, enrolled, id)
	}
}
