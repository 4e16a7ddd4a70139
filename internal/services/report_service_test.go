package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/marketplace-service/internal/models"
)

func TestExportOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inst := env.user(t, "inst", models.RoleInstructor, false)
	buyer := env.user(t, "buyer", models.RoleStudent, false)
	admin := env.user(t, "admin", models.RoleStudent, true)
	c := env.course(t, inst, "Go", "20.00")

	paid, err := env.manager.Order().CreateOrder(ctx, buyer, orderFor(c.ID))
	require.NoError(t, err)
	_, err = env.manager.Order().ConfirmPayment(ctx, buyer, paid.ID, env.pay(paid))
	require.NoError(t, err)
	_, err = env.manager.Order().CreateOrder(ctx, buyer, orderFor(c.ID))
	require.NoError(t, err)

	_, err = env.manager.Report().ExportOrders(ctx, buyer, nil, nil, nil)
	assert.True(t, IsPermissionError(err))

	isPaid := true
	data, err := env.manager.Report().ExportOrders(ctx, admin, &isPaid, nil, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ordersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Order ID", rows[0][0])
	assert.Equal(t, paid.ID, rows[1][0])
	assert.Equal(t, "23.00", rows[1][5])
	assert.Equal(t, "TRUE", rows[1][6])
}

func TestExportOrders_RejectsInvertedRange(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(t, "admin", models.RoleStudent, true)
	from := time.Now()
	to := from.Add(-time.Hour)

	_, err := env.manager.Report().ExportOrders(context.Background(), admin, nil, &from, &to)
	assert.True(t, IsValidationError(err))
}
