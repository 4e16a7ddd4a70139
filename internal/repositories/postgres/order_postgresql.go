package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
)

type OrderPostgreSQL struct {
	db *gorm.DB
}

func NewOrderPostgreSQL(db *gorm.DB) repositories.OrderRepository {
	return &OrderPostgreSQL{db: db}
}

// Create persists the order and its line items in one transaction.
func (r *OrderPostgreSQL) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", translateError(err))
	}
	return nil
}

func (r *OrderPostgreSQL) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", translateError(err))
	}
	return &order, nil
}

func (r *OrderPostgreSQL) ListByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	var orders []*models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *OrderPostgreSQL) List(ctx context.Context, filters repositories.OrderFilters) ([]*models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})

	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.IsPaid != nil {
		query = query.Where("is_paid = ?", *filters.IsPaid)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []*models.Order
	query = applyPaginationAndSort(query.Preload("Items"), orderSortColumns, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (r *OrderPostgreSQL) ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("payment_transaction_id = ?", transactionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check transaction id: %w", err)
	}
	return count > 0, nil
}

// MarkPaid is a conditional update on is_paid = false. The unique index on
// payment_transaction_id rejects a transaction id already used by another order.
func (r *OrderPostgreSQL) MarkPaid(ctx context.Context, id string, payment models.PaymentResult, paidAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND is_paid = ?", id, false).
		Updates(map[string]interface{}{
			"is_paid":                true,
			"paid_at":                paidAt,
			"payment_transaction_id": payment.TransactionID,
			"payment_status":         payment.Status,
			"payment_update_time":    payment.UpdateTime,
			"payment_email_address":  payment.EmailAddress,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark order paid: %w", translateError(result.Error))
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if count == 0 {
		return repositories.ErrNotFound
	}
	return repositories.ErrConflict
}

func (r *OrderPostgreSQL) HasPaidForCourse(ctx context.Context, userID, courseID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.is_paid = ? AND order_items.course_id = ?", userID, true, courseID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check paid order: %w", err)
	}
	return count > 0, nil
}
