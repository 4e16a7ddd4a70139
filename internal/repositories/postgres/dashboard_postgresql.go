package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
)

type DashboardPostgreSQL struct {
	db *gorm.DB
}

func NewDashboardPostgreSQL(db *gorm.DB) repositories.DashboardRepository {
	return &DashboardPostgreSQL{db: db}
}

// ===== TOTALS =====

func (r *DashboardPostgreSQL) CountCourses(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Course{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return count, nil
}

func (r *DashboardPostgreSQL) CountEnrollments(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Enrollment{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return count, nil
}

func (r *DashboardPostgreSQL) CountOrders(ctx context.Context, isPaid *bool) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if isPaid != nil {
		query = query.Where("is_paid = ?", *isPaid)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// ===== SALES =====

func (r *DashboardPostgreSQL) SalesBetween(ctx context.Context, from, to time.Time) (repositories.SalesData, error) {
	var row struct {
		Orders  int64
		Buyers  int64
		Revenue pricing.Money
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COUNT(*) AS orders, COUNT(DISTINCT user_id) AS buyers, COALESCE(SUM(total_price), 0) AS revenue").
		Where("is_paid = ? AND paid_at >= ? AND paid_at < ?", true, from, to).
		Scan(&row).Error
	if err != nil {
		return repositories.SalesData{}, fmt.Errorf("failed to aggregate sales: %w", err)
	}
	return repositories.SalesData{Orders: row.Orders, Buyers: row.Buyers, Revenue: row.Revenue.Round()}, nil
}

func (r *DashboardPostgreSQL) TopSellingCourses(ctx context.Context, limit int) ([]repositories.CourseSalesData, error) {
	var rows []repositories.CourseSalesData
	err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select("oi.course_id AS course_id, MAX(oi.name) AS title, COUNT(*) AS sold, COALESCE(SUM(oi.price), 0) AS revenue").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("o.is_paid = ?", true).
		Group("oi.course_id").
		Order("sold DESC, revenue DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank courses: %w", err)
	}
	return rows, nil
}
