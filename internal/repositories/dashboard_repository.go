package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
)

// DashboardRepository interface for sales analytics operations
type DashboardRepository interface {
	// Totals
	CountCourses(ctx context.Context) (int64, error)
	CountEnrollments(ctx context.Context) (int64, error)
	CountOrders(ctx context.Context, isPaid *bool) (int64, error)

	// SalesBetween aggregates paid orders whose paid_at falls in [from, to).
	SalesBetween(ctx context.Context, from, to time.Time) (SalesData, error)

	// TopSellingCourses ranks courses by paid units sold.
	TopSellingCourses(ctx context.Context, limit int) ([]CourseSalesData, error)
}

type SalesData struct {
	Orders  int64         `json:"orders"`
	Buyers  int64         `json:"buyers"`
	Revenue pricing.Money `json:"revenue"`
}

type CourseSalesData struct {
	CourseID string        `json:"course_id"`
	Title    string        `json:"title"`
	Sold     int64         `json:"sold"`
	Revenue  pricing.Money `json:"revenue"`
}
