package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
)

const defaultStatsPeriodDays = 30

// ===== RESPONSE DTOs =====

type DashboardStatsResponse struct {
	Overview DashboardOverview      `json:"overview"`
	Sales    repositories.SalesData `json:"sales"`
	Trends   DashboardTrends        `json:"trends"`
}

type DashboardOverview struct {
	TotalCourses     int64 `json:"total_courses"`
	TotalOrders      int64 `json:"total_orders"`
	PaidOrders       int64 `json:"paid_orders"`
	TotalEnrollments int64 `json:"total_enrollments"`
}

// DashboardTrends are percentage changes against the preceding period of equal length.
type DashboardTrends struct {
	OrdersChange  float64 `json:"orders_change"`
	RevenueChange float64 `json:"revenue_change"`
	BuyersChange  float64 `json:"buyers_change"`
}

type SalesTrendResponse struct {
	Period  string        `json:"period"`
	Orders  int64         `json:"orders"`
	Buyers  int64         `json:"buyers"`
	Revenue pricing.Money `json:"revenue"`
	Start   time.Time     `json:"start"`
}

// ===== SERVICE IMPLEMENTATION =====

type dashboardService struct {
	repo   repositories.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewDashboardService(repo repositories.Repository, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *dashboardService) authorize(p *authz.Principal, action string) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if !p.Can(authz.CapViewAllOrders) {
		return NewPermissionError(p.UserID, "", "dashboard", action, "administrator only")
	}
	return nil
}

func (s *dashboardService) GetDashboardStats(ctx context.Context, p *authz.Principal, period int) (*DashboardStatsResponse, error) {
	if err := s.authorize(p, "view"); err != nil {
		return nil, err
	}
	if period <= 0 {
		period = defaultStatsPeriodDays
	}
	s.logger.Info("Getting dashboard stats", "period", period)

	d := s.repo.Dashboard()

	totalCourses, err := d.CountCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get total courses: %w", err)
	}
	totalOrders, err := d.CountOrders(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get total orders: %w", err)
	}
	paid := true
	paidOrders, err := d.CountOrders(ctx, &paid)
	if err != nil {
		return nil, fmt.Errorf("failed to get paid orders: %w", err)
	}
	totalEnrollments, err := d.CountEnrollments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get total enrollments: %w", err)
	}

	now := s.now()
	currentStart := now.AddDate(0, 0, -period)
	previousStart := now.AddDate(0, 0, -2*period)

	current, err := d.SalesBetween(ctx, currentStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get current sales: %w", err)
	}

	// A failed comparison window degrades to zero change.
	var trends DashboardTrends
	previous, err := d.SalesBetween(ctx, previousStart, currentStart)
	if err != nil {
		s.logger.Warn("Failed to get previous sales", "error", err)
	} else {
		trends = DashboardTrends{
			OrdersChange:  trendChange(float64(current.Orders), float64(previous.Orders)),
			RevenueChange: trendChange(current.Revenue.Float64(), previous.Revenue.Float64()),
			BuyersChange:  trendChange(float64(current.Buyers), float64(previous.Buyers)),
		}
	}

	return &DashboardStatsResponse{
		Overview: DashboardOverview{
			TotalCourses:     totalCourses,
			TotalOrders:      totalOrders,
			PaidOrders:       paidOrders,
			TotalEnrollments: totalEnrollments,
		},
		Sales:  current,
		Trends: trends,
	}, nil
}

func (s *dashboardService) GetSalesTrends(ctx context.Context, p *authz.Principal, period string) ([]SalesTrendResponse, error) {
	if err := s.authorize(p, "view"); err != nil {
		return nil, err
	}
	if period == "" {
		period = "month"
	}
	s.logger.Info("Getting sales trends", "period", period)

	buckets, err := trendBuckets(s.now(), period)
	if err != nil {
		return nil, err
	}

	response := make([]SalesTrendResponse, 0, len(buckets))
	for _, b := range buckets {
		sales, err := s.repo.Dashboard().SalesBetween(ctx, b.start, b.end)
		if err != nil {
			return nil, fmt.Errorf("failed to get sales for %s: %w", b.label, err)
		}
		response = append(response, SalesTrendResponse{
			Period:  b.label,
			Orders:  sales.Orders,
			Buyers:  sales.Buyers,
			Revenue: sales.Revenue,
			Start:   b.start,
		})
	}
	return response, nil
}

func (s *dashboardService) GetTopSellingCourses(ctx context.Context, p *authz.Principal, limit int) ([]repositories.CourseSalesData, error) {
	if err := s.authorize(p, "view"); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 20 {
		limit = 5
	}

	courses, err := s.repo.Dashboard().TopSellingCourses(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top selling courses: %w", err)
	}
	return courses, nil
}

// ===== HELPER FUNCTIONS =====

type trendBucket struct {
	label      string
	start, end time.Time
}

// trendBuckets splits the period ending at now into consecutive windows:
// seven days for "week", four weeks for "month", twelve calendar months for "year".
func trendBuckets(now time.Time, period string) ([]trendBucket, error) {
	var buckets []trendBucket
	switch period {
	case "week":
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		for i := 6; i >= 0; i-- {
			start := today.AddDate(0, 0, -i)
			buckets = append(buckets, trendBucket{label: start.Format("Mon"), start: start, end: start.AddDate(0, 0, 1)})
		}
	case "month":
		for i := 3; i >= 0; i-- {
			end := now.AddDate(0, 0, -i*7)
			buckets = append(buckets, trendBucket{label: fmt.Sprintf("W%d", 4-i), start: end.AddDate(0, 0, -7), end: end})
		}
	case "year":
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		for i := 11; i >= 0; i-- {
			start := month.AddDate(0, -i, 0)
			buckets = append(buckets, trendBucket{label: start.Format("Jan 2006"), start: start, end: start.AddDate(0, 1, 0)})
		}
	default:
		return nil, NewValidationError("period", "must be week, month or year", period)
	}
	return buckets, nil
}

func trendChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return roundFloat((current-previous)/previous*100, 1)
}

func roundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
