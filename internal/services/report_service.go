package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/marketplace-service/internal/authz"
	"github.com/SAP-F-2025/marketplace-service/internal/models"
	"github.com/SAP-F-2025/marketplace-service/internal/repositories"
)

const (
	ordersSheet     = "Orders"
	reportBatchSize = 100
)

var orderReportHeader = []interface{}{
	"Order ID", "User ID", "Courses", "Items", "Tax", "Total",
	"Paid", "Paid At", "Transaction ID", "Created At",
}

type reportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewReportService(repo repositories.Repository, logger *slog.Logger) ReportService {
	return &reportService{repo: repo, logger: logger}
}

func (s *reportService) ExportOrders(ctx context.Context, p *authz.Principal, isPaid *bool, from, to *time.Time) ([]byte, error) {
	if p == nil {
		return nil, ErrUnauthenticated
	}
	if !p.Can(authz.CapViewAllOrders) {
		return nil, NewPermissionError(p.UserID, "", "order", "export", "administrator only")
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, NewValidationError("to", "must not be before from", to)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := s.writeHeader(f); err != nil {
		return nil, err
	}

	row := 2
	for offset := 0; ; offset += reportBatchSize {
		orders, _, err := s.repo.Order().List(ctx, repositories.OrderFilters{
			IsPaid:    isPaid,
			DateFrom:  from,
			DateTo:    to,
			Limit:     reportBatchSize,
			Offset:    offset,
			SortBy:    "created_at",
			SortOrder: "asc",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list orders: %w", err)
		}
		for _, o := range orders {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			values := orderRow(o)
			if err := f.SetSheetRow(ordersSheet, cell, &values); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
		if len(orders) < reportBatchSize {
			break
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Orders exported", "user_id", p.UserID, "rows", row-2)
	return buf.Bytes(), nil
}

func (s *reportService) writeHeader(f *excelize.File) error {
	if err := f.SetSheetRow(ordersSheet, "A1", &orderReportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(orderReportHeader), 1)
	if err := f.SetCellStyle(ordersSheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(ordersSheet, "A", "C", 38); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	return f.SetPanes(ordersSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func orderRow(o *models.Order) []interface{} {
	paidAt, txn := "", ""
	if o.PaidAt != nil {
		paidAt = o.PaidAt.UTC().Format(time.RFC3339)
	}
	if o.PaymentResult.TransactionID != nil {
		txn = *o.PaymentResult.TransactionID
	}
	return []interface{}{
		o.ID,
		o.UserID,
		strings.Join(o.CourseIDs(), ", "),
		o.ItemsPrice.String(),
		o.TaxPrice.String(),
		o.TotalPrice.String(),
		o.IsPaid,
		paidAt,
		txn,
		o.CreatedAt.UTC().Format(time.RFC3339),
	}
}
