package service

import (
	"context"
	"fmt"
	"time"

	"github.com/medflow/medstock/internal/inventory/repository"
	"github.com/medflow/medstock/pkg/config"
	"github.com/medflow/medstock/pkg/logger"
)

// DashboardStats is the summary shown on the dashboard
type DashboardStats struct {
	LowStockCount     int                        `json:"lowStockCount"`
	ExpiringSoonCount int                        `json:"expiringSoonCount"`
	CategoryCounts    []repository.CategoryCount `json:"categoryCounts"`
}

// ReportService projects the ledger into dashboard and report views
type ReportService struct {
	reports *repository.ReportRepository
	cfg     config.InventoryConfig
	now     func() time.Time
	logger  *logger.Logger
}

// NewReportService creates a new report service
func NewReportService(reports *repository.ReportRepository, cfg *config.InventoryConfig, log *logger.Logger) *ReportService {
	return &ReportService{
		reports: reports,
		cfg:     *cfg,
		now:     time.Now,
		logger:  log.WithComponent("reports"),
	}
}

// SetClock replaces the clock used to decide what "today" is
func (s *ReportService) SetClock(now func() time.Time) {
	s.now = now
}

// DashboardStats returns low-stock and expiring counts plus per-category totals
func (s *ReportService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	low, err := s.reports.CountLowStock(ctx, s.cfg.LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	expiring, err := s.reports.CountExpiringSoon(ctx, s.now().Format(dateLayout), s.cfg.ExpiryWindowDays)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	counts, err := s.reports.CategoryCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	return &DashboardStats{
		LowStockCount:     low,
		ExpiringSoonCount: expiring,
		CategoryCounts:    counts,
	}, nil
}

// CurrentStockReport returns every item of a category for export
func (s *ReportService) CurrentStockReport(ctx context.Context, category string) (repository.Category, []repository.StockRow, error) {
	c, err := parseCategory(category)
	if err != nil {
		return "", nil, err
	}

	rows, err := s.reports.StockReport(ctx, c)
	if err != nil {
		return "", nil, err
	}

	s.logger.Debug().Str("category", string(c)).Int("rows", len(rows)).Msg("stock report generated")
	return c, rows, nil
}

// TransactionReport returns a category's ledger, newest first
func (s *ReportService) TransactionReport(ctx context.Context, category string) (repository.Category, []repository.TransactionRow, error) {
	c, err := parseCategory(category)
	if err != nil {
		return "", nil, err
	}

	rows, err := s.reports.TransactionReport(ctx, c)
	if err != nil {
		return "", nil, err
	}

	s.logger.Debug().Str("category", string(c)).Int("rows", len(rows)).Msg("transaction report generated")
	return c, rows, nil
}
