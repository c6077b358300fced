package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/medstock/internal/inventory/export"
	"github.com/medflow/medstock/internal/inventory/repository"
	"github.com/medflow/medstock/internal/inventory/service"
	"github.com/medflow/medstock/pkg/httputil"
	"github.com/medflow/medstock/pkg/logger"
)

// ReportService is the subset of the projector the report routes need
type ReportService interface {
	DashboardStats(ctx context.Context) (*service.DashboardStats, error)
	CurrentStockReport(ctx context.Context, category string) (repository.Category, []repository.StockRow, error)
	TransactionReport(ctx context.Context, category string) (repository.Category, []repository.TransactionRow, error)
}

// ReportHandler serves the dashboard summary and XLSX downloads
type ReportHandler struct {
	service ReportService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  log,
	}
}

// RegisterRoutes mounts the dashboard and report routes
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/dashboard-stats", h.DashboardStats)
	r.Get("/api/report", h.StockReport)
	r.Get("/api/transaction-report", h.TransactionReport)
}

// DashboardStats returns the dashboard counters
func (h *ReportHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}

// StockReport downloads the current stock of ?category as XLSX
func (h *ReportHandler) StockReport(w http.ResponseWriter, r *http.Request) {
	category, rows, err := h.service.CurrentStockReport(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	data, err := export.StockWorkbook(rows)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Attachment(w, export.StockFilename(category), export.ContentType, data)
}

// TransactionReport downloads the ledger of ?category as XLSX, newest first
func (h *ReportHandler) TransactionReport(w http.ResponseWriter, r *http.Request) {
	category, rows, err := h.service.TransactionReport(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	data, err := export.TransactionWorkbook(rows)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Attachment(w, export.TransactionFilename(category), export.ContentType, data)
}
