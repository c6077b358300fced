package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/medstock/internal/inventory/repository"
	"github.com/medflow/medstock/internal/inventory/service"
	"github.com/medflow/medstock/pkg/errors"
	"github.com/medflow/medstock/pkg/httputil"
	"github.com/medflow/medstock/pkg/logger"
)

// ItemService is the subset of the ledger the item routes need
type ItemService interface {
	AddItem(ctx context.Context, in *service.ItemInput) (int64, error)
	Withdraw(ctx context.Context, id int64, amount int, notes string) (int, error)
	UpdateItem(ctx context.Context, id int64, in *service.ItemInput) error
	DeleteItem(ctx context.Context, id int64) error
	ListItems(ctx context.Context, category, filter string) ([]repository.Item, error)
}

// WithdrawRequest is the body of a withdrawal
type WithdrawRequest struct {
	Quantity int    `json:"quantityToWithdraw"`
	Notes    string `json:"notes"`
}

// ItemHandler handles item CRUD and withdrawal endpoints
type ItemHandler struct {
	service ItemService
	logger  *logger.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(svc ItemService, log *logger.Logger) *ItemHandler {
	return &ItemHandler{
		service: svc,
		logger:  log,
	}
}

// RegisterRoutes mounts the /api/drugs routes
func (h *ItemHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/drugs", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/withdraw/{id}", h.Withdraw)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List returns the items of ?category, narrowed by the optional ?filter
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.service.ListItems(r.Context(), q.Get("category"), q.Get("filter"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{"drugs": items})
}

// Create adds a new item
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.ItemInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.Error(w, err)
		return
	}

	id, err := h.service.AddItem(r.Context(), &in)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, map[string]int64{"id": id})
}

// Withdraw removes stock from an item
func (h *ItemHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req WithdrawRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	newQuantity, err := h.service.Withdraw(r.Context(), id, req.Quantity, req.Notes)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Withdrawal successful.",
		"newQuantity": newQuantity,
	})
}

// Update overwrites an item's fields
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var in service.ItemInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.UpdateItem(r.Context(), id, &in); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Update successful.")
}

// Delete removes an item and its history
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Deletion successful.")
}

func itemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequest("invalid item id")
	}
	return id, nil
}
