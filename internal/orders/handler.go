package orders

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/umistore/storefront/internal/auth"
)

// Handler serves the customer-facing order history. Staff operations
// live in the fulfillment package.
type Handler struct {
	repo   *OrderRepository
	gate   auth.Gate
	logger *slog.Logger
}

func NewHandler(repo *OrderRepository, gate auth.Gate, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		gate:   gate,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity := h.gate.CurrentIdentity(r.Context())
	if identity.CustomerID == "" {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orders, err := h.repo.ListByCustomer(r.Context(), identity.CustomerID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "customer_id", identity.CustomerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity := h.gate.CurrentIdentity(r.Context())
	if !identity.Authenticated() {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Customers see only their own orders; staff see any.
	if order == nil || (!identity.Staff() && order.CustomerID != identity.CustomerID) {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
