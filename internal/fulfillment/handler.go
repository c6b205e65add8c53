package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/umistore/storefront/internal/auth"
	"github.com/umistore/storefront/internal/domain"
)

// OrderDirectory is the staff-facing read side of the order repository.
type OrderDirectory interface {
	List(ctx context.Context) ([]domain.Order, error)
	Stats(ctx context.Context) (domain.OrderStats, error)
}

type Handler struct {
	workflow  *Workflow
	directory OrderDirectory
	gate      auth.Gate
	logger    *slog.Logger
}

func NewHandler(workflow *Workflow, directory OrderDirectory, gate auth.Gate, logger *slog.Logger) *Handler {
	return &Handler{
		workflow:  workflow,
		directory: directory,
		gate:      gate,
		logger:    logger,
	}
}

func (h *Handler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	if !h.requireStaff(w, r) {
		return
	}

	orders, err := h.directory.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireStaff(w, r) {
		return
	}

	stats, err := h.directory.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to compute order stats", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

type statusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	h.handleStatusChange(w, r, h.workflow.Transition)
}

func (h *Handler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	h.handleStatusChange(w, r, h.workflow.Override)
}

func (h *Handler) handleStatusChange(w http.ResponseWriter, r *http.Request,
	change func(context.Context, string, domain.OrderStatus) (*domain.Order, error)) {

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := change(r.Context(), id, req.Status)
	if err != nil {
		h.writeStatusError(w, err, id)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) writeStatusError(w http.ResponseWriter, err error, orderID string) {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		h.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("status change failed", "error", err, "order_id", orderID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) requireStaff(w http.ResponseWriter, r *http.Request) bool {
	identity := h.gate.CurrentIdentity(r.Context())
	if !identity.Authenticated() {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return false
	}
	if !identity.Staff() {
		h.writeError(w, http.StatusForbidden, "staff privilege required")
		return false
	}
	return true
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
