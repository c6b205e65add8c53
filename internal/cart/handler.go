package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/umistore/storefront/internal/auth"
	"github.com/umistore/storefront/internal/domain"
)

// ProductReader is the slice of the catalog the cart needs: a current
// snapshot per product.
type ProductReader interface {
	GetSnapshot(ctx context.Context, productID string) (*domain.Product, error)
}

type Handler struct {
	store   *Store
	catalog ProductReader
	logger  *slog.Logger
}

func NewHandler(store *Store, catalog ProductReader, logger *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		catalog: catalog,
		logger:  logger,
	}
}

type cartResponse struct {
	Items  []domain.CartItem `json:"items"`
	Totals domain.CartTotals `json:"totals"`
}

func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	items, totals := h.store.View(session)
	h.writeJSON(w, http.StatusOK, cartResponse{Items: items, Totals: totals})
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	product, err := h.catalog.GetSnapshot(r.Context(), req.ProductID)
	if err != nil {
		h.writeDomainError(w, err, "failed to fetch product", "product_id", req.ProductID)
		return
	}

	quantity, err := h.store.AddItem(session, product, req.Quantity)
	if err != nil {
		h.writeDomainError(w, err, "failed to add item", "product_id", req.ProductID)
		return
	}

	h.logger.Info("item added to cart", "session", session, "product_id", req.ProductID, "quantity", quantity)
	h.writeJSON(w, http.StatusOK, map[string]int{"quantity": quantity})
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalog.GetSnapshot(r.Context(), productID)
	if err != nil {
		h.writeDomainError(w, err, "failed to fetch product", "product_id", productID)
		return
	}

	removed, err := h.store.UpdateQuantity(session, product, req.Quantity)
	if err != nil {
		h.writeDomainError(w, err, "failed to update quantity", "product_id", productID)
		return
	}

	h.logger.Info("cart quantity updated", "session", session, "product_id", productID, "quantity", req.Quantity, "removed", removed)
	h.writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	h.store.RemoveItem(session, productID)
	h.logger.Info("item removed from cart", "session", session, "product_id", productID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	session := auth.SessionFromContext(r.Context())
	if session == "" {
		h.writeError(w, http.StatusBadRequest, "missing session")
		return "", false
	}
	return session, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error, msg string, args ...any) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, ErrItemNotInCart):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrProductInactive),
		errors.Is(err, domain.ErrInsufficientStock):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error(msg, append([]any{"error", err}, args...)...)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
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
