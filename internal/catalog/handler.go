package catalog

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/umistore/storefront/internal/auth"
	"github.com/umistore/storefront/internal/domain"
)

type Handler struct {
	repo   *Repository
	gate   auth.Gate
	logger *slog.Logger
}

func NewHandler(repo *Repository, gate auth.Gate, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		gate:   gate,
		logger: logger,
	}
}

func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	search := r.URL.Query().Get("q")

	products, err := h.repo.ListActive(r.Context(), category, search)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if products == nil {
		products = []domain.Product{}
	}
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.repo.GetSnapshot(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("failed to list categories", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if categories == nil {
		categories = []domain.Category{}
	}
	h.writeJSON(w, http.StatusOK, categories)
}

type productRequest struct {
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	ImageURL      string              `json:"image_url"`
	Category      string              `json:"category"`
	Price         decimal.Decimal     `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"original_price"`
	StockQuantity int                 `json:"stock_quantity"`
	Unit          string              `json:"unit"`
	Active        bool                `json:"active"`
}

func (req productRequest) toProduct() (*domain.Product, string) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, "name is required"
	}
	if req.Price.IsNegative() {
		return nil, "price must not be negative"
	}
	if req.StockQuantity < 0 {
		return nil, "stock quantity must not be negative"
	}

	product := &domain.Product{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		Category:      req.Category,
		Price:         domain.NewMoney(req.Price, domain.DefaultCurrency),
		StockQuantity: req.StockQuantity,
		Unit:          req.Unit,
		Active:        req.Active,
	}
	if req.OriginalPrice.Valid {
		original := domain.NewMoney(req.OriginalPrice.Decimal, domain.DefaultCurrency)
		product.OriginalPrice = &original
	}
	return product, ""
}

func (h *Handler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireStaff(w, r) {
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, problem := req.toProduct()
	if problem != "" {
		h.writeError(w, http.StatusUnprocessableEntity, problem)
		return
	}

	if err := h.repo.Create(r.Context(), product); err != nil {
		h.logger.Error("failed to create product", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "name", product.Name)
	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireStaff(w, r) {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, problem := req.toProduct()
	if problem != "" {
		h.writeError(w, http.StatusUnprocessableEntity, problem)
		return
	}
	product.ID = id

	updated, err := h.repo.Update(r.Context(), product)
	if err != nil {
		h.logger.Error("failed to update product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !updated {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product updated", "product_id", id)
	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireStaff(w, r) {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete product", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product deleted", "product_id", id)
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func (h *Handler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if !h.requireStaff(w, r) {
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Slug == "" || strings.TrimSpace(req.Name) == "" {
		h.writeError(w, http.StatusUnprocessableEntity, "slug and name are required")
		return
	}

	category := domain.Category{Slug: req.Slug, Name: strings.TrimSpace(req.Name)}
	if err := h.repo.CreateCategory(r.Context(), category); err != nil {
		h.logger.Error("failed to create category", "error", err, "slug", req.Slug)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if !h.requireStaff(w, r) {
		return
	}

	slug := r.PathValue("slug")
	if slug == "" {
		h.writeError(w, http.StatusBadRequest, "missing category slug")
		return
	}

	deleted, err := h.repo.DeleteCategory(r.Context(), slug)
	if err != nil {
		h.logger.Error("failed to delete category", "error", err, "slug", slug)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, "category not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireStaff(w http.ResponseWriter, r *http.Request) bool {
	id := h.gate.CurrentIdentity(r.Context())
	if !id.Authenticated() {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return false
	}
	if !id.Staff() {
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
