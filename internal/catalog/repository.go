package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/umistore/storefront/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const productColumns = `
	id, name, description, image_url, category,
	price_amount, original_price_amount, currency,
	stock_quantity, unit, active, created_at, updated_at`

// GetSnapshot returns the current state of one product, or nil when the
// catalog does not know it.
func (r *Repository) GetSnapshot(ctx context.Context, productID string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+productColumns+`
		FROM products
		WHERE id = $1
	`, productID)

	product, err := scanProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return product, nil
}

// ListActive returns purchasable-listing products, optionally filtered
// by category slug and a case-insensitive name search.
func (r *Repository) ListActive(ctx context.Context, category, search string) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT`+productColumns+`
		FROM products
		WHERE active
		  AND ($1 = '' OR category = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY name
	`, category, strings.TrimSpace(search))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *Repository) Create(ctx context.Context, product *domain.Product) error {
	product.ID = uuid.New().String()
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	var originalPrice decimal.NullDecimal
	if product.OriginalPrice != nil {
		originalPrice = decimal.NewNullDecimal(product.OriginalPrice.Amount)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, description, image_url, category,
			price_amount, original_price_amount, currency,
			stock_quantity, unit, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	`, product.ID, product.Name, product.Description, product.ImageURL, product.Category,
		product.Price.Amount, originalPrice, product.Price.Currency.String(),
		product.StockQuantity, product.Unit, product.Active, now)
	return err
}

// Update rewrites the mutable fields of a product. It returns false when
// the product does not exist.
func (r *Repository) Update(ctx context.Context, product *domain.Product) (bool, error) {
	var originalPrice decimal.NullDecimal
	if product.OriginalPrice != nil {
		originalPrice = decimal.NewNullDecimal(product.OriginalPrice.Amount)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, image_url = $4, category = $5,
		    price_amount = $6, original_price_amount = $7,
		    stock_quantity = $8, unit = $9, active = $10, updated_at = NOW()
		WHERE id = $1
	`, product.ID, product.Name, product.Description, product.ImageURL, product.Category,
		product.Price.Amount, originalPrice,
		product.StockQuantity, product.Unit, product.Active)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// Delete removes a product, or deactivates it when order history still
// references it so past orders keep resolving their product rows.
func (r *Repository) Delete(ctx context.Context, productID string) (bool, error) {
	var referenced bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM order_items WHERE product_id = $1)
	`, productID).Scan(&referenced)
	if err != nil {
		return false, err
	}

	var result sql.Result
	if referenced {
		result, err = r.db.ExecContext(ctx, `
			UPDATE products SET active = FALSE, updated_at = NOW() WHERE id = $1
		`, productID)
	} else {
		result, err = r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	}
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT slug, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.Slug, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

func (r *Repository) CreateCategory(ctx context.Context, category domain.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (slug, name) VALUES ($1, $2)
	`, category.Slug, category.Name)
	return err
}

func (r *Repository) DeleteCategory(ctx context.Context, slug string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE slug = $1`, slug)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		product       domain.Product
		priceAmount   decimal.Decimal
		originalPrice decimal.NullDecimal
		currencyCode  string
	)

	err := row.Scan(
		&product.ID, &product.Name, &product.Description, &product.ImageURL, &product.Category,
		&priceAmount, &originalPrice, &currencyCode,
		&product.StockQuantity, &product.Unit, &product.Active,
		&product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	product.Price, err = domain.ParseMoney(priceAmount, currencyCode)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", product.ID, err)
	}

	if originalPrice.Valid {
		original, err := domain.ParseMoney(originalPrice.Decimal, currencyCode)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", product.ID, err)
		}
		product.OriginalPrice = &original
	}

	return &product, nil
}
