package orders

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/umistore/storefront/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists the order header and all its items as one transaction
// and decrements stock conditionally per item. If any decrement loses
// the race (stock_quantity dropped below the requested quantity since
// re-validation) the whole transaction rolls back with a
// StockChangedError carrying the remaining quantity; nothing is
// persisted. It fills in ID, OrderNumber and timestamps.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	order.ID = uuid.New().String()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt
	order.OrderNumber = newOrderNumber(order.CreatedAt)

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		result, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - $2, updated_at = NOW()
			WHERE id = $1 AND stock_quantity >= $2
		`, item.ProductID, item.Quantity)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}

		if rowsAffected == 0 {
			available := 0
			err := tx.QueryRowContext(ctx, `
				SELECT stock_quantity FROM products WHERE id = $1
			`, item.ProductID).Scan(&available)
			if err != nil && err != sql.ErrNoRows {
				return err
			}
			return domain.StockChangedError{ProductID: item.ProductID, Available: available}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number, customer_id, status, payment_method,
			shipping_address, notes, total_amount, currency, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`, order.ID, order.OrderNumber, order.CustomerID, order.Status, order.PaymentMethod,
		order.ShippingAddress, order.Notes, order.TotalAmount.Amount,
		order.TotalAmount.Currency.String(), order.CreatedAt)
	if err != nil {
		return err
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, name, unit, quantity, price_amount, currency
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.New().String(), order.ID, item.ProductID, item.Name, item.Unit,
			item.Quantity, item.UnitPrice.Amount, item.UnitPrice.Currency.String())
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, order_number, customer_id, status, payment_method,
		       shipping_address, notes, total_amount, currency, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	items, err := r.loadItems(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return order, nil
}

// ListByCustomer returns the customer's orders with items, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, order_number, customer_id, status, payment_method,
		       shipping_address, notes, total_amount, currency, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`, customerID)
}

// List returns every order with items, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, order_number, customer_id, status, payment_method,
		       shipping_address, notes, total_amount, currency, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
	`)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var orders []domain.Order
	var orderIDs []string
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orders = append(orders, *order)
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	itemsByOrder, err := r.loadItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if items := itemsByOrder[orders[i].ID]; items != nil {
			orders[i].Items = items
		}
	}

	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, unit, quantity, price_amount, currency
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	itemsByOrder := make(map[string][]domain.OrderItem)
	for rows.Next() {
		var (
			item         domain.OrderItem
			priceAmount  decimal.Decimal
			currencyCode string
		)
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Name, &item.Unit,
			&item.Quantity, &priceAmount, &currencyCode); err != nil {
			return nil, err
		}

		item.UnitPrice, err = domain.ParseMoney(priceAmount, currencyCode)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", item.OrderID, err)
		}
		item.LineTotal = item.UnitPrice.MulInt(item.Quantity)

		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return itemsByOrder, nil
}

// UpdateStatusFrom moves an order's status only if it still has the
// expected previous status, so two staff actions racing on the same
// order cannot skip a step. It returns false when the order was missing
// or the status had already moved on.
func (r *OrderRepository) UpdateStatusFrom(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// SetStatus sets the status unconditionally; the administrative
// override path is its only caller.
func (r *OrderRepository) SetStatus(ctx context.Context, id string, to domain.OrderStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, to, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// Stats summarizes orders for the admin dashboard.
func (r *OrderRepository) Stats(ctx context.Context) (domain.OrderStats, error) {
	var (
		stats   domain.OrderStats
		revenue decimal.NullDecimal
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = $1),
			SUM(total_amount) FILTER (WHERE status = $2)
		FROM orders
	`, domain.OrderStatusPending, domain.OrderStatusDelivered).Scan(&stats.PendingCount, &revenue)
	if err != nil {
		return domain.OrderStats{}, err
	}

	stats.DeliveredRevenue = domain.Money{Amount: decimal.Zero, Currency: domain.DefaultCurrency}
	if revenue.Valid {
		stats.DeliveredRevenue.Amount = revenue.Decimal
	}

	return stats, nil
}

func scanOrder(row interface{ Scan(dest ...any) error }) (*domain.Order, error) {
	var (
		order        domain.Order
		notes        sql.NullString
		totalAmount  decimal.Decimal
		currencyCode string
	)

	err := row.Scan(&order.ID, &order.OrderNumber, &order.CustomerID, &order.Status,
		&order.PaymentMethod, &order.ShippingAddress, &notes,
		&totalAmount, &currencyCode, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	order.Notes = notes.String
	order.TotalAmount, err = domain.ParseMoney(totalAmount, currencyCode)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", order.ID, err)
	}

	return &order, nil
}

// newOrderNumber builds the externally visible order reference, e.g.
// UMI-20260829-4F2A91C3. Uniqueness is enforced by the orders table.
func newOrderNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:8]
	return fmt.Sprintf("UMI-%s-%s", t.UTC().Format("20060102"), suffix)
}
