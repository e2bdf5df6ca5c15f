package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/invadmin/internal/model"
)

// validateOrder checks the request and that every referenced item exists.
func validateOrder(ctx context.Context, tx *sql.Tx, req model.OrderRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity of item %d must be positive", ErrInvalid, line.ItemID)
		}
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM items WHERE id = ? AND deleted_at IS NULL)`, line.ItemID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking item %d: %w", line.ItemID, err)
		}
		if !exists {
			return fmt.Errorf("%w: item %d does not exist", ErrInvalid, line.ItemID)
		}
	}
	return nil
}

func insertLines(ctx context.Context, tx *sql.Tx, orderID int64, lines []model.OrderItem) error {
	for i, line := range lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, position, item_id, quantity) VALUES (?, ?, ?, ?)`,
			orderID, i, line.ItemID, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("inserting order line: %w", err)
		}
	}
	return nil
}

// CreateOrder stores a new SAVED order.
func CreateOrder(ctx context.Context, db *sql.DB, req model.OrderRequest) (*model.Order, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := validateOrder(ctx, tx, req); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO orders (delivery_address) VALUES (?)`,
		strings.TrimSpace(req.DeliveryAddress),
	)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting order id: %w", err)
	}

	if err := insertLines(ctx, tx, id, req.Items); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order: %w", err)
	}

	return GetOrder(ctx, db, id)
}

// GetOrder returns an order with its lines, or nil if it does not exist.
func GetOrder(ctx context.Context, db *sql.DB, id int64) (*model.Order, error) {
	order := &model.Order{ID: new(int64)}
	err := db.QueryRowContext(ctx,
		`SELECT id, delivery_address, status FROM orders WHERE id = ?`, id,
	).Scan(order.ID, &order.DeliveryAddress, &order.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}

	lines, err := orderLines(ctx, db, id)
	if err != nil {
		return nil, err
	}
	order.Items = lines
	return order, nil
}

func orderLines(ctx context.Context, db *sql.DB, orderID int64) ([]model.OrderItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT item_id, quantity FROM order_items WHERE order_id = ? ORDER BY position`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing order lines: %w", err)
	}
	defer rows.Close()

	lines := []model.OrderItem{}
	for rows.Next() {
		var line model.OrderItem
		if err := rows.Scan(&line.ItemID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scanning order line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// ListOrders returns all orders in creation order.
func ListOrders(ctx context.Context, db *sql.DB) ([]model.Order, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, delivery_address, status FROM orders ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders := []model.Order{}
	for rows.Next() {
		order := model.Order{ID: new(int64)}
		if err := rows.Scan(order.ID, &order.DeliveryAddress, &order.Status); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	// Lines are loaded after the order cursor is closed so a single
	// connection pool never holds two result sets.
	for i := range orders {
		lines, err := orderLines(ctx, db, orders[i].OrderID())
		if err != nil {
			return nil, err
		}
		orders[i].Items = lines
	}
	return orders, nil
}

// lockSaved reads the order's status inside tx and requires it to be SAVED.
func lockSaved(ctx context.Context, tx *sql.Tx, id int64) error {
	var status model.OrderStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("getting order status: %w", err)
	}
	if !status.Editable() {
		return fmt.Errorf("order %d is %s: %w", id, status, ErrNotEditable)
	}
	return nil
}

// UpdateOrder replaces the lines and address of a SAVED order.
func UpdateOrder(ctx context.Context, db *sql.DB, id int64, req model.OrderRequest) (*model.Order, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockSaved(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := validateOrder(ctx, tx, req); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET delivery_address = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		strings.TrimSpace(req.DeliveryAddress), id,
	); err != nil {
		return nil, fmt.Errorf("updating order: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clearing order lines: %w", err)
	}
	if err := insertLines(ctx, tx, id, req.Items); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order: %w", err)
	}

	return GetOrder(ctx, db, id)
}

// PurchaseOrder purchases a SAVED order in a single transaction. When stock
// covers every line it is deducted and the order becomes PURCHASED;
// otherwise stock is left untouched and the order becomes HELD. The
// virtual flag is recorded as given.
func PurchaseOrder(ctx context.Context, db *sql.DB, id int64, virtual bool) (*model.Order, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockSaved(ctx, tx, id); err != nil {
		return nil, err
	}

	// Required quantity per item; one item may appear on several lines.
	rows, err := tx.QueryContext(ctx,
		`SELECT oi.item_id, SUM(oi.quantity), COALESCE(i.quantity, 0)
		 FROM order_items oi LEFT JOIN items i ON i.id = oi.item_id AND i.deleted_at IS NULL
		 WHERE oi.order_id = ? GROUP BY oi.item_id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("checking stock: %w", err)
	}
	type need struct {
		itemID    int64
		required  int
		available int
	}
	var needs []need
	for rows.Next() {
		var n need
		if err := rows.Scan(&n.itemID, &n.required, &n.available); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning stock: %w", err)
		}
		needs = append(needs, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("checking stock: %w", err)
	}

	status := model.OrderStatusPurchased
	for _, n := range needs {
		if n.available < n.required {
			status = model.OrderStatusHeld
			break
		}
	}

	if status == model.OrderStatusPurchased {
		for _, n := range needs {
			if _, err := tx.ExecContext(ctx,
				`UPDATE items SET quantity = quantity - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
				n.required, n.itemID,
			); err != nil {
				return nil, fmt.Errorf("deducting stock of item %d: %w", n.itemID, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, virtual = ?, purchased_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		status, virtual, id,
	); err != nil {
		return nil, fmt.Errorf("updating order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing purchase: %w", err)
	}

	return GetOrder(ctx, db, id)
}
