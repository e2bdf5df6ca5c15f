package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/invadmin/internal/model"
)

func validateItem(name string, quantity int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalid)
	}
	return nil
}

// CreateItem creates a new item.
func CreateItem(ctx context.Context, db *sql.DB, name string, quantity int) (*model.Item, error) {
	if err := validateItem(name, quantity); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (name, quantity) VALUES (?, ?)`,
		strings.TrimSpace(name), quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, or nil if it does not exist or was deleted.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item := &model.Item{ID: new(int64)}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, quantity FROM items WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(item.ID, &item.Name, &item.Quantity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all non-deleted items in creation order.
func ListItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, quantity FROM items WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item := model.Item{ID: new(int64)}
		if err := rows.Scan(item.ID, &item.Name, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem replaces an item's name and quantity.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, name string, quantity int) (*model.Item, error) {
	if err := validateItem(name, quantity); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, quantity = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		strings.TrimSpace(name), quantity, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}

	return GetItem(ctx, db, id)
}

// DeleteItem soft-deletes an item so existing orders keep their references.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return nil
}
