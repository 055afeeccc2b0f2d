package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/seckill/internal/core/domain"
)

// ErrStockDepleted means the durable stock guard rejected the decrement. With
// a correctly seeded gate this should never fire; it exists as defense in
// depth behind the counter reservation.
var ErrStockDepleted = errors.New("durable stock depleted")

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates the items and orders tables when they do not exist.
// Item rows themselves are maintained by an external administrative process.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id BIGINT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			stock BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			item_id BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_orders_item FOREIGN KEY (item_id) REFERENCES items(id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}

func (m *MySQLAdapter) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, name, stock FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Stock); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	return items, nil
}

// RecordSale runs the durable half of a purchase as one transaction: the
// guarded stock decrement and the ledger insert commit or roll back together.
// The transaction never spans a cache call.
func (m *MySQLAdapter) RecordSale(ctx context.Context, itemID int64) (domain.Order, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE items SET stock = stock - 1 WHERE id = ? AND stock > 0`, itemID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("decrement stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.Order{}, ErrStockDepleted
	}

	createdAt := time.Now()
	result, err = tx.ExecContext(ctx,
		`INSERT INTO orders (item_id, created_at) VALUES (?, ?)`, itemID, createdAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		return domain.Order{}, fmt.Errorf("order id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit sale: %w", err)
	}

	return domain.Order{ID: orderID, ItemID: itemID, CreatedAt: createdAt}, nil
}
