package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/smirnovnv/fur-store/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами.
// Хранилище append-only: методов обновления и удаления нет,
// заказ после создания неизменяем.
type OrderStorage interface {
	// CreateOrderTx вставляет заказ вместе с позициями в рамках транзакции
	// и возвращает присвоенный идентификатор.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	// GetOrderByID возвращает заказ с позициями из долговременного хранилища.
	GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	var orderID int64
	query := `INSERT INTO orders (user_id, status, total_price, created_at)
	          VALUES ($1, $2, $3, NOW()) RETURNING id`
	if err := tx.QueryRowContext(ctx, query, order.UserID, order.Status, order.TotalPrice).Scan(&orderID); err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
	              VALUES ($1, $2, $3, $4)`
	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery, orderID, item.ProductID, item.Quantity, item.PriceAtPurchase); err != nil {
			return 0, fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return orderID, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	order := &models.Order{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, created_at, status, total_price FROM orders WHERE id = $1", orderID)
	if err := row.Scan(&order.ID, &order.UserID, &order.CreatedAt, &order.Status, &order.TotalPrice); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	query := `SELECT id, order_id, product_id, quantity, price_at_purchase
	          FROM order_items WHERE order_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return order, nil
}
