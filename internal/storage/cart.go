package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/smirnovnv/fur-store/internal/domain/models"
)

var ErrCartNotFound = errors.New("cart not found")

// CartStorage описывает методы для работы с корзиной и её позициями.
// Все мутирующие методы работают в рамках транзакции: вызывающий сервис
// сначала берет блокировку строки корзины через GetOrCreateCartTx.
type CartStorage interface {
	// GetOrCreateCartTx возвращает id корзины пользователя, создавая её при первом обращении.
	// Строка корзины при этом блокируется до конца транзакции — это сериализует
	// все операции над одной корзиной, не задевая корзины других пользователей.
	GetOrCreateCartTx(ctx context.Context, tx *sql.Tx, userID int64) (int64, error)
	// GetCartWithItems возвращает корзину с позициями и вложенными данными товаров.
	GetCartWithItems(ctx context.Context, cartID int64) (*models.Cart, error)
	// ListItemsTx возвращает позиции корзины (без данных товара) в порядке добавления.
	ListItemsTx(ctx context.Context, tx *sql.Tx, cartID int64) ([]*models.CartItem, error)
	// UpsertItemTx добавляет позицию или увеличивает количество существующей.
	UpsertItemTx(ctx context.Context, tx *sql.Tx, cartID, productID int64, quantity int) error
	// UpdateItemQuantityTx заменяет количество у существующей позиции, no-op если позиции нет.
	UpdateItemQuantityTx(ctx context.Context, tx *sql.Tx, cartID, productID int64, quantity int) error
	// DeleteItemTx удаляет позицию, идемпотентно.
	DeleteItemTx(ctx context.Context, tx *sql.Tx, cartID, productID int64) error
	// ClearTx удаляет все позиции корзины.
	ClearTx(ctx context.Context, tx *sql.Tx, cartID int64) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт новый репозиторий корзин.
func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetOrCreateCartTx(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	var cartID int64
	// Фиктивный DO UPDATE нужен, чтобы RETURNING отработал и для уже существующей
	// корзины, а сама строка осталась заблокированной до конца транзакции.
	query := `INSERT INTO carts (user_id) VALUES ($1)
	          ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
	          RETURNING id`
	if err := tx.QueryRowContext(ctx, query, userID).Scan(&cartID); err != nil {
		return 0, fmt.Errorf("failed to get or create cart: %w", err)
	}
	return cartID, nil
}

func (r *cartRepository) GetCartWithItems(ctx context.Context, cartID int64) (*models.Cart, error) {
	cart := &models.Cart{}
	row := r.db.QueryRowContext(ctx, "SELECT id, user_id FROM carts WHERE id = $1", cartID)
	if err := row.Scan(&cart.ID, &cart.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}

	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
		       p.id, p.name, COALESCE(p.description, ''), p.price, COALESCE(p.image_url, ''), p.specs, p.category_id
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`
	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := &models.CartItem{Product: &models.Product{}}
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
			&item.Product.ID, &item.Product.Name, &item.Product.Description,
			&item.Product.Price, &item.Product.ImageURL, &item.Product.Specs, &item.Product.CategoryID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *cartRepository) ListItemsTx(ctx context.Context, tx *sql.Tx, cartID int64) ([]*models.CartItem, error) {
	query := `SELECT id, cart_id, product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY id`
	rows, err := tx.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []*models.CartItem
	for rows.Next() {
		item := &models.CartItem{}
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpsertItemTx выражает слияние позиций одним условным запросом (insert-or-increment):
// уникальный индекс (cart_id, product_id) гарантирует одну строку на товар даже при гонках.
func (r *cartRepository) UpsertItemTx(ctx context.Context, tx *sql.Tx, cartID, productID int64, quantity int) error {
	query := `INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
	          ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`
	if _, err := tx.ExecContext(ctx, query, cartID, productID, quantity); err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) UpdateItemQuantityTx(ctx context.Context, tx *sql.Tx, cartID, productID int64, quantity int) error {
	query := "UPDATE cart_items SET quantity = $3 WHERE cart_id = $1 AND product_id = $2"
	// Отсутствие позиции — не ошибка: запрос просто ничего не меняет.
	if _, err := tx.ExecContext(ctx, query, cartID, productID, quantity); err != nil {
		return fmt.Errorf("failed to update cart item quantity: %w", err)
	}
	return nil
}

func (r *cartRepository) DeleteItemTx(ctx context.Context, tx *sql.Tx, cartID, productID int64) error {
	query := "DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2"
	if _, err := tx.ExecContext(ctx, query, cartID, productID); err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) ClearTx(ctx context.Context, tx *sql.Tx, cartID int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
