package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/smirnovnv/fur-store/internal/domain/models"
)

var ErrProductNotFound = errors.New("product not found")

// ProductStorage — читающий интерфейс каталога (Catalog Reader).
// Ядро корзины и оформления заказа никогда не пишет в каталог и не кеширует цены:
// каждый вызов возвращает актуальную цену из таблицы products.
type ProductStorage interface {
	// GetProductByID возвращает товар по идентификатору.
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	// GetProductByIDTx — то же самое в рамках транзакции; используется при оформлении
	// заказа, чтобы снимок цены был согласован с остальной единицей работы.
	GetProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт новый репозиторий каталога.
func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

const productQuery = `SELECT id, name, COALESCE(description, ''), price, COALESCE(image_url, ''), specs, category_id
	FROM products WHERE id = $1`

func scanProduct(row *sql.Row) (*models.Product, error) {
	product := &models.Product{}
	if err := row.Scan(
		&product.ID, &product.Name, &product.Description,
		&product.Price, &product.ImageURL, &product.Specs, &product.CategoryID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx, productQuery, id))
}

func (r *productRepository) GetProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	return scanProduct(tx.QueryRowContext(ctx, productQuery, id))
}
