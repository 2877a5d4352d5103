package service_test

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/smirnovnv/fur-store/internal/domain/models"
	"github.com/smirnovnv/fur-store/internal/service"
	"github.com/smirnovnv/fur-store/internal/storage"
	"github.com/stretchr/testify/assert"
)

// fakeProductRepo — фиктивный каталог: карта товаров с возможностью
// эмулировать отказ чтения.
type fakeProductRepo struct {
	products map[int64]*models.Product
	failErr  error // если установлена, любое чтение падает с этой ошибкой
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[int64]*models.Product)}
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	product, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return product, nil
}

func (f *fakeProductRepo) GetProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	return f.GetProductByID(ctx, id)
}

// fakeCartRepo — фиктивное хранилище корзин с семантикой настоящего:
// insert-or-increment, идемпотентное удаление, порядок добавления.
type fakeCartRepo struct {
	nextCartID int64
	nextItemID int64
	carts      map[int64]int64              // userID -> cartID
	items      map[int64][]*models.CartItem // cartID -> позиции
	products   *fakeProductRepo             // для вложенных данных товара при чтении
	clearErr   error                        // эмуляция сбоя очистки корзины
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func newFakeCartRepo(products *fakeProductRepo) *fakeCartRepo {
	return &fakeCartRepo{
		carts:    make(map[int64]int64),
		items:    make(map[int64][]*models.CartItem),
		products: products,
	}
}

func (f *fakeCartRepo) GetOrCreateCartTx(ctx context.Context, tx *sql.Tx, userID int64) (int64, error) {
	if cartID, ok := f.carts[userID]; ok {
		return cartID, nil
	}
	f.nextCartID++
	f.carts[userID] = f.nextCartID
	return f.nextCartID, nil
}

func (f *fakeCartRepo) GetCartWithItems(ctx context.Context, cartID int64) (*models.Cart, error) {
	var userID int64
	found := false
	for uid, cid := range f.carts {
		if cid == cartID {
			userID = uid
			found = true
		}
	}
	if !found {
		return nil, storage.ErrCartNotFound
	}
	cart := &models.Cart{ID: cartID, UserID: userID}
	for _, item := range f.items[cartID] {
		product := f.products.products[item.ProductID]
		cart.Items = append(cart.Items, &models.CartItem{
			ID:        item.ID,
			CartID:    item.CartID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Product:   product,
		})
	}
	return cart, nil
}

func (f *fakeCartRepo) ListItemsTx(ctx context.Context, tx *sql.Tx, cartID int64) ([]*models.CartItem, error) {
	return f.items[cartID], nil
}

func (f *fakeCartRepo) UpsertItemTx(ctx context.Context, tx *sql.Tx, cartID, productID int64, quantity int) error {
	for _, item := range f.items[cartID] {
		if item.ProductID == productID {
			item.Quantity += quantity
			return nil
		}
	}
	f.nextItemID++
	f.items[cartID] = append(f.items[cartID], &models.CartItem{
		ID:        f.nextItemID,
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
	})
	return nil
}

func (f *fakeCartRepo) UpdateItemQuantityTx(ctx context.Context, tx *sql.Tx, cartID, productID int64, quantity int) error {
	for _, item := range f.items[cartID] {
		if item.ProductID == productID {
			item.Quantity = quantity
		}
	}
	return nil
}

func (f *fakeCartRepo) DeleteItemTx(ctx context.Context, tx *sql.Tx, cartID, productID int64) error {
	items := f.items[cartID]
	for i, item := range items {
		if item.ProductID == productID {
			f.items[cartID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeCartRepo) ClearTx(ctx context.Context, tx *sql.Tx, cartID int64) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.items[cartID] = nil
	return nil
}

func newCartServiceForTest(t *testing.T) (service.CartService, *fakeCartRepo, *fakeProductRepo, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	products := newFakeProductRepo()
	carts := newFakeCartRepo(products)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	svc := service.NewCartService(logger, db, carts, products)
	return svc, carts, products, mock, db
}

func TestCartService_AddItem_MergesDuplicates(t *testing.T) {
	svc, _, products, mock, db := newCartServiceForTest(t)
	defer db.Close()

	products.products[7] = &models.Product{ID: 7, Name: "Mink coat", Price: 2500.0}

	// Два добавления — две транзакции.
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	ctx := context.Background()
	cart, err := svc.AddItem(ctx, 1, 7, 2)
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	// Повторное добавление того же товара сливается в одну позицию.
	cart, err = svc.AddItem(ctx, 1, 7, 3)
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1, "duplicate product must not create a second line item")
	assert.Equal(t, 5, cart.Items[0].Quantity, "quantities must merge")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_AddItem_InvalidQuantity(t *testing.T) {
	svc, _, _, mock, db := newCartServiceForTest(t)
	defer db.Close()

	// Отклоняется до какой-либо транзакции.
	_, err := svc.AddItem(context.Background(), 1, 7, 0)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidQuantity))

	_, err = svc.AddItem(context.Background(), 1, 7, -3)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidQuantity))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_AddItem_UnknownProduct(t *testing.T) {
	svc, carts, _, mock, db := newCartServiceForTest(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.AddItem(context.Background(), 1, 99, 1)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrProductNotFound))
	// Никакой мутации корзины не произошло.
	assert.Empty(t, carts.items[carts.carts[1]])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_UpdateItemQuantity_AbsentProductIsNoop(t *testing.T) {
	svc, _, products, mock, db := newCartServiceForTest(t)
	defer db.Close()

	products.products[7] = &models.Product{ID: 7, Name: "Mink coat", Price: 2500.0}

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	ctx := context.Background()
	_, err := svc.AddItem(ctx, 1, 7, 2)
	assert.NoError(t, err)

	// Товара 99 в корзине нет: корзина возвращается без изменений.
	cart, err := svc.UpdateItemQuantity(ctx, 1, 99, 5)
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, int64(7), cart.Items[0].ProductID)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_UpdateItemQuantity_InvalidQuantity(t *testing.T) {
	svc, _, _, mock, db := newCartServiceForTest(t)
	defer db.Close()

	// Ноль не принимается: для удаления есть отдельная операция.
	_, err := svc.UpdateItemQuantity(context.Background(), 1, 7, 0)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidQuantity))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_RemoveItem_Idempotent(t *testing.T) {
	svc, _, products, mock, db := newCartServiceForTest(t)
	defer db.Close()

	products.products[7] = &models.Product{ID: 7, Name: "Mink coat", Price: 2500.0}

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	ctx := context.Background()
	_, err := svc.AddItem(ctx, 1, 7, 2)
	assert.NoError(t, err)

	cart, err := svc.RemoveItem(ctx, 1, 7)
	assert.NoError(t, err)
	assert.Empty(t, cart.Items)

	// Повторное удаление отсутствующего товара — не ошибка.
	cart, err = svc.RemoveItem(ctx, 1, 7)
	assert.NoError(t, err, "removing an absent item must not error")
	assert.Empty(t, cart.Items)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartService_GetCart_CreatesLazily(t *testing.T) {
	svc, carts, _, mock, db := newCartServiceForTest(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	cart, err := svc.GetCart(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, carts.carts[5], cart.ID, "cart must be created on first access")

	assert.NoError(t, mock.ExpectationsWereMet())
}
