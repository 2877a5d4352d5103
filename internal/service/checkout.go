package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/smirnovnv/fur-store/internal/domain/models"
	"github.com/smirnovnv/fur-store/internal/storage"
)

// CheckoutService — единственная точка превращения корзины в заказ.
type CheckoutService interface {
	Checkout(ctx context.Context, userID int64) (*models.Order, error)
}

type checkoutService struct {
	log         *slog.Logger
	db          *sql.DB
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
	orderRepo   storage.OrderStorage
}

func NewCheckoutService(log *slog.Logger, db *sql.DB, cartRepo storage.CartStorage, productRepo storage.ProductStorage, orderRepo storage.OrderStorage) CheckoutService {
	return &checkoutService{
		log:         log,
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
	}
}

// Checkout оформляет заказ по корзине пользователя.
// Снимок цен, создание заказа и очистка корзины — одна транзакция:
// либо заказ записан и корзина пуста, либо не произошло ничего.
// Блокировка строки корзины в начале транзакции ставит конкурирующие
// мутации корзины в очередь до коммита оформления.
func (s *checkoutService) Checkout(ctx context.Context, userID int64) (*models.Order, error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("starting checkout transaction")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	cartID, err := s.cartRepo.GetOrCreateCartTx(ctx, tx, userID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to get or create cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get or create cart: %w", op, err)
	}

	items, err := s.cartRepo.ListItemsTx(ctx, tx, cartID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to list cart items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list cart items: %w", op, err)
	}

	if len(items) == 0 {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("checkout on empty cart rejected")
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyCart)
	}

	// Снимаем актуальную цену каждого товара прямо из каталога в этой же транзакции
	// и фиксируем её в позиции заказа. Никаких кешированных цен.
	var totalPrice float64
	orderItems := make([]*models.OrderItem, 0, len(items))
	for _, item := range items {
		product, err := s.productRepo.GetProductByIDTx(ctx, tx, item.ProductID)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to read product from catalog", slog.Int64("productID", item.ProductID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: product %d: %w", op, item.ProductID, ErrCatalogUnavailable)
		}
		totalPrice += product.Price * float64(item.Quantity)
		orderItems = append(orderItems, &models.OrderItem{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: product.Price,
		})
	}

	orderID, err := s.orderRepo.CreateOrderTx(ctx, tx, &models.Order{
		UserID:     userID,
		Status:     models.OrderStatusPending,
		TotalPrice: totalPrice,
		Items:      orderItems,
	})
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	if err := s.cartRepo.ClearTx(ctx, tx, cartID); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to clear cart: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	// Перечитываем заказ из хранилища, а не отдаем собранные в памяти объекты:
	// ответ должен совпадать с тем, что реально закоммичено.
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Error("failed to read created order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to read created order: %w", op, err)
	}

	logger.Info("checkout completed", slog.Int64("orderID", order.ID), slog.Float64("totalPrice", order.TotalPrice))
	return order, nil
}
