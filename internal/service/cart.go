package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/smirnovnv/fur-store/internal/domain/models"
	"github.com/smirnovnv/fur-store/internal/storage"
)

// CartService определяет операции над корзиной пользователя.
// Каждая мутация выполняется в транзакции, которая первым делом блокирует
// строку корзины: операции над одной корзиной упорядочиваются, корзины
// разных пользователей друг друга не ждут.
type CartService interface {
	GetCart(ctx context.Context, userID int64) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID, productID int64, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, productID int64) (*models.Cart, error)
}

type cartService struct {
	log         *slog.Logger
	db          *sql.DB
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
}

func NewCartService(log *slog.Logger, db *sql.DB, cartRepo storage.CartStorage, productRepo storage.ProductStorage) CartService {
	return &cartService{
		log:         log,
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart возвращает корзину пользователя, лениво создавая её при первом обращении.
func (s *cartService) GetCart(ctx context.Context, userID int64) (*models.Cart, error) {
	const op = "service.CartService.GetCart"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

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

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return s.readCart(ctx, op, cartID)
}

// AddItem добавляет товар в корзину. Если товар уже лежит в корзине,
// количество прибавляется к существующему — дубликата позиции не возникает.
func (s *cartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.Cart, error) {
	const op = "service.CartService.AddItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID), slog.Int("quantity", quantity))

	if quantity <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

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

	// Проверяем, что товар существует, до какой-либо мутации корзины.
	if _, err := s.productRepo.GetProductByIDTx(ctx, tx, productID); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Warn("product lookup failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
	}

	if err := s.cartRepo.UpsertItemTx(ctx, tx, cartID, productID, quantity); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to upsert cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to upsert cart item: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("item added to cart")
	return s.readCart(ctx, op, cartID)
}

// UpdateItemQuantity заменяет количество у позиции. Если товара в корзине нет,
// операция ничего не меняет и возвращает корзину как есть.
// Нулевое и отрицательное количество отклоняется: для удаления есть RemoveItem.
func (s *cartService) UpdateItemQuantity(ctx context.Context, userID, productID int64, quantity int) (*models.Cart, error) {
	const op = "service.CartService.UpdateItemQuantity"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID), slog.Int("quantity", quantity))

	if quantity <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

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

	if err := s.cartRepo.UpdateItemQuantityTx(ctx, tx, cartID, productID, quantity); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to update cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update cart item: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return s.readCart(ctx, op, cartID)
}

// RemoveItem удаляет позицию из корзины. Удаление отсутствующего товара — не ошибка.
func (s *cartService) RemoveItem(ctx context.Context, userID, productID int64) (*models.Cart, error) {
	const op = "service.CartService.RemoveItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

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

	if err := s.cartRepo.DeleteItemTx(ctx, tx, cartID, productID); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to delete cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to delete cart item: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return s.readCart(ctx, op, cartID)
}

// readCart перечитывает корзину из хранилища после коммита,
// чтобы ответ отражал ровно то, что реально сохранено.
func (s *cartService) readCart(ctx context.Context, op string, cartID int64) (*models.Cart, error) {
	cart, err := s.cartRepo.GetCartWithItems(ctx, cartID)
	if err != nil {
		s.log.Error("failed to read cart", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to read cart: %w", op, err)
	}
	return cart, nil
}
