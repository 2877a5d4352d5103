package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smirnovnv/fur-store/internal/domain/models"
	"github.com/smirnovnv/fur-store/internal/storage"
)

// OrderService определяет чтение оформленных заказов.
type OrderService interface {
	GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error)
}

type orderService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
}

func NewOrderService(log *slog.Logger, orderRepo storage.OrderStorage) OrderService {
	return &orderService{
		log:       log,
		orderRepo: orderRepo,
	}
}

// GetOrder возвращает заказ пользователя. Чужой заказ неотличим от несуществующего.
func (s *orderService) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	const op = "service.OrderService.GetOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		logger.Warn("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	if order.UserID != userID {
		logger.Warn("order belongs to another user")
		return nil, fmt.Errorf("%s: %w", op, storage.ErrOrderNotFound)
	}
	return order, nil
}
