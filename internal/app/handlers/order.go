package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/smirnovnv/fur-store/internal/jwt/jwtmiddleware"
	"github.com/smirnovnv/fur-store/internal/service"
	"github.com/smirnovnv/fur-store/internal/storage"
)

// CheckoutHandler обрабатывает запрос POST /api/orders — оформление заказа по корзине.
func CheckoutHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		order, err := checkoutService.Checkout(r.Context(), userID)
		if err != nil {
			logger.Error("checkout failed", slog.Any("error", err))
			switch {
			case errors.Is(err, service.ErrEmptyCart):
				http.Error(w, "cart is empty", http.StatusBadRequest)
			case errors.Is(err, service.ErrCatalogUnavailable):
				http.Error(w, "catalog is unavailable, try again later", http.StatusServiceUnavailable)
			default:
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(order); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}

// OrderHandler обрабатывает запрос GET /api/orders/{orderID}.
func OrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderHandler"
		logger := log.With(slog.String("op", op))

		orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil {
			logger.Error("invalid orderID parameter", slog.Any("error", err))
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		order, err := orderService.GetOrder(r.Context(), userID, orderID)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get order", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(order); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
		}
	}
}
