package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/smirnovnv/fur-store/internal/domain/models"
	"github.com/smirnovnv/fur-store/internal/jwt/jwtmiddleware"
	"github.com/smirnovnv/fur-store/internal/service"
	"github.com/smirnovnv/fur-store/internal/storage"
)

// AddCartItemRequest — входной JSON для добавления товара в корзину.
type AddCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// UpdateCartItemRequest — входной JSON для изменения количества.
// Нулевое количество не принимается: удаление — отдельная операция.
type UpdateCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// CartResponse — корзина с вычисленной суммой по текущим ценам каталога.
// Сумма здесь справочная, для фронтенда: финансовая истина фиксируется
// только при оформлении заказа.
type CartResponse struct {
	ID         int64              `json:"id"`
	Items      []*models.CartItem `json:"items"`
	TotalPrice float64            `json:"total_price"`
}

func toCartResponse(cart *models.Cart) CartResponse {
	resp := CartResponse{
		ID:    cart.ID,
		Items: cart.Items,
	}
	if resp.Items == nil {
		resp.Items = []*models.CartItem{}
	}
	for _, item := range cart.Items {
		if item.Product != nil {
			resp.TotalPrice += item.Product.Price * float64(item.Quantity)
		}
	}
	return resp
}

func writeCart(w http.ResponseWriter, logger *slog.Logger, cart *models.Cart) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toCartResponse(cart)); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// cartErrorStatus переводит ошибки сервиса корзины в HTTP-статусы.
func cartErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, storage.ErrProductNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetCartHandler обрабатывает запрос GET /api/cart.
func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cart, err := cartService.GetCart(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get cart", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeCart(w, logger, cart)
	}
}

// AddCartItemHandler обрабатывает запрос POST /api/cart/add.
func AddCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddCartItemHandler"
		logger := log.With(slog.String("op", op))

		var req AddCartItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cart, err := cartService.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
		if err != nil {
			logger.Error("failed to add cart item", slog.Any("error", err))
			http.Error(w, err.Error(), cartErrorStatus(err))
			return
		}

		writeCart(w, logger, cart)
	}
}

// UpdateCartItemHandler обрабатывает запрос PATCH /api/cart/items.
func UpdateCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateCartItemHandler"
		logger := log.With(slog.String("op", op))

		var req UpdateCartItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cart, err := cartService.UpdateItemQuantity(r.Context(), userID, req.ProductID, req.Quantity)
		if err != nil {
			logger.Error("failed to update cart item", slog.Any("error", err))
			http.Error(w, err.Error(), cartErrorStatus(err))
			return
		}

		writeCart(w, logger, cart)
	}
}

// RemoveCartItemHandler обрабатывает запрос DELETE /api/cart/items/{productID}.
func RemoveCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveCartItemHandler"
		logger := log.With(slog.String("op", op))

		productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
		if err != nil {
			logger.Error("invalid productID parameter", slog.Any("error", err))
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		cart, err := cartService.RemoveItem(r.Context(), userID, productID)
		if err != nil {
			logger.Error("failed to remove cart item", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeCart(w, logger, cart)
	}
}
