package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/smirnovnv/fur-store/internal/app/handlers"
	"github.com/smirnovnv/fur-store/internal/domain/models"
	"github.com/smirnovnv/fur-store/internal/jwt/jwtmiddleware"
	"github.com/smirnovnv/fur-store/internal/service"
	"github.com/smirnovnv/fur-store/internal/storage"
	"github.com/stretchr/testify/assert"
)

// fakeAuthService — фиктивная реализация для тестирования.
type fakeAuthService struct {
	token string
	err   error
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (string, error) {
	return f.token, f.err
}

// fakeCartService — фиктивная реализация интерфейса CartService.
type fakeCartService struct {
	cart *models.Cart
	err  error
}

func (f *fakeCartService) GetCart(ctx context.Context, userID int64) (*models.Cart, error) {
	return f.cart, f.err
}

func (f *fakeCartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.Cart, error) {
	return f.cart, f.err
}

func (f *fakeCartService) UpdateItemQuantity(ctx context.Context, userID, productID int64, quantity int) (*models.Cart, error) {
	return f.cart, f.err
}

func (f *fakeCartService) RemoveItem(ctx context.Context, userID, productID int64) (*models.Cart, error) {
	return f.cart, f.err
}

type fakeCheckoutService struct {
	order *models.Order
	err   error
}

func (f *fakeCheckoutService) Checkout(ctx context.Context, userID int64) (*models.Order, error) {
	return f.order, f.err
}

type fakeOrderService struct {
	order *models.Order
	err   error
}

func (f *fakeOrderService) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	return f.order, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// withUserID эмулирует наличие userID в контексте, как это делает JWT middleware.
func withUserID(req *http.Request, userID int64) *http.Request {
	ctx := context.WithValue(req.Context(), jwtmiddleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func TestAuthHandler_Success(t *testing.T) {
	fakeSvc := &fakeAuthService{token: "test-token", err: nil}
	handler := handlers.AuthHandler(testLogger(), fakeSvc)

	reqBody := `{"email": "test@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/auth", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "Expected status 200 OK")

	var resp struct {
		Token string `json:"token"`
	}
	err := json.NewDecoder(rr.Body).Decode(&resp)
	assert.NoError(t, err, "Response decoding should succeed")
	assert.Equal(t, "test-token", resp.Token, "Returned token should match fake token")
}

func TestAuthHandler_ValidationError(t *testing.T) {
	fakeSvc := &fakeAuthService{}
	handler := handlers.AuthHandler(testLogger(), fakeSvc)

	reqBody := `{"email": "test@example.com", "password": "short"}`
	req := httptest.NewRequest("POST", "/api/auth", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Expected status 400 for validation error")
}

func TestGetCartHandler_Success(t *testing.T) {
	cart := &models.Cart{
		ID:     42,
		UserID: 1,
		Items: []*models.CartItem{
			{ID: 1, CartID: 42, ProductID: 7, Quantity: 2, Product: &models.Product{ID: 7, Name: "Mink coat", Price: 2500.0}},
		},
	}
	fakeSvc := &fakeCartService{cart: cart}
	handler := handlers.GetCartHandler(testLogger(), fakeSvc)

	req := withUserID(httptest.NewRequest("GET", "/api/cart", nil), 1)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp handlers.CartResponse
	err := json.NewDecoder(rr.Body).Decode(&resp)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), resp.ID)
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, 5000.0, resp.TotalPrice, "cart total is quantity*price over items")
}

func TestGetCartHandler_Unauthorized(t *testing.T) {
	fakeSvc := &fakeCartService{cart: &models.Cart{}}
	handler := handlers.GetCartHandler(testLogger(), fakeSvc)

	// userID в контексте нет — middleware не отработал.
	req := httptest.NewRequest("GET", "/api/cart", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAddCartItemHandler_Success(t *testing.T) {
	cart := &models.Cart{
		ID:     42,
		UserID: 1,
		Items: []*models.CartItem{
			{ID: 1, CartID: 42, ProductID: 7, Quantity: 5, Product: &models.Product{ID: 7, Name: "Mink coat", Price: 2500.0}},
		},
	}
	fakeSvc := &fakeCartService{cart: cart}
	handler := handlers.AddCartItemHandler(testLogger(), fakeSvc)

	reqBody := `{"product_id": 7, "quantity": 3}`
	req := withUserID(httptest.NewRequest("POST", "/api/cart/add", bytes.NewBufferString(reqBody)), 1)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp handlers.CartResponse
	err := json.NewDecoder(rr.Body).Decode(&resp)
	assert.NoError(t, err)
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, 5, resp.Items[0].Quantity)
}

func TestAddCartItemHandler_ZeroQuantityRejected(t *testing.T) {
	fakeSvc := &fakeCartService{cart: &models.Cart{}}
	handler := handlers.AddCartItemHandler(testLogger(), fakeSvc)

	reqBody := `{"product_id": 7, "quantity": 0}`
	req := withUserID(httptest.NewRequest("POST", "/api/cart/add", bytes.NewBufferString(reqBody)), 1)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code, "Expected 400 for non-positive quantity")
}

func TestAddCartItemHandler_UnknownProduct(t *testing.T) {
	fakeSvc := &fakeCartService{err: fmt.Errorf("service.CartService.AddItem: %w", storage.ErrProductNotFound)}
	handler := handlers.AddCartItemHandler(testLogger(), fakeSvc)

	reqBody := `{"product_id": 99, "quantity": 1}`
	req := withUserID(httptest.NewRequest("POST", "/api/cart/add", bytes.NewBufferString(reqBody)), 1)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRemoveCartItemHandler_InvalidProductID(t *testing.T) {
	fakeSvc := &fakeCartService{cart: &models.Cart{}}

	router := chi.NewRouter()
	router.Delete("/api/cart/items/{productID}", handlers.RemoveCartItemHandler(testLogger(), fakeSvc))

	req := withUserID(httptest.NewRequest("DELETE", "/api/cart/items/abc", nil), 1)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCheckoutHandler_Success(t *testing.T) {
	order := &models.Order{
		ID:         10,
		UserID:     1,
		Status:     models.OrderStatusPending,
		TotalPrice: 45.0,
		Items: []*models.OrderItem{
			{ID: 1, OrderID: 10, ProductID: 1, Quantity: 2, PriceAtPurchase: 10.0},
			{ID: 2, OrderID: 10, ProductID: 2, Quantity: 1, PriceAtPurchase: 25.0},
		},
	}
	fakeSvc := &fakeCheckoutService{order: order}
	handler := handlers.CheckoutHandler(testLogger(), fakeSvc)

	req := withUserID(httptest.NewRequest("POST", "/api/orders", nil), 1)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp models.Order
	err := json.NewDecoder(rr.Body).Decode(&resp)
	assert.NoError(t, err)
	assert.Equal(t, int64(10), resp.ID)
	assert.Equal(t, 45.0, resp.TotalPrice)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 10.0, resp.Items[0].PriceAtPurchase)
}

func TestCheckoutHandler_EmptyCart(t *testing.T) {
	fakeSvc := &fakeCheckoutService{err: fmt.Errorf("service.CheckoutService.Checkout: %w", service.ErrEmptyCart)}
	handler := handlers.CheckoutHandler(testLogger(), fakeSvc)

	req := withUserID(httptest.NewRequest("POST", "/api/orders", nil), 1)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code, "Expected 400 for empty cart")
}

func TestCheckoutHandler_CatalogUnavailable(t *testing.T) {
	fakeSvc := &fakeCheckoutService{err: fmt.Errorf("service.CheckoutService.Checkout: %w", service.ErrCatalogUnavailable)}
	handler := handlers.CheckoutHandler(testLogger(), fakeSvc)

	req := withUserID(httptest.NewRequest("POST", "/api/orders", nil), 1)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code, "Expected 503 when the catalog is down")
}

func TestOrderHandler_NotFound(t *testing.T) {
	fakeSvc := &fakeOrderService{err: fmt.Errorf("service.OrderService.GetOrder: %w", storage.ErrOrderNotFound)}

	router := chi.NewRouter()
	router.Get("/api/orders/{orderID}", handlers.OrderHandler(testLogger(), fakeSvc))

	req := withUserID(httptest.NewRequest("GET", "/api/orders/999", nil), 1)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
