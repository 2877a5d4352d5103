package service

import "errors"

var (
	// ErrEmptyCart — попытка оформить заказ по корзине без позиций.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidQuantity — количество должно быть строго положительным.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrCatalogUnavailable — каталог не ответил или товар исчез во время оформления.
	// Оформление при этом откатывается целиком, повтор запроса безопасен.
	ErrCatalogUnavailable = errors.New("catalog is unavailable")
)
