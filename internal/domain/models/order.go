package models

import "time"

// OrderStatusPending — статус нового заказа. Для этого сервиса он терминален,
// дальнейшие стадии исполнения заказа — вне его зоны ответственности.
const OrderStatusPending = "pending"

// Order представляет оформленный заказ. После создания заказ неизменяем.
type Order struct {
	ID         int64        `json:"id"`
	UserID     int64        `json:"user_id"`
	CreatedAt  time.Time    `json:"created_at"`
	Status     string       `json:"status"`
	TotalPrice float64      `json:"total_price"`
	Items      []*OrderItem `json:"items"`
}

// OrderItem — позиция заказа. PriceAtPurchase фиксируется в момент оформления
// и никогда не пересчитывается по живому каталогу: финансовые данные заказа —
// это снимок, а не представление.
type OrderItem struct {
	ID              int64   `json:"id"`
	OrderID         int64   `json:"order_id"`
	ProductID       int64   `json:"product_id"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
}
