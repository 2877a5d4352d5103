package models

// Cart представляет корзину пользователя (ровно одна на пользователя).
// Сама корзина живет постоянно, при оформлении заказа очищаются только её позиции.
type Cart struct {
	ID     int64       `json:"id"`
	UserID int64       `json:"user_id"`
	Items  []*CartItem `json:"items"`
}

// CartItem — позиция корзины. На пару (корзина, товар) существует не более одной строки,
// повторное добавление товара увеличивает количество.
type CartItem struct {
	ID        int64    `json:"id"`
	CartID    int64    `json:"cart_id"`
	ProductID int64    `json:"product_id"`
	Quantity  int      `json:"quantity"`
	Product   *Product `json:"product,omitempty"` // заполняется через JOIN с таблицей products
}
