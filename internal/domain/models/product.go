package models

import "encoding/json"

// Product представляет товар каталога.
// Ядро корзины читает из каталога только цену и факт существования товара,
// остальные поля нужны для отдачи содержимого корзины клиенту.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       float64         `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
	Specs       json.RawMessage `json:"specs,omitempty"` // характеристики (цвет, размер, тип меха) в JSONB
	CategoryID  int64           `json:"category_id"`
}
