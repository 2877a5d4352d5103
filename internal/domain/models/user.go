package models

// User представляет пользователя магазина
type User struct {
	ID       int64
	Email    string
	PassHash []byte
}
