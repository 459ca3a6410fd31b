package domain

import "time"

type User struct {
	ID              int64
	Username        string
	PasswordHash    string
	FullName        string
	ShippingAddress string
	IsAdmin         bool
	CreatedAt       time.Time
}
