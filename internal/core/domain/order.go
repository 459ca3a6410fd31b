package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is a requested (product, quantity) pair submitted at checkout.
// Cart lines are transient; nothing is persisted until the checkout commits.
type CartLine struct {
	ProductID int64
	Quantity  int
}

type Order struct {
	ID        string
	BuyerID   int64
	BuyerName string
	Total     decimal.Decimal
	Lines     []OrderLine
	CreatedAt time.Time
}

// OrderLine snapshots the unit price at purchase time so later price
// edits do not alter historical orders.
type OrderLine struct {
	OrderID   string
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}
