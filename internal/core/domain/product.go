package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   int64
	Name string
}

type FieldKind string

const (
	FieldKindText   FieldKind = "text"
	FieldKindNumber FieldKind = "number"
	FieldKindSelect FieldKind = "select"
)

// FieldSchema describes one category-specific product attribute,
// e.g. "socket" for CPUs or "wattage" for PSUs.
type FieldSchema struct {
	Key     string
	Label   string
	Kind    FieldKind
	Options []string // populated for FieldKindSelect only
}

type Product struct {
	ID          int64
	Name        string
	CategoryID  int64
	Category    string
	Price       decimal.Decimal
	Description string
	ImageURL    string
	Attributes  map[string]string
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
