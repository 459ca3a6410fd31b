package domain

import "time"

type Inventory struct {
	ProductID    int64
	Stock        int
	ReorderLevel int
	UpdatedAt    time.Time
}

// Low reports whether stock has fallen to the reorder threshold.
// A zero reorder level disables the check.
func (i Inventory) Low() bool {
	return i.ReorderLevel > 0 && i.Stock <= i.ReorderLevel
}
