package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/canteen-meal-service/internal/mealtime"
)

// Menu statuses stored in menus.status.  Only published menus are
// visible to the order ledger.
const (
	MenuStatusDraft     = "draft"
	MenuStatusPublished = "published"
)

// Menu is a published dish list for one date and meal type.  The menu
// catalog is an external read dependency: a menu may legally be absent
// for a date still open for ordering.
type Menu struct {
	ID        uint64            // menus.id
	MenuDate  string            // menus.menu_date (YYYY-MM-DD)
	MealType  mealtime.MealType // menus.meal_type
	Status    string            // menus.status
	Dishes    []MenuDish
	CreatedAt time.Time // menus.created_at
	UpdatedAt time.Time // menus.updated_at
}

// MenuDish is a priced dish on a menu.
type MenuDish struct {
	ID     uint64          // menu_dishes.id
	MenuID uint64          // menu_dishes.menu_id
	Name   string          // menu_dishes.name
	Price  decimal.Decimal // menu_dishes.price
}

// Total returns the sum of all dish prices on the menu.
func (m *Menu) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, d := range m.Dishes {
		sum = sum.Add(d.Price)
	}
	return sum
}
