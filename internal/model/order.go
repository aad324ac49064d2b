package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/canteen-meal-service/internal/mealtime"
)

// OrderStatus is the administrative lifecycle of the order record.
// Orders are created directly as confirmed; the pending value exists
// for data compatibility but no flow in this service produces it.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// DiningStatus is the confirmation state machine, distinct from
// OrderStatus.  It only moves forward: ordered -> dined or
// ordered -> cancelled; dined and cancelled are terminal.
type DiningStatus string

const (
	DiningOrdered   DiningStatus = "ordered"
	DiningDined     DiningStatus = "dined"
	DiningCancelled DiningStatus = "cancelled"
)

// Order is one batch meal-booking record covering one or more members
// for a single date and meal type.  Department and registrant names are
// denormalized snapshots taken at creation time so audit output stays
// stable even if a user or department later renames.
type Order struct {
	ID               string            `json:"id"` // orders.id (UUID)
	DepartmentID     uint64            `json:"department_id"`
	DepartmentName   string            `json:"department_name"`
	RegistrantID     uint64            `json:"registrant_id"`
	RegistrantName   string            `json:"registrant_name"`
	DiningDate       string            `json:"dining_date"` // YYYY-MM-DD
	MealType         mealtime.MealType `json:"meal_type"`
	Status           OrderStatus       `json:"status"`
	DiningStatus     DiningStatus      `json:"dining_status"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	ActualDiningTime *time.Time        `json:"actual_dining_time,omitempty"`
	Remark           string            `json:"remark,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Members          []OrderMember     `json:"members"`
}

// OrderMember links an order to one booked user.  Rows denormalize the
// order's dining date and meal type so the storage-level uniqueness key
// over (dining_date, meal_type, user_id, active) is expressible; active
// is 1 while the order is live and NULL once it is cancelled, which
// releases the booking slot while keeping the audit row.
type OrderMember struct {
	ID       uint64 `json:"-"`
	OrderID  string `json:"-"`
	UserID   uint64 `json:"user_id"`
	UserName string `json:"user_name"`
}

// MemberIDs returns the user ids booked on the order, in member order.
func (o *Order) MemberIDs() []uint64 {
	ids := make([]uint64, 0, len(o.Members))
	for _, m := range o.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// HasMember reports whether the given user is booked on the order.
func (o *Order) HasMember(userID uint64) bool {
	for _, m := range o.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
