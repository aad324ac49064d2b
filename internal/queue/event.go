// Package queue defines message payloads exchanged over the message broker.
package queue

// MealConfirmedEvent is published when a meal confirmation succeeds.
// It carries enough information for downstream consumers to audit,
// notify, or feed analytics without querying the primary database.
// ConfirmedBy is zero for self-service and QR confirmations.
type MealConfirmedEvent struct {
	ConfirmationID string `json:"confirmation_id"`
	OrderID        string `json:"order_id"`
	UserID         uint64 `json:"user_id"`
	UserName       string `json:"user_name"`
	DepartmentID   uint64 `json:"department_id"`
	DepartmentName string `json:"department_name"`
	DiningDate     string `json:"dining_date"`
	MealType       string `json:"meal_type"`
	Channel        string `json:"channel"`
	ConfirmedBy    uint64 `json:"confirmed_by,omitempty"`
	ConfirmedAt    string `json:"confirmed_at"`
}
