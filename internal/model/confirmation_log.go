package model

import "time"

// ConfirmationType is the channel a confirmation arrived through.
type ConfirmationType string

const (
	ConfirmManual ConfirmationType = "manual" // self-service by a member or the registrant
	ConfirmAdmin  ConfirmationType = "admin"  // proxy confirmation by an administrator
	ConfirmQR     ConfirmationType = "qr"     // triggered by a valid QR scan
)

// ValidConfirmationType reports whether t is a known channel.
func ValidConfirmationType(t ConfirmationType) bool {
	return t == ConfirmManual || t == ConfirmAdmin || t == ConfirmQR
}

// ConfirmationLog is one append-only audit row written per successful
// ordered -> dined transition.  UserID/UserName identify the person
// whose meal was confirmed, which differs from the actor for admin
// confirmations; ConfirmedBy records the acting administrator in that
// case.  Rows are never updated or deleted.
type ConfirmationLog struct {
	ID               string           `json:"id"` // confirmation_logs.id (UUID)
	OrderID          string           `json:"order_id"`
	UserID           uint64           `json:"user_id"`
	UserName         string           `json:"user_name"`
	ConfirmationType ConfirmationType `json:"confirmation_type"`
	ConfirmationTime time.Time        `json:"confirmation_time"`
	ConfirmedBy      *uint64          `json:"confirmed_by,omitempty"`
	Remark           string           `json:"remark,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}
