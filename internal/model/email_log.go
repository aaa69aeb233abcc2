package model

import "time"

// Email delivery outcomes recorded in email_logs.status.
const (
	EmailSent    = "sent"
	EmailFailed  = "failed"
	EmailPending = "pending"
)

// EmailLog records one confirmation email attempt for a purchase. It is
// a side-effect log; nothing in the purchase flow reads it back.
type EmailLog struct {
	ID             uint64    `json:"id"`
	PurchaseID     uint64    `json:"purchaseId"`
	EmailType      string    `json:"emailType"`
	RecipientEmail string    `json:"recipientEmail"`
	Subject        string    `json:"subject"`
	Status         string    `json:"status"`
	MessageID      *string   `json:"messageId"`
	ErrorMessage   *string   `json:"errorMessage"`
	SentAt         time.Time `json:"sentAt"`
	CreatedAt      time.Time `json:"createdAt"`
}
