package model

import "time"

// Ticket is one admission unit belonging to a purchase. Tickets are
// created in a batch with their purchase and flip from unused to used
// exactly once when validated at the venue.
//
// Fields:
//  ID           – primary key identifier.
//  PurchaseID   – owning purchase (cascade delete).
//  TicketNumber – globally unique, derived from the order number.
//  QRCodeData   – unique opaque lookup key printed in the QR code.
//  IsUsed       – whether the ticket has been validated.
//  UsedAt       – when the ticket was validated (nil while unused).
//  SeatInfo     – reserved for seat assignment; always nil today.
type Ticket struct {
	ID           uint64     `json:"id"`
	PurchaseID   uint64     `json:"purchaseId"`
	TicketNumber string     `json:"ticketNumber"`
	QRCodeData   string     `json:"qrCodeData"`
	IsUsed       bool       `json:"isUsed"`
	UsedAt       *time.Time `json:"usedAt"`
	SeatInfo     *string    `json:"seatInfo"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
