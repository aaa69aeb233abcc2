// Package identity generates order numbers, ticket numbers and QR
// payloads. Generated values are unique with overwhelming probability;
// the storage layer still enforces uniqueness with unique indexes.
package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderPrefix starts every order number.
const OrderPrefix = "ORD"

// Kinds of QR payload.
const (
	KindOrder  = "ORD"
	KindTicket = "TICKET"
)

// Generator produces identifiers. The zero value is not usable; use New.
type Generator struct {
	suffix func() string
}

// New returns a Generator drawing random suffixes from UUIDv4.
func New() *Generator {
	return &Generator{suffix: randomSuffix}
}

// NewWithSuffix returns a Generator that takes order suffixes from fn.
// Tests use it to force collisions.
func NewWithSuffix(fn func() string) *Generator {
	return &Generator{suffix: fn}
}

// randomSuffix returns 8 upper-case hex characters (32 bits) of a v4 UUID.
func randomSuffix() string {
	id := uuid.New()
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// NewOrderNumber returns ORD-YYYYMMDD-XXXXXXXX for the given instant.
func (g *Generator) NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", OrderPrefix, now.Format("20060102"), g.suffix())
}

// NewTicketNumber derives the ticket number for the 1-based sequence
// index within an order, e.g. ORD-20250101-ABCDEF01-T001.
func NewTicketNumber(orderNumber string, sequence int) string {
	return fmt.Sprintf("%s-T%03d", orderNumber, sequence)
}

// NewQRPayload joins kind and labelled identity parts into a payload:
// NewQRPayload("TICKET", t, "EVENT", e) = "TICKET:t:EVENT:e". The result
// is an opaque lookup key and is never parsed back.
func NewQRPayload(kind string, parts ...string) string {
	return strings.Join(append([]string{kind}, parts...), ":")
}

// OrderQR is the order-level payload stored on the purchase.
func OrderQR(orderNumber, email string, quantity int) string {
	return NewQRPayload(KindOrder, orderNumber, "USER", email, "QTY", fmt.Sprint(quantity))
}

// TicketQR is the per-ticket payload printed at the venue.
func TicketQR(ticketNumber, eventID, email string) string {
	return NewQRPayload(KindTicket, ticketNumber, "EVENT", eventID, "USER", email)
}
