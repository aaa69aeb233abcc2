// Package metrics holds the Prometheus collectors of the service. They
// are registered on the default registry and served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchasesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketsales_purchases_created_total",
			Help: "Purchases committed, per event",
		},
		[]string{"event_id"},
	)

	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketsales_tickets_issued_total",
			Help: "Tickets issued with committed purchases, per event",
		},
		[]string{"event_id"},
	)

	purchaseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketsales_purchase_failures_total",
			Help: "Rejected or failed purchase attempts by error kind",
		},
		[]string{"kind"},
	)

	statusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketsales_purchase_status_transitions_total",
			Help: "Committed purchase status transitions",
		},
		[]string{"from", "to"},
	)

	ticketsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketsales_tickets_released_total",
			Help: "Tickets returned to inventory by cancellation or refund",
		},
		[]string{"event_id"},
	)

	availableTickets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ticketsales_available_tickets",
			Help: "Last observed available tickets per event",
		},
		[]string{"event_id"},
	)

	validations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketsales_ticket_validations_total",
			Help: "Ticket validation attempts by result",
		},
		[]string{"result"},
	)

	publishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketsales_event_publish_failures_total",
			Help: "Purchase domain events that could not be published",
		},
	)
)

// PurchaseCreated records a committed purchase and the resulting stock.
func PurchaseCreated(eventID string, quantity, available int) {
	purchasesCreated.WithLabelValues(eventID).Inc()
	ticketsIssued.WithLabelValues(eventID).Add(float64(quantity))
	availableTickets.WithLabelValues(eventID).Set(float64(available))
}

// PurchaseFailed counts a purchase attempt that did not commit.
func PurchaseFailed(kind string) {
	purchaseFailures.WithLabelValues(kind).Inc()
}

// StatusChanged records a transition and any tickets it released.
func StatusChanged(eventID, from, to string, released int) {
	statusTransitions.WithLabelValues(from, to).Inc()
	if released > 0 {
		ticketsReleased.WithLabelValues(eventID).Add(float64(released))
	}
}

// Available sets the stock gauge of an event.
func Available(eventID string, available int) {
	availableTickets.WithLabelValues(eventID).Set(float64(available))
}

// TicketValidated counts a validation attempt; result is ok, already_used
// or not_found.
func TicketValidated(result string) {
	validations.WithLabelValues(result).Inc()
}

// PublishFailed counts a dropped domain event.
func PublishFailed() {
	publishFailures.Inc()
}
