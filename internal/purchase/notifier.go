package purchase

import (
	"context"

	"github.com/iliyamo/ticket-sales/internal/model"
)

// Notifier receives purchase domain events after their transaction
// commits. Delivery is best effort; implementations must not block for
// long and their failures never affect the purchase.
type Notifier interface {
	PurchaseCreated(ctx context.Context, p *model.Purchase, tickets []model.Ticket)
	PurchaseStatusChanged(ctx context.Context, p *model.Purchase, from model.PurchaseStatus, released int)
}

type nopNotifier struct{}

func (nopNotifier) PurchaseCreated(context.Context, *model.Purchase, []model.Ticket) {}
func (nopNotifier) PurchaseStatusChanged(context.Context, *model.Purchase, model.PurchaseStatus, int) {
}
