package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/ticket-sales/internal/metrics"
	"github.com/iliyamo/ticket-sales/internal/model"
	"github.com/iliyamo/ticket-sales/internal/purchase"
)

const publishTimeout = 5 * time.Second

// Publisher sends purchase events to RabbitMQ. It implements
// purchase.Notifier: publishing happens in the background after the
// purchase committed, and failures are logged and counted, never
// returned to the buyer.
type Publisher struct {
	url  string
	log  *slog.Logger
	now  func() time.Time
	send func(ctx context.Context, queue string, body []byte) error
	wg   sync.WaitGroup
}

var _ purchase.Notifier = (*Publisher)(nil)

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{url: url, log: log, now: func() time.Time { return time.Now().UTC() }}
	p.send = p.publishAMQP
	return p
}

func (p *Publisher) PurchaseCreated(ctx context.Context, pur *model.Purchase, tickets []model.Ticket) {
	p.publish(ctx, CreatedEvent(pur, tickets, p.now()))
}

func (p *Publisher) PurchaseStatusChanged(ctx context.Context, pur *model.Purchase, from model.PurchaseStatus, released int) {
	p.publish(ctx, StatusChangedEvent(pur, from, released, p.now()))
}

// Wait blocks until in-flight publishes finish.
func (p *Publisher) Wait() { p.wg.Wait() }

func (p *Publisher) publish(ctx context.Context, ev PurchaseEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		metrics.PublishFailed()
		p.log.Error("marshal purchase event", "type", ev.Type, "purchase_id", ev.PurchaseID, "err", err)
		return
	}
	// the request context ends with the response
	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := p.send(ctx, ev.Type, body); err != nil {
			metrics.PublishFailed()
			p.log.Warn("publish purchase event failed", "type", ev.Type, "purchase_id", ev.PurchaseID, "err", err)
			return
		}
		p.log.Debug("purchase event published", "type", ev.Type, "purchase_id", ev.PurchaseID)
	}()
}

// publishAMQP opens a connection per message, declares the durable queue
// and publishes a persistent message through the default exchange.
func (p *Publisher) publishAMQP(ctx context.Context, queue string, body []byte) error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(publishTimeout)})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now(),
		Body:         body,
	})
}
