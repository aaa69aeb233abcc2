package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer appends one line per purchase event to a log file.
type Consumer struct {
	url  string
	path string
	log  *slog.Logger
	mu   sync.Mutex
}

// NewConsumer returns a Consumer reading from the broker at url and
// writing to path.
func NewConsumer(url, path string, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{url: url, path: path, log: log}
}

// Run connects, declares the purchase queues and consumes until ctx is
// done, reconnecting with exponential backoff when the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("purchase consumer: dial failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("purchase consumer: consume loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("purchase consumer: set QoS failed", "err", err)
	}

	deliveries := make(chan amqp.Delivery)
	done := make(chan struct{})
	defer close(done)
	for _, q := range Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		go func() {
			for d := range msgs {
				select {
				case deliveries <- d:
				case <-done:
					return
				}
			}
		}()
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr == nil {
				return errors.New("channel closed")
			}
			return amqpErr
		case d := <-deliveries:
			if err := c.Handle(d.Body); err != nil {
				c.log.Error("purchase consumer: handle message failed", "err", err)
				_ = d.Nack(false, false) // do not requeue poison messages
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message and appends its log line.
func (c *Consumer) Handle(body []byte) error {
	var ev PurchaseEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.OrderNumber == "" {
		return errors.New("event without type or order number")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single human friendly log line.
func FormatLine(ev PurchaseEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", ev.OccurredAt.UTC().Format(time.RFC3339))
	switch ev.Type {
	case QueuePurchaseCreated:
		fmt.Fprintf(&b, "Purchase created | order=%s | purchase_id=%d | user_id=%d | event=%s | qty=%d | total=%s",
			ev.OrderNumber, ev.PurchaseID, ev.UserID, ev.EventID, ev.Quantity, ev.TotalPrice.StringFixed(2))
		if len(ev.TicketNumbers) > 0 {
			fmt.Fprintf(&b, " | tickets=[%s]", strings.Join(ev.TicketNumbers, ","))
		}
	case QueuePurchaseStatusChanged:
		fmt.Fprintf(&b, "Purchase status changed | order=%s | purchase_id=%d | event=%s | %s -> %s | released=%d",
			ev.OrderNumber, ev.PurchaseID, ev.EventID, ev.PreviousStatus, ev.Status, ev.Released)
	default:
		fmt.Fprintf(&b, "%s | order=%s | purchase_id=%d", ev.Type, ev.OrderNumber, ev.PurchaseID)
	}
	b.WriteByte('\n')
	return b.String()
}

// sleep waits for d or until ctx is done; it reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
