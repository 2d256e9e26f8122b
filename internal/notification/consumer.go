// Package notification consumes the outbox event stream and sends the
// user-facing follow-ups: order receipts and donation thank-you notes.
// Delivery from kafka is at-least-once, so every message passes the redis
// offset guard before any mail goes out.
package notification

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	donationdomain "github.com/zawadicraft/storefront/internal/donation/domain"
	orderdomain "github.com/zawadicraft/storefront/internal/order/domain"
	"github.com/zawadicraft/storefront/pkg/idempotency"
	"github.com/zawadicraft/storefront/pkg/tracing"
)

// Sender delivers a rendered notification. The production implementation is
// the mail provider; tests use a recorder.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender is the default no-provider sender: it only logs what would be
// sent. Useful for local runs and environments without mail credentials.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.Log.Info("notification sent", "to", to, "subject", subject)
	return nil
}

type Consumer struct {
	log    *slog.Logger
	reader *kafka.Reader
	idem   *idempotency.Store
	sender Sender
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, idem *idempotency.Store, sender Sender) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &Consumer{
		log:    log,
		reader: r,
		idem:   idem,
		sender: sender,
		tracer: otel.Tracer("notification-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		key := c.idem.OffsetKey(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
			continue
		}
		if seen {
			c.log.Info("duplicate message skipped", "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		msgCtx, span := c.tracer.Start(msgCtx, "ConsumeStorefrontEvent")
		c.handle(msgCtx, headerValue(msg.Headers, "event_type"), msg.Value)
		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, eventType string, payload []byte) {
	switch eventType {
	case "PaymentReconciled":
		var ev orderdomain.PaymentReconciled
		if err := json.Unmarshal(payload, &ev); err != nil {
			c.log.Error("unmarshal failed", "event_type", eventType, "err", err)
			return
		}
		body := "Your order " + ev.Reference + " is confirmed. Confirmation code: " + ev.ConfirmationCode
		if err := c.sender.Send(ctx, ev.UserID, "Order confirmed: "+ev.Reference, body); err != nil {
			c.log.Error("order receipt send failed", "reference", ev.Reference, "err", err)
			return
		}
		c.log.Info("order receipt sent", "reference", ev.Reference)
	case "DonationReceipt":
		var ev donationdomain.DonationReceipt
		if err := json.Unmarshal(payload, &ev); err != nil {
			c.log.Error("unmarshal failed", "event_type", eventType, "err", err)
			return
		}
		body := "Thank you for your gift, " + ev.DonorName + ". Confirmation code: " + ev.ConfirmationCode
		if err := c.sender.Send(ctx, ev.DonorEmail, "Thank you for your donation", body); err != nil {
			c.log.Error("donation receipt send failed", "reference", ev.Reference, "err", err)
			return
		}
		c.log.Info("donation receipt sent", "reference", ev.Reference)
	default:
		c.log.Warn("unknown event type skipped", "event_type", eventType)
	}
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
