// Package kafka publishes order messages and analytics events to Kafka.
package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/vitrine/internal/delivery"
	"github.com/xenking/vitrine/internal/domain/analytics"
	"github.com/xenking/vitrine/internal/domain/money"
)

// ChannelName identifies receipts produced by Publisher.
const ChannelName = "kafka"

// ErrDisabled is returned when no brokers are configured.
var ErrDisabled = errors.New("kafka disabled")

// Client holds the broker list.
type Client struct {
	Brokers []string
}

// NewClient parses a comma-separated broker list.
func NewClient(brokersCSV string) *Client {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return &Client{Brokers: brokers}
}

// Enabled reports whether any broker is configured.
func (c *Client) Enabled() bool {
	return len(c.Brokers) > 0
}

// NewWriter returns a writer for topic keyed by hash.
func (c *Client) NewWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var (
	_ delivery.Channel = (*Publisher)(nil)
	_ analytics.Sink   = (*Publisher)(nil)
)

// Publisher writes JSON payloads to a topic. It serves as a delivery channel
// for order messages and as an analytics sink.
type Publisher struct {
	w     messageWriter
	topic string
	now   func() time.Time
}

// NewPublisher returns a Publisher writing to topic.
func (c *Client) NewPublisher(topic string) (*Publisher, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	return newPublisher(c.NewWriter(topic), topic), nil
}

func newPublisher(w messageWriter, topic string) *Publisher {
	return &Publisher{w: w, topic: topic, now: time.Now}
}

// Deliver publishes the order message keyed by destination so messages of a
// store stay ordered.
func (p *Publisher) Deliver(ctx context.Context, msg delivery.Message) (delivery.Receipt, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("order_id", func(e *jx.Encoder) { e.Str(msg.OrderID) })
		e.Field("destination", func(e *jx.Encoder) { e.Str(msg.Destination) })
		e.Field("text", func(e *jx.Encoder) { e.Str(msg.Text) })
	})
	if err := p.publish(ctx, msg.Destination, e.Bytes()); err != nil {
		return delivery.Receipt{}, err
	}
	return delivery.Receipt{Channel: ChannelName}, nil
}

// Record publishes the event keyed by store.
func (p *Publisher) Record(ctx context.Context, ev analytics.Event) error {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("type", func(e *jx.Encoder) { e.Str(string(ev.Type)) })
		e.Field("store_id", func(e *jx.Encoder) { e.Str(ev.StoreID) })
		if ev.OrderID != "" {
			e.Field("order_id", func(e *jx.Encoder) { e.Str(ev.OrderID) })
			e.Field("amount", func(e *jx.Encoder) { e.Str(money.Fixed(ev.Amount)) })
		}
		e.Field("occurred_at", func(e *jx.Encoder) { e.Str(ev.OccurredAt.UTC().Format(time.RFC3339Nano)) })
	})
	return p.publish(ctx, ev.StoreID, e.Bytes())
}

func (p *Publisher) publish(ctx context.Context, key string, value []byte) error {
	err := p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  p.now().UTC(),
	})
	if err != nil {
		return errors.Wrapf(err, "publish to %s", p.topic)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}
