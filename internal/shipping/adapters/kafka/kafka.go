// Package kafka carries shipment notifications over a Kafka topic. The
// message key and value are both the shipping id; the W3C trace context
// travels in the headers.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// SplitBrokers parses a comma separated broker list, dropping blanks.
func SplitBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one message per created shipment.
type Publisher struct {
	w messageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

func (p *Publisher) Publish(ctx context.Context, shippingID string) error {
	msg := kafka.Message{
		Key:   []byte(shippingID),
		Value: []byte(shippingID),
		Time:  time.Now().UTC(),
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: publish %s: %w", shippingID, err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.w.Close() }

// Consumer reads shipment notifications as part of a consumer group.
type Consumer struct {
	r         messageReader
	maxBatch  int
	fetchWait time.Duration
}

type ConsumerOption func(*Consumer)

// WithMaxBatch bounds how many messages one Poll returns.
func WithMaxBatch(n int) ConsumerOption { return func(c *Consumer) { c.maxBatch = n } }

// WithFetchWait bounds how long one Poll waits for the next message.
func WithFetchWait(d time.Duration) ConsumerOption { return func(c *Consumer) { c.fetchWait = d } }

func NewConsumer(brokers []string, topic, groupID string, opts ...ConsumerOption) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return newConsumer(r, opts...)
}

func newConsumer(r messageReader, opts ...ConsumerOption) *Consumer {
	c := &Consumer{r: r, maxBatch: 100, fetchWait: time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Poll returns the shipping ids that arrive before the fetch window closes
// and commits their offsets. An empty result with a nil error means nothing
// was waiting.
//
// A fetch error after some messages were read still commits and returns
// those ids, together with the error. The ids are also returned when the
// commit fails; the reader has moved past them either way.
func (c *Consumer) Poll(ctx context.Context) ([]string, error) {
	var (
		ids      []string
		msgs     []kafka.Message
		fetchErr error
	)
	for len(msgs) < c.maxBatch {
		fetchCtx, cancel := context.WithTimeout(ctx, c.fetchWait)
		msg, err := c.r.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				// Uncommitted messages are redelivered to the group.
				return nil, ctx.Err()
			}
			if !errors.Is(err, context.DeadlineExceeded) {
				fetchErr = fmt.Errorf("kafka: fetch: %w", err)
			}
			break
		}
		msgs = append(msgs, msg)
		ids = append(ids, string(msg.Value))
	}

	if len(msgs) == 0 {
		return nil, fetchErr
	}
	if err := c.r.CommitMessages(ctx, msgs...); err != nil {
		return ids, errors.Join(fetchErr, fmt.Errorf("kafka: commit %d messages: %w", len(msgs), err))
	}
	return ids, fetchErr
}

func (c *Consumer) Close() error { return c.r.Close() }

// headerCarrier adapts kafka message headers to propagation.TextMapCarrier.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
