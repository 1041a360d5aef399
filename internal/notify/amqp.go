package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/tinoosan/firmledger/internal/ledger"
)

const publishTimeout = 5 * time.Second

// channel is the subset of *amqp091.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends settlement events to a durable topic exchange.
type Publisher struct {
	conn       *amqp091.Connection
	ch         channel
	exchange   string
	routingKey string
	log        *slog.Logger
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange, routingKey string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	p := newPublisher(ch, exchange, routingKey, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange, routingKey string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{ch: ch, exchange: exchange, routingKey: routingKey, log: logger}
}

// SettlementsCreated publishes one persistent JSON message per settlement and
// stops at the first failure.
func (p *Publisher) SettlementsCreated(ctx context.Context, period ledger.Period, created []ledger.Settlement) error {
	for _, s := range created {
		body, err := json.Marshal(NewSettlementEvent(s))
		if err != nil {
			return fmt.Errorf("marshal settlement event: %w", err)
		}
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		err = p.ch.PublishWithContext(
			pctx,
			p.exchange,
			p.routingKey,
			false, // mandatory
			false, // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Persistent,
				MessageId:    s.ID.String(),
				Timestamp:    time.Now(),
				Body:         body,
			},
		)
		cancel()
		if err != nil {
			return fmt.Errorf("publish settlement %s: %w", s.ID, err)
		}
	}
	p.log.InfoContext(ctx, "published settlement events",
		"period", period.String(),
		"count", len(created),
		"exchange", p.exchange,
		"routing_key", p.routingKey)
	return nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
