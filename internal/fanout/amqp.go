package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"fieldtrack/internal/logging"
)

const (
	locationExchange = "location_updates" // fanout
	reconnectEvery   = 5 * time.Second
)

// AMQPPublisher mirrors hub traffic onto a RabbitMQ fanout exchange so
// dashboards served by other instances see the same stream. The broker
// keeps nothing beyond delivery to bound queues; publish failures are
// logged and swallowed upstream.
type AMQPPublisher struct {
	url string
	log logging.Logger

	mutex        sync.Mutex
	conn         *amqp.Connection
	ch           *amqp.Channel
	reconnecting bool
}

func NewAMQPPublisher(url string, log logging.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, log: log}
	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("amqp connect: %w", err)
	}
	return p, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, update Update) error {
	// Snapshot the channel under the lock: a background reconnect may
	// swap p.ch at any moment.
	ch := p.channel()
	if ch == nil {
		go p.reconnect()
		return errors.New("amqp connection closed")
	}

	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return ch.PublishWithContext(pubCtx, locationExchange, update.UserID, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (p *AMQPPublisher) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		if err := p.ch.Close(); err != nil {
			return fmt.Errorf("close channel: %w", err)
		}
	}
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close connection: %w", err)
		}
	}
	return nil
}

// channel returns the current channel, or nil when the connection is
// down.
func (p *AMQPPublisher) channel() *amqp.Channel {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
		return nil
	}
	return p.ch
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	// Fanout exchange: every bound dashboard queue gets every update.
	if err := ch.ExchangeDeclare(locationExchange, "fanout", false, true, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	p.mutex.Lock()
	p.conn = conn
	p.ch = ch
	p.mutex.Unlock()
	return nil
}

func (p *AMQPPublisher) reconnect() {
	p.mutex.Lock()
	if p.reconnecting {
		p.mutex.Unlock()
		return
	}
	p.reconnecting = true
	p.mutex.Unlock()

	ticker := time.NewTicker(reconnectEvery)
	defer ticker.Stop()

	for range ticker.C {
		if err := p.connect(); err == nil {
			p.log.Info("amqp reconnected")
			p.mutex.Lock()
			p.reconnecting = false
			p.mutex.Unlock()
			return
		}
		p.log.Warn("amqp reconnect failed, retrying")
	}
}
