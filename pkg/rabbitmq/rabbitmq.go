package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

const (
	// DefaultExchange is the topic exchange domain events are published to.
	DefaultExchange = "bookshelf.events"
	// AuditQueue collects every domain event for the in-process consumer.
	AuditQueue = "bookshelf.audit"
)

// channel is the subset of *amqp.Channel the client uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Client publishes and consumes domain events on a topic exchange.
type Client struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	logger   logrus.FieldLogger
	now      func() time.Time
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
}

// NewClient connects to RabbitMQ, opens a channel and declares the exchange.
func NewClient(cfg Config, logger logrus.FieldLogger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	c, err := newClient(ch, cfg.Exchange, logger)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func newClient(ch channel, exchange string, logger logrus.FieldLogger) (*Client, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	logger.WithField("exchange", exchange).Info("RabbitMQ client connected")
	return &Client{
		channel:  ch,
		exchange: exchange,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Close closes the channel and the connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishEvent marshals payload to JSON and publishes it with routingKey.
func (c *Client) PublishEvent(routingKey string, payload map[string]interface{}) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", routingKey, err)
	}

	err = c.channel.Publish(c.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    c.now(),
		Type:         routingKey,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", routingKey, err)
	}

	c.logger.WithField("event", routingKey).Debug("event published")
	return nil
}

// Event is a decoded delivery.
type Event struct {
	RoutingKey string
	Payload    map[string]interface{}
	Timestamp  time.Time
}

// ConsumeEvents binds AuditQueue to every routing key of the exchange and
// hands each delivery to handler in a background goroutine. Deliveries are
// acked on success. Undecodable messages are dropped and failed ones requeued.
func (c *Client) ConsumeEvents(handler func(Event) error) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available for consumption")
	}

	queue, err := c.channel.QueueDeclare(AuditQueue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", AuditQueue, err)
	}
	if err := c.channel.QueueBind(queue.Name, "#", c.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queue.Name, err)
	}

	msgs, err := c.channel.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			c.handle(msg, handler)
		}
	}()
	return nil
}

func (c *Client) handle(msg amqp.Delivery, handler func(Event) error) {
	log := c.logger.WithFields(logrus.Fields{"delivery_tag": msg.DeliveryTag, "event": msg.RoutingKey})

	event := Event{RoutingKey: msg.RoutingKey, Timestamp: msg.Timestamp}
	if err := json.Unmarshal(msg.Body, &event.Payload); err != nil {
		log.WithError(err).Warn("dropping undecodable event")
		if err := msg.Nack(false, false); err != nil {
			log.WithError(err).Error("failed to nack message")
		}
		return
	}

	if err := handler(event); err != nil {
		log.WithError(err).Warn("failed to process event, requeueing")
		if err := msg.Nack(false, true); err != nil {
			log.WithError(err).Error("failed to nack message")
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		log.WithError(err).Error("failed to ack message")
	}
}

// LogEvent is a handler that records every event in the application log.
func LogEvent(logger logrus.FieldLogger) func(Event) error {
	return func(e Event) error {
		logger.WithFields(logrus.Fields{
			"event":   e.RoutingKey,
			"payload": e.Payload,
		}).Info("domain event")
		return nil
	}
}
