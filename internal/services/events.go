package services

import "github.com/sirupsen/logrus"

// Routing keys of the domain events.
const (
	EventUserRegistered = "user.registered"
	EventBookCreated    = "book.created"
	EventBookUpdated    = "book.updated"
	EventBookDeleted    = "book.deleted"
	EventBookRated      = "book.rated"
)

// EventPublisher publishes domain events. Implemented by pkg/rabbitmq.Client.
type EventPublisher interface {
	PublishEvent(routingKey string, payload map[string]interface{}) error
}

// publishEvent is best effort: failures are logged, never returned.
func publishEvent(p EventPublisher, logger logrus.FieldLogger, routingKey string, payload map[string]interface{}) {
	if p == nil {
		logger.WithField("event", routingKey).Debug("event publisher not configured, skipping")
		return
	}
	if err := p.PublishEvent(routingKey, payload); err != nil {
		logger.WithError(err).WithField("event", routingKey).Warn("failed to publish event")
	}
}
