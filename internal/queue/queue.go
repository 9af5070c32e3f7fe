package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/unclebandit/campaigner/internal/model"
)

// TopicRecipientOutcomes carries one model.OutcomeEvent per send attempt.
const TopicRecipientOutcomes = "recipient_outcomes"

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue delivers to subscribers on the publishing goroutine, in
// subscription order. Failed handlers are reported, never retried.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// Publish hands payload to every subscriber of topic
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := append([]func(payload any) error(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	if handler == nil {
		return errors.New("nil handler")
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// StartOutcomeLogger writes every outcome event to the log. Payloads arrive
// as model.OutcomeEvent in process, or as json.RawMessage from AMQP.
func StartOutcomeLogger(q Queue, logger *zap.Logger) error {
	return q.Subscribe(TopicRecipientOutcomes, func(payload any) error {
		var ev model.OutcomeEvent
		switch p := payload.(type) {
		case model.OutcomeEvent:
			ev = p
		case json.RawMessage:
			if err := json.Unmarshal(p, &ev); err != nil {
				return fmt.Errorf("decode outcome event: %w", err)
			}
		default:
			logger.Warn("unexpected outcome payload", zap.String("type", fmt.Sprintf("%T", payload)))
			return nil
		}
		fields := []zap.Field{
			zap.String("campaign", ev.Campaign),
			zap.Int("index", ev.Index),
			zap.String("phone", ev.Phone),
			zap.String("status", string(ev.Status)),
			zap.String("tracking_id", ev.TrackingID),
		}
		if ev.Status == model.StatusFailed {
			logger.Warn("recipient send failed", append(fields, zap.String("detail", ev.Detail))...)
			return nil
		}
		logger.Info("recipient sent", append(fields, zap.String("channel", ev.Channel))...)
		return nil
	})
}
