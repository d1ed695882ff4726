package main

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/outbox"
)

// nonRetryableError marks rows that can never be published as stored.
type nonRetryableError struct {
	err error
}

func (e nonRetryableError) Error() string { return e.err.Error() }
func (e nonRetryableError) Unwrap() error { return e.err }

func newNonRetryableError(err error) error {
	return nonRetryableError{err: err}
}

func isNonRetryable(err error) bool {
	var target nonRetryableError
	return errors.As(err, &target)
}

type resolvedEvent struct {
	Topic    string
	Envelope outbox.PayloadEnvelope
}

// envelopeResolver validates a stored row and picks its topic. Every order
// and user event goes to the orders topic.
type envelopeResolver struct {
	topic string
}

func newEnvelopeResolver(topic string) (*envelopeResolver, error) {
	if topic == "" {
		return nil, errors.New("orders topic required")
	}
	return &envelopeResolver{topic: topic}, nil
}

func (r *envelopeResolver) Resolve(event models.OutboxEvent) (*resolvedEvent, error) {
	if !event.EventType.IsValid() {
		return nil, newNonRetryableError(fmt.Errorf("unknown event type %q", event.EventType))
	}
	if !event.AggregateType.IsValid() {
		return nil, newNonRetryableError(fmt.Errorf("unknown aggregate type %q", event.AggregateType))
	}
	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, newNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	if envelope.EventID == "" {
		envelope.EventID = event.ID.String()
	}
	if envelope.EventType == "" {
		envelope.EventType = string(event.EventType)
	}
	if envelope.AggregateID == "" {
		envelope.AggregateID = event.AggregateID.String()
	}
	if envelope.OccurredAt.IsZero() {
		envelope.OccurredAt = event.CreatedAt
	}
	return &resolvedEvent{Topic: r.topic, Envelope: envelope}, nil
}

