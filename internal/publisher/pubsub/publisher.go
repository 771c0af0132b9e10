// Package pubsub implements a Google Cloud Pub/Sub lifecycle event publisher.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
)

// Publisher publishes lead lifecycle events as JSON messages. Events for
// every lifecycle stage go to a single configured topic; the stage name
// travels as a message attribute so subscribers can filter.
type Publisher struct {
	client *pubsub.Client

	mu    sync.Mutex
	topic *pubsub.Topic
	name  string
}

// New creates a Publisher for the named topic.
func New(client *pubsub.Client, topicName string) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	if topicName == "" {
		return nil, fmt.Errorf("topic name is required")
	}
	return &Publisher{client: client, name: topicName}, nil
}

// Publish marshals the payload to JSON and publishes it with the event name
// as an attribute. It returns the server-assigned message ID.
func (p *Publisher) Publish(ctx context.Context, event string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	result := p.getTopic().Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event": event},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Close flushes and stops the underlying topic.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.topic != nil {
		p.topic.Stop()
		p.topic = nil
	}
}

func (p *Publisher) getTopic() *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.topic == nil {
		p.topic = p.client.Topic(p.name)
	}
	return p.topic
}
