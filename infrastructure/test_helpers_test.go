package infrastructure

import (
	"context"
	"errors"
	"sync"
)

type publishedMessage struct {
	subject string
	data    []byte
}

// fakeMessageBus records publishes and lets tests deliver messages to subscribers
type fakeMessageBus struct {
	mu         sync.Mutex
	published  []publishedMessage
	handlers   map[string]func([]byte) error
	publishErr error
}

func newFakeMessageBus() *fakeMessageBus {
	return &fakeMessageBus{handlers: make(map[string]func([]byte) error)}
}

func (b *fakeMessageBus) Publish(ctx context.Context, subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, publishedMessage{subject: subject, data: data})
	return nil
}

func (b *fakeMessageBus) Subscribe(subject string, handler func([]byte) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = handler
	return nil
}

func (b *fakeMessageBus) deliver(subject string, data []byte) error {
	b.mu.Lock()
	handler, ok := b.handlers[subject]
	b.mu.Unlock()
	if !ok {
		return errors.New("no subscriber for " + subject)
	}
	return handler(data)
}

func (b *fakeMessageBus) messages() []publishedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]publishedMessage, len(b.published))
	copy(out, b.published)
	return out
}
