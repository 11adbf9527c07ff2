package transport

import (
	"chat-hub/contract"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"context"
	"sync"
)

// Sink is the outbound queue of one websocket connection.
// The coordinator pushes into it; the write pump drains it.
type Sink struct {
	events chan event.Event
	done   chan struct{}
	once   sync.Once
}

var _ contract.EventSink = (*Sink)(nil)

func NewSink(bufferSize int) *Sink {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Sink{
		events: make(chan event.Event, bufferSize),
		done:   make(chan struct{}),
	}
}

// Consume never blocks. A full buffer drops the event and reports it to the caller.
func (s *Sink) Consume(ctx context.Context, e event.Event) error {
	select {
	case <-s.done:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSinkFull
	}
}

func (s *Sink) Events() <-chan event.Event {
	return s.events
}

func (s *Sink) Done() <-chan struct{} {
	return s.done
}

// Close stops the sink. The events channel stays open so a late Consume cannot panic.
func (s *Sink) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}
