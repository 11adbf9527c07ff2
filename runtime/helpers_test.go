package runtime

import (
	"chat-hub/domain/event"
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
)

// fakeClock moves forward one millisecond on every read so that successive events never share an instant.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type recordingSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *recordingSink) Consume(_ context.Context, e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Names() []event.Name {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.events, func(e event.Event, _ int) event.Name {
		return e.Name
	})
}

func (s *recordingSink) Named(name event.Name) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(s.events, func(e event.Event, _ int) bool {
		return e.Name == name
	})
}

func (s *recordingSink) Last(name event.Name) (event.Event, bool) {
	named := s.Named(name)
	if len(named) == 0 {
		return event.Event{}, false
	}
	return named[len(named)-1], true
}

// Texts returns the text of every room "message" event received.
func (s *recordingSink) Texts() []string {
	return lo.Map(s.Named(event.Message), func(e event.Event, _ int) string {
		return e.Payload.(event.MessageView).Message
	})
}

func (s *recordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
