//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, so the Worker interface stays a single method.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one connection.
// Consume must not block: a slow client is the transport's problem, not the coordinator's.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IChannelRegistry tracks transport-level subscriptions, the fan-out side of a channel key.
type IChannelRegistry interface {
	Attach(connID domain.ConnectionID, sink EventSink)
	Detach(connID domain.ConnectionID)
	Subscribe(connID domain.ConnectionID, channel domain.ChannelKey)
	Unsubscribe(connID domain.ConnectionID, channel domain.ChannelKey)
	Sink(connID domain.ConnectionID) (EventSink, bool)
	SinksFor(channel domain.ChannelKey, except ...domain.ConnectionID) []EventSink
	All() []EventSink
	ConnectionCount() int
	ChannelCount() int
}

// ThemeStore persists the username -> theme association.
// Keys are canonical usernames.
type ThemeStore interface {
	Get(ctx context.Context, username string) (domain.Theme, bool, error)
	Save(ctx context.Context, username string, theme domain.Theme) error
}

// TextFilter rewrites user supplied text before it is stored or broadcast.
type TextFilter interface {
	Filter(text string) string
}

type ICoordinator interface {
	Connect(ctx context.Context, connID domain.ConnectionID, sink EventSink) error
	Dispatch(ctx context.Context, cmd domain.Command) error
	Stats(ctx context.Context) (domain.Stats, error)
	Run(ctx context.Context) error
}
