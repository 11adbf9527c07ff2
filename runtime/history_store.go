package runtime

import (
	"chat-hub/domain"
	"github.com/samber/lo"
	"time"
)

const DefaultHistoryLimit = 1000

// HistoryStore keeps the most recent messages of every channel key.
// Once a log exceeds its bound the oldest entry is evicted.
type HistoryStore struct {
	limit int
	logs  map[domain.ChannelKey][]domain.Message
}

func NewHistoryStore(limit int) *HistoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryStore{
		limit: limit,
		logs:  make(map[domain.ChannelKey][]domain.Message),
	}
}

func (h *HistoryStore) Append(key domain.ChannelKey, msg domain.Message) {
	log := append(h.logs[key], msg)
	if len(log) > h.limit {
		copy(log, log[1:])
		log = log[:len(log)-1]
	}
	h.logs[key] = log
}

// Query returns, in order, every message created at or after since.
// The zero time returns the whole log.
func (h *HistoryStore) Query(key domain.ChannelKey, since time.Time) []domain.Message {
	return lo.Filter(h.logs[key], func(m domain.Message, _ int) bool {
		return !m.CreatedAt.Before(since)
	})
}

func (h *HistoryStore) Len(key domain.ChannelKey) int {
	return len(h.logs[key])
}

// Count is the number of channel keys holding at least one message.
func (h *HistoryStore) Count() int {
	return len(h.logs)
}
