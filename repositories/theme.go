package repositories

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const themePrefix = "theme:"

// ThemeRecord is the repository view of a stored preference.
type ThemeRecord struct {
	Username  string
	Theme     domain.Theme
	UpdatedAt time.Time
}

// MemoryThemeStore keeps preferences for the lifetime of the process.
type MemoryThemeStore struct {
	mu     sync.RWMutex
	themes map[string]domain.Theme
}

var _ contract.ThemeStore = (*MemoryThemeStore)(nil)

func NewMemoryThemeStore() *MemoryThemeStore {
	return &MemoryThemeStore{themes: make(map[string]domain.Theme)}
}

func (s *MemoryThemeStore) Get(_ context.Context, username string) (domain.Theme, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	theme, ok := s.themes[username]
	return theme, ok, nil
}

func (s *MemoryThemeStore) Save(_ context.Context, username string, theme domain.Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.themes[username] = theme
	return nil
}

// ThemeRepository persists preferences in BadgerDB.
// Keys are "theme:{username}", values a protobuf Struct {theme, updatedAt}.
type ThemeRepository struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

var _ contract.ThemeStore = ThemeRepository{}

func NewThemeRepository(db *badger.DB, log *slog.Logger) ThemeRepository {
	return ThemeRepository{db: db, log: log, now: time.Now}
}

func (r ThemeRepository) Get(_ context.Context, username string) (domain.Theme, bool, error) {
	var record ThemeRecord
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(themeKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			record, err = decodeTheme(username, value)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return record.Theme, true, nil
}

func (r ThemeRepository) Save(_ context.Context, username string, theme domain.Theme) error {
	bytes, err := encodeTheme(theme, r.now())
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(themeKey(username), bytes)
	})
}

// List scans every stored preference, ordered by username.
func (r ThemeRepository) List() ([]ThemeRecord, error) {
	var records []ThemeRecord
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(themePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			username := strings.TrimPrefix(string(item.Key()), themePrefix)
			err := item.Value(func(value []byte) error {
				record, err := decodeTheme(username, value)
				if err != nil {
					r.log.Warn(fmt.Sprintf("Skipping unreadable theme record for %s", username), "error", err)
					return nil
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return records, err
}

func themeKey(username string) []byte {
	return []byte(themePrefix + username)
}

func encodeTheme(theme domain.Theme, at time.Time) ([]byte, error) {
	value, err := structpb.NewStruct(map[string]any{
		"theme":     string(theme),
		"updatedAt": float64(at.UnixMilli()),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(value)
}

func decodeTheme(username string, data []byte) (ThemeRecord, error) {
	var value structpb.Struct
	if err := proto.Unmarshal(data, &value); err != nil {
		return ThemeRecord{}, err
	}
	fields := value.GetFields()
	theme := domain.Theme(fields["theme"].GetStringValue())
	if !theme.IsValid() {
		return ThemeRecord{}, fmt.Errorf("unknown theme %q", theme)
	}
	return ThemeRecord{
		Username:  username,
		Theme:     theme,
		UpdatedAt: time.UnixMilli(int64(fields["updatedAt"].GetNumberValue())).UTC(),
	}, nil
}
