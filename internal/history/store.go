// Package history keeps the newest-first list of past analyses.
//
// The whole list is serialised as one value and replaced on every mutation.
// The in-memory list is authoritative: if a write fails the caller gets the
// error, the list keeps the change, and the next successful write persists it.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/kvstore"
	"github.com/dvloznov/statement-insights/internal/logger"
)

// DefaultKey is the key the history list is stored under.
const DefaultKey = "analysis_history"

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("history entry not found")

// Store is a history list backed by a kvstore.Store.
type Store struct {
	kv  kvstore.Store
	key string

	mu      sync.RWMutex
	entries []domain.HistoryEntry
}

// NewStore creates a history store. Call Load before using it.
func NewStore(kv kvstore.Store, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, key: key}
}

// Load reads the persisted list and makes it the in-memory list.
// A missing, unreadable or unparseable value yields an empty history.
func (s *Store) Load(ctx context.Context) []domain.HistoryEntry {
	log := logger.FromContext(ctx)

	entries := []domain.HistoryEntry{}
	data, err := s.kv.Get(ctx, s.key)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		log.Debug().Str("key", s.key).Msg("No stored history")
	case err != nil:
		log.Warn().Err(err).Str("key", s.key).Msg("Failed to read history, starting empty")
	default:
		if err := json.Unmarshal(data, &entries); err != nil {
			log.Warn().Err(err).Str("key", s.key).Msg("Stored history is not parseable, starting empty")
			entries = []domain.HistoryEntry{}
		}
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	log.Info().Int("entries", len(entries)).Msg("History loaded")
	return s.Entries()
}

// Entries returns a copy of the list, newest first.
func (s *Store) Entries() []domain.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Filter returns the entries of one statement type, newest first.
func (s *Store) Filter(t domain.StatementType) []domain.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.HistoryEntry{}
	for _, e := range s.entries {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.HistoryEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// NewEntry builds an entry for a successful analysis created at now.
// The id is now in Unix milliseconds, moved forward until it is unique.
// The id is only reserved once the entry is appended; concurrent writers
// should use Add.
func (s *Store) NewEntry(result domain.AnalysisResult, now time.Time) domain.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newEntryLocked(result, now)
}

// Add builds an entry for result, prepends it and persists the whole list.
// The id is allocated under the same lock as the insert, so concurrent calls
// with the same now get distinct ids. The entry is returned even when the
// write fails, because it stays in memory.
func (s *Store) Add(ctx context.Context, result domain.AnalysisResult, now time.Time) (domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.newEntryLocked(result, now)
	s.entries = append([]domain.HistoryEntry{entry}, s.entries...)
	return entry, s.persistLocked(ctx, "add")
}

// Append prepends entry and persists the whole list.
func (s *Store) Append(ctx context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasIDLocked(entry.ID) {
		return fmt.Errorf("history: append: duplicate id %s", entry.ID)
	}

	s.entries = append([]domain.HistoryEntry{entry}, s.entries...)
	return s.persistLocked(ctx, "append")
}

// Delete removes the entry with id and persists the list.
// Deleting an unknown id changes nothing and does not write.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, e := range s.entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		logger.FromContext(ctx).Debug().Str("id", id).Msg("Delete of unknown history entry ignored")
		return nil
	}

	kept := make([]domain.HistoryEntry, 0, len(s.entries)-1)
	kept = append(kept, s.entries[:idx]...)
	kept = append(kept, s.entries[idx+1:]...)
	s.entries = kept
	return s.persistLocked(ctx, "delete")
}

func (s *Store) newEntryLocked(result domain.AnalysisResult, now time.Time) domain.HistoryEntry {
	ms := now.UnixMilli()
	for s.hasIDLocked(strconv.FormatInt(ms, 10)) {
		ms++
	}

	return domain.HistoryEntry{
		ID:    strconv.FormatInt(ms, 10),
		Date:  now,
		Type:  result.StatementType,
		Month: result.BillData.Month(),
		Data:  result,
	}
}

func (s *Store) hasIDLocked(id string) bool {
	for _, e := range s.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) persistLocked(ctx context.Context, op string) error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("history: %s: encode: %w", op, err)
	}
	if err := s.kv.Put(ctx, s.key, data); err != nil {
		logger.FromContext(ctx).Error().Err(err).Str("op", op).Int("entries", len(s.entries)).Msg("Failed to persist history")
		return fmt.Errorf("history: %s: %w", op, err)
	}
	return nil
}
