package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/movementmemory/internal/models"
	"github.com/claude/movementmemory/internal/progression"
)

// InMemoryStore is a simple in-process store for local/dev use and tests.
// Memories are kept as encoded snapshots so callers never share state with it.
type InMemoryStore struct {
	mu         sync.RWMutex
	sets       map[uuid.UUID]models.SetRecord
	memories   map[progression.Key][]byte
	users      map[string]int
	importLogs []ImportLog
	nextLogID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sets:     make(map[uuid.UUID]models.SetRecord),
		memories: make(map[progression.Key][]byte),
		users:    map[string]int{"local": 1},
	}
}

func cloneSet(s models.SetRecord) models.SetRecord {
	if s.Weight != nil {
		w := *s.Weight
		s.Weight = &w
	}
	if s.Reps != nil {
		r := *s.Reps
		s.Reps = &r
	}
	if s.Effort != nil {
		e := *s.Effort
		s.Effort = &e
	}
	return s
}

func (s *InMemoryStore) InsertSet(_ context.Context, set models.SetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sets[set.ID]; ok {
		return fmt.Errorf("inserting set: duplicate id %s", set.ID)
	}
	s.sets[set.ID] = cloneSet(set)
	return nil
}

func (s *InMemoryStore) UpdateSet(_ context.Context, set models.SetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.sets[set.ID]
	if !ok || old.UserID != set.UserID {
		return ErrSetNotFound
	}
	s.sets[set.ID] = cloneSet(set)
	return nil
}

func (s *InMemoryStore) DeleteSet(_ context.Context, userID int, id uuid.UUID) (*models.SetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.sets[id]
	if !ok || old.UserID != userID {
		return nil, ErrSetNotFound
	}
	delete(s.sets, id)
	return &old, nil
}

func (s *InMemoryStore) GetSet(_ context.Context, userID int, id uuid.UUID) (*models.SetRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[id]
	if !ok || set.UserID != userID {
		return nil, ErrSetNotFound
	}
	set = cloneSet(set)
	return &set, nil
}

func (s *InMemoryStore) filterSets(keep func(models.SetRecord) bool) []models.SetRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SetRecord
	for _, set := range s.sets {
		if keep(set) {
			out = append(out, cloneSet(set))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.SessionDate.Equal(b.SessionDate) {
			return a.SessionDate.Before(b.SessionDate)
		}
		if a.SetOrder != b.SetOrder {
			return a.SetOrder < b.SetOrder
		}
		return a.LoggedAt.Before(b.LoggedAt)
	})
	return out
}

func (s *InMemoryStore) ExerciseHistory(_ context.Context, key progression.Key) ([]models.SetRecord, error) {
	return s.filterSets(func(set models.SetRecord) bool {
		return set.UserID == key.UserID && set.ExerciseID == key.ExerciseID
	}), nil
}

func (s *InMemoryStore) QuerySets(_ context.Context, key progression.Key, start, end time.Time) ([]models.SetRecord, error) {
	out := s.filterSets(func(set models.SetRecord) bool {
		return set.UserID == key.UserID && set.ExerciseID == key.ExerciseID &&
			!set.SessionDate.Before(start) && set.SessionDate.Before(end)
	})
	// newest session first, matching the SQL stores
	sort.SliceStable(out, func(i, j int) bool { return out[i].SessionDate.After(out[j].SessionDate) })
	return out, nil
}

func (s *InMemoryStore) ReplaceSessionSets(_ context.Context, userID int, sessionID string, sets []models.SetRecord) (int64, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id, set := range s.sets {
		if set.UserID == userID && set.SessionID == sessionID {
			removed = append(removed, set.ExerciseID)
			delete(s.sets, id)
		}
	}
	sort.Strings(removed)
	for _, set := range sets {
		s.sets[set.ID] = cloneSet(set)
	}
	return int64(len(sets)), exerciseSet(sets, removed), nil
}

func (s *InMemoryStore) GetMemory(_ context.Context, key progression.Key) (*progression.MovementMemory, error) {
	s.mu.RLock()
	raw, ok := s.memories[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrMemoryNotFound
	}
	var mem progression.MovementMemory
	if err := json.Unmarshal(raw, &mem); err != nil {
		return nil, fmt.Errorf("decoding memory %s: %w", key, err)
	}
	return &mem, nil
}

func (s *InMemoryStore) PutMemory(_ context.Context, mem *progression.MovementMemory) error {
	raw, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("encoding memory %s: %w", mem.Key(), err)
	}
	s.mu.Lock()
	s.memories[mem.Key()] = raw
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) ListMemories(ctx context.Context, userID int) ([]progression.MovementMemory, error) {
	keys, _ := s.ListMemoryKeys(ctx)
	var out []progression.MovementMemory
	for _, k := range keys {
		if k.UserID != userID {
			continue
		}
		mem, err := s.GetMemory(ctx, k)
		if err != nil {
			return nil, err
		}
		out = append(out, *mem)
	}
	return out, nil
}

func (s *InMemoryStore) ListMemoryKeys(_ context.Context) ([]progression.Key, error) {
	s.mu.RLock()
	keys := make([]progression.Key, 0, len(s.memories))
	for k := range s.memories {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].UserID != keys[j].UserID {
			return keys[i].UserID < keys[j].UserID
		}
		return keys[i].ExerciseID < keys[j].ExerciseID
	})
	return keys, nil
}

func (s *InMemoryStore) GetOrCreateUser(_ context.Context, login, _ string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.users[login]; ok {
		return id, nil
	}
	id := len(s.users) + 1
	s.users[login] = id
	return id, nil
}

func (s *InMemoryStore) InsertImportLog(_ context.Context, log ImportLog) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLogID++
	log.ID = s.nextLogID
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	s.importLogs = append(s.importLogs, log)
	return log.ID, nil
}

func (s *InMemoryStore) QueryImportLogs(_ context.Context, userID, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ImportLog
	for i := len(s.importLogs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.importLogs[i].UserID == userID {
			out = append(out, s.importLogs[i])
		}
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
