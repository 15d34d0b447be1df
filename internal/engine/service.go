// Package engine keeps movement memories in step with the stored set history.
// Every mutation of a key's memory goes through Recompute, which is serialized
// per key and always re-derives from the full history.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/claude/movementmemory/internal/models"
	"github.com/claude/movementmemory/internal/observability"
	"github.com/claude/movementmemory/internal/progression"
	"github.com/claude/movementmemory/internal/storage"
)

// ErrInvalidSet wraps every set validation failure.
var ErrInvalidSet = errors.New("invalid set")

type Config struct {
	Options progression.Options
	Suggest progression.SuggestOptions
	// CacheSizeBytes sizes the snapshot cache; freecache enforces a 512KB minimum.
	CacheSizeBytes int
	CacheTTL       time.Duration
	// Workers bounds RecomputeMany fan-out.
	Workers int
	Now     func() time.Time
}

func (c Config) withDefaults() Config {
	if c.CacheSizeBytes <= 0 {
		c.CacheSizeBytes = 16 * 1024 * 1024
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	// The plateau alert reads the kept session outcomes, so keep at least a
	// full plateau window of them.
	plateau := c.Suggest.PlateauSessions
	if plateau <= 0 {
		plateau = progression.DefaultSuggestOptions().PlateauSessions
	}
	if c.Options.OutcomeHistory <= 0 {
		c.Options.OutcomeHistory = progression.DefaultOptions().OutcomeHistory
	}
	c.Options.OutcomeHistory = max(c.Options.OutcomeHistory, plateau)
	return c
}

type Service struct {
	store   Store
	cfg     Config
	locks   *keyedMutex
	cache   *memoryCache
	metrics *observability.Metrics
	log     *slog.Logger
}

func NewService(store Store, cfg Config, metrics *observability.Metrics, log *slog.Logger) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		store:   store,
		cfg:     cfg,
		locks:   newKeyedMutex(),
		cache:   newMemoryCache(cfg.CacheSizeBytes, cfg.CacheTTL),
		metrics: metrics,
		log:     log,
	}
}

// LogResult is what logging or editing a set produces.
type LogResult struct {
	Set            models.SetRecord                   `json:"set"`
	Classification *progression.ClassificationSummary `json:"classification"`
	Memory         *progression.MovementMemory        `json:"memory"`
	Suggestion     *progression.NextTimeSuggestion    `json:"suggestion"`
}

func validFloat(v *float64) bool {
	return v == nil || !(math.IsNaN(*v) || math.IsInf(*v, 0))
}

// normalize validates a set and fills in the fields a caller may omit. Zero
// weight or reps mean "not recorded".
func (s *Service) normalize(set models.SetRecord) (models.SetRecord, error) {
	if set.UserID <= 0 {
		return set, fmt.Errorf("%w: user id is required", ErrInvalidSet)
	}
	if set.ExerciseID == "" {
		return set, fmt.Errorf("%w: exercise id is required", ErrInvalidSet)
	}
	if !validFloat(set.Weight) || !validFloat(set.Effort) {
		return set, fmt.Errorf("%w: weight and effort must be finite", ErrInvalidSet)
	}
	if set.Weight != nil && *set.Weight < 0 {
		return set, fmt.Errorf("%w: weight %v is negative", ErrInvalidSet, *set.Weight)
	}
	if set.Reps != nil && *set.Reps < 0 {
		return set, fmt.Errorf("%w: reps %d is negative", ErrInvalidSet, *set.Reps)
	}
	if set.Effort != nil && (*set.Effort < 1 || *set.Effort > 10) {
		return set, fmt.Errorf("%w: effort %v is outside 1-10", ErrInvalidSet, *set.Effort)
	}
	if set.SetOrder < 0 {
		return set, fmt.Errorf("%w: set order %d is negative", ErrInvalidSet, set.SetOrder)
	}

	if set.Weight != nil && *set.Weight == 0 {
		set.Weight = nil
	}
	if set.Reps != nil && *set.Reps == 0 {
		set.Reps = nil
	}
	if set.ID == uuid.Nil {
		set.ID = uuid.New()
	}
	if set.LoggedAt.IsZero() {
		set.LoggedAt = s.cfg.Now()
	}
	set.LoggedAt = set.LoggedAt.UTC()
	if set.SessionDate.IsZero() {
		set.SessionDate = set.LoggedAt
	}
	set.SessionDate = set.SessionDate.UTC()
	if set.SessionID == "" {
		set.SessionID = models.SessionIDFor(set.UserID, models.DaySessionKey(set.SessionDate))
	}
	return set, nil
}

func keyOf(set models.SetRecord) progression.Key {
	return progression.Key{UserID: set.UserID, ExerciseID: set.ExerciseID}
}

// LogSet stores a new set, classifies it against the comparable earlier set
// and brings the exercise's memory up to date.
func (s *Service) LogSet(ctx context.Context, set models.SetRecord) (*LogResult, error) {
	set, err := s.normalize(set)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertSet(ctx, set); err != nil {
		return nil, fmt.Errorf("storing set: %w", err)
	}
	return s.afterWrite(ctx, set)
}

// EditSet replaces a stored set. When the edit moves the set to another
// exercise, both memories are recomputed.
func (s *Service) EditSet(ctx context.Context, set models.SetRecord) (*LogResult, error) {
	if set.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: set id is required", ErrInvalidSet)
	}
	old, err := s.store.GetSet(ctx, set.UserID, set.ID)
	if err != nil {
		return nil, err
	}
	if set.LoggedAt.IsZero() {
		set.LoggedAt = old.LoggedAt
	}
	if set.SessionDate.IsZero() {
		set.SessionDate = old.SessionDate
	}
	if set.SessionID == "" {
		set.SessionID = old.SessionID
	}
	set, err = s.normalize(set)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateSet(ctx, set); err != nil {
		return nil, fmt.Errorf("updating set: %w", err)
	}
	if oldKey := keyOf(*old); oldKey != keyOf(set) {
		if _, err := s.Recompute(ctx, oldKey); err != nil {
			return nil, err
		}
	}
	return s.afterWrite(ctx, set)
}

// DeleteSet removes a set and returns the recomputed memory, which is nil
// when the exercise never had a qualifying set.
func (s *Service) DeleteSet(ctx context.Context, userID int, id uuid.UUID) (*progression.MovementMemory, error) {
	removed, err := s.store.DeleteSet(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.Recompute(ctx, keyOf(*removed))
}

func (s *Service) afterWrite(ctx context.Context, set models.SetRecord) (*LogResult, error) {
	key := keyOf(set)
	res := &LogResult{Set: set}

	mem, history, err := s.recompute(ctx, key)
	if err != nil {
		return nil, err
	}
	res.Memory = mem

	if set.Qualifies() {
		res.Classification = progression.Summarize(progression.ClassifySet(history, set))
		if res.Classification != nil {
			s.metrics.Classifications.WithLabelValues(res.Classification.Outcome.String()).Inc()
		}
	}
	res.Suggestion = s.suggest(mem, nil)
	return res, nil
}

// Recompute re-derives the memory of key from its full history and stores
// it. It returns nil when the key has no memory and no qualifying set.
func (s *Service) Recompute(ctx context.Context, key progression.Key) (*progression.MovementMemory, error) {
	mem, _, err := s.recompute(ctx, key)
	return mem, err
}

func (s *Service) recompute(ctx context.Context, key progression.Key) (_ *progression.MovementMemory, _ []models.SetRecord, err error) {
	ctx, span := observability.Tracer.Start(ctx, "engine.recompute")
	span.SetAttributes(attribute.Int("user_id", key.UserID), attribute.String("exercise_id", key.ExerciseID))
	defer func() { observability.EndSpan(span, err) }()

	unlock := s.locks.Lock(key.String())
	defer unlock()

	start := time.Now()
	result := observability.ResultError
	defer func() { s.metrics.ObserveRecompute(result, time.Since(start)) }()

	history, err := s.store.ExerciseHistory(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("loading history for %s: %w", key, err)
	}
	stored, err := s.store.GetMemory(ctx, key)
	if errors.Is(err, storage.ErrMemoryNotFound) {
		stored, err = nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading memory %s: %w", key, err)
	}

	now := s.cfg.Now()
	fresh := progression.Recompute(key, history, now, s.cfg.Options)

	var mem *progression.MovementMemory
	switch {
	case fresh == nil && stored == nil:
		result = observability.ResultSkipped
		s.log.Warn("recompute skipped, no qualifying history", "key", key.String())
		return nil, history, nil
	case fresh == nil:
		mem = progression.Retire(stored, now)
		result = observability.ResultRetired
	default:
		mem = progression.MergeRecords(stored, fresh)
		result = observability.ResultUpdated
	}

	if err := s.store.PutMemory(ctx, mem); err != nil {
		s.cache.del(key)
		result = observability.ResultError
		return nil, nil, fmt.Errorf("storing memory %s: %w", key, err)
	}
	if err := s.cache.set(mem); err != nil {
		s.log.Warn("caching memory failed", "key", key.String(), "error", err)
		s.cache.del(key)
	}
	s.metrics.MemoriesCached.Set(float64(s.cache.len()))

	s.log.Debug("memory recomputed", "key", key.String(), "exposures", mem.ExposureCount, "result", result)
	return mem, history, nil
}

// Memory returns the stored memory of key, or nil when there is none.
func (s *Service) Memory(ctx context.Context, key progression.Key) (*progression.MovementMemory, error) {
	if mem, ok := s.cache.get(key); ok {
		return mem, nil
	}
	mem, err := s.store.GetMemory(ctx, key)
	if errors.Is(err, storage.ErrMemoryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading memory %s: %w", key, err)
	}
	if err := s.cache.set(mem); err == nil {
		s.metrics.MemoriesCached.Set(float64(s.cache.len()))
	}
	return mem, nil
}

// Suggestion builds the next-session recommendation for key. It returns nil
// when the exercise has no usable history.
func (s *Service) Suggestion(ctx context.Context, key progression.Key, sc *progression.SessionContext) (*progression.NextTimeSuggestion, error) {
	mem, err := s.Memory(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.suggest(mem, sc), nil
}

func (s *Service) suggest(mem *progression.MovementMemory, sc *progression.SessionContext) *progression.NextTimeSuggestion {
	sug := progression.Suggest(mem, s.cfg.Now(), sc, s.cfg.Suggest)
	if sug == nil {
		return nil
	}
	for _, a := range sug.Alerts {
		s.metrics.Alerts.WithLabelValues(a.Type.String()).Inc()
	}
	return sug
}

// Memories returns every memory of a user.
func (s *Service) Memories(ctx context.Context, userID int) ([]progression.MovementMemory, error) {
	mems, err := s.store.ListMemories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}
	return mems, nil
}

// RecomputeMany recomputes keys concurrently, bounded by Config.Workers, and
// reports how many memories exist afterwards. The first error cancels the
// remaining work.
func (s *Service) RecomputeMany(ctx context.Context, keys []progression.Key) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	results := make([]bool, len(keys))
	for i, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mem, err := s.Recompute(ctx, key)
			results[i] = mem != nil
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n := 0
	for _, ok := range results {
		if ok {
			n++
		}
	}
	return n, nil
}

// RefreshAll re-derives every stored memory so recency-driven fields age
// without new sets.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	keys, err := s.store.ListMemoryKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing memory keys: %w", err)
	}
	return s.RecomputeMany(ctx, keys)
}
