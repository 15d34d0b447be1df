package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/claude/movementmemory/internal/models"
	"github.com/claude/movementmemory/internal/observability"
	"github.com/claude/movementmemory/internal/progression"
	"github.com/claude/movementmemory/internal/storage"
)

var errUpstream = errors.New("connection reset")

func TestLogSetInsertFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	svc, _, _ := newTestService(t, store)

	store.EXPECT().InsertSet(gomock.Any(), gomock.Any()).Return(errUpstream)

	_, err := svc.LogSet(context.Background(), set(bench.ExerciseID, 0, 1, 100, 5, 8))
	assert.ErrorIs(t, err, errUpstream)
}

func TestLogSetHistoryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	svc, _, m := newTestService(t, store)

	gomock.InOrder(
		store.EXPECT().InsertSet(gomock.Any(), gomock.Any()).Return(nil),
		store.EXPECT().ExerciseHistory(gomock.Any(), bench).Return(nil, errUpstream),
	)

	_, err := svc.LogSet(context.Background(), set(bench.ExerciseID, 0, 1, 100, 5, 8))
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Recomputes.WithLabelValues(observability.ResultError)))
}

func TestRecomputePutFailureLeavesCacheEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	svc, _, _ := newTestService(t, store)
	ctx := context.Background()

	history := []models.SetRecord{set(bench.ExerciseID, 0, 1, 100, 5, 8)}
	history[0].SessionID = "s1"
	store.EXPECT().ExerciseHistory(gomock.Any(), bench).Return(history, nil)
	store.EXPECT().GetMemory(gomock.Any(), bench).Return(nil, storage.ErrMemoryNotFound).Times(2)
	store.EXPECT().PutMemory(gomock.Any(), gomock.Any()).Return(errUpstream)

	_, err := svc.Recompute(ctx, bench)
	require.ErrorIs(t, err, errUpstream)

	mem, err := svc.Memory(ctx, bench)
	require.NoError(t, err)
	assert.Nil(t, mem, "a failed write is never served from cache")
}

func TestMemoryReadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	svc, _, _ := newTestService(t, store)

	store.EXPECT().GetMemory(gomock.Any(), bench).Return(nil, errUpstream)

	_, err := svc.Suggestion(context.Background(), bench, nil)
	assert.ErrorIs(t, err, errUpstream)
}

func TestMemoryCachedAfterFirstRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	svc, _, _ := newTestService(t, store)
	ctx := context.Background()

	stored := &progression.MovementMemory{UserID: 1, ExerciseID: bench.ExerciseID, ExposureCount: 3}
	store.EXPECT().GetMemory(gomock.Any(), bench).Return(stored, nil).Times(1)

	for range 3 {
		mem, err := svc.Memory(ctx, bench)
		require.NoError(t, err)
		assert.Equal(t, 3, mem.ExposureCount)
	}
}

func TestRefreshAllListFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	svc, _, _ := newTestService(t, store)

	store.EXPECT().ListMemoryKeys(gomock.Any()).Return(nil, errUpstream)

	_, err := svc.RefreshAll(context.Background())
	assert.ErrorIs(t, err, errUpstream)
}

func TestRecomputeManyStopsOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	svc, _, _ := newTestService(t, store)

	store.EXPECT().ExerciseHistory(gomock.Any(), gomock.Any()).Return(nil, errUpstream).MinTimes(1)

	keys := []progression.Key{bench, {UserID: 1, ExerciseID: "squat-barbell"}, {UserID: 1, ExerciseID: "row"}}
	_, err := svc.RecomputeMany(context.Background(), keys)
	assert.ErrorIs(t, err, errUpstream)
}

func TestEditSetUpdateFailureIsWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	svc, _, _ := newTestService(t, store)

	old := set(bench.ExerciseID, 0, 1, 100, 5, 8)
	old.ID = uuid.New()
	old.SessionID = "s1"
	edited := old
	edited.Reps = new(int)
	*edited.Reps = 6

	gomock.InOrder(
		store.EXPECT().GetSet(gomock.Any(), old.UserID, old.ID).Return(&old, nil),
		store.EXPECT().UpdateSet(gomock.Any(), gomock.Any()).Return(storage.ErrSetNotFound),
	)

	_, err := svc.EditSet(context.Background(), edited)
	require.ErrorIs(t, err, storage.ErrSetNotFound)
	assert.Contains(t, err.Error(), "updating set")
}
