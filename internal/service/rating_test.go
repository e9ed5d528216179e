package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/event"
	apperrors "github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/errors"
)

func newMemRatingService(t *testing.T) (*RatingService, *memStore, *recordingPublisher) {
	t.Helper()
	store := newMemStore()
	store.addEntity(establishmentX, "Cafe X", "owner-1")
	store.addEntity(posSystemY, "POS Y", "")
	producer, pub := newTestProducer()
	svc := NewRatingService(store.repos(), store, producer, newTestLogger())
	return svc, store, pub
}

// ---------------------------------------------------------------------------
// SubmitRating against the in-memory store
// ---------------------------------------------------------------------------

func TestRatingService_TwoUsersStats(t *testing.T) {
	svc, store, _ := newMemRatingService(t)
	ctx := context.Background()

	_, err := svc.SubmitRating(ctx, userA, establishmentX, 5)
	require.NoError(t, err)
	_, err = svc.SubmitRating(ctx, userB, establishmentX, 3)
	require.NoError(t, err)

	stats, err := svc.GetEntityRatingStats(ctx, establishmentX)
	require.NoError(t, err)
	assert.Equal(t, domain.RatingStats{
		AverageRating: 4,
		TotalRatings:  2,
		Distribution:  map[int]int{1: 0, 2: 0, 3: 1, 4: 0, 5: 1},
	}, stats)

	assert.InDelta(t, 4.0, store.entity(establishmentX).averageRating, 1e-9)
}

func TestRatingService_ResubmissionOverwrites(t *testing.T) {
	svc, store, _ := newMemRatingService(t)
	ctx := context.Background()

	first, err := svc.SubmitRating(ctx, userA, posSystemY, 2)
	require.NoError(t, err)
	second, err := svc.SubmitRating(ctx, userA, posSystemY, 4)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.ratingRows(userA.ID, posSystemY))

	mine, err := svc.GetUserRating(ctx, userA, posSystemY)
	require.NoError(t, err)
	assert.Equal(t, 4, mine.Score)
	assert.InDelta(t, 4.0, store.entity(posSystemY).averageRating, 1e-9)
}

func TestRatingService_InvalidScoreLeavesLedgerUntouched(t *testing.T) {
	svc, store, pub := newMemRatingService(t)

	for _, score := range []int{0, 6} {
		_, err := svc.SubmitRating(context.Background(), userA, establishmentX, score)
		assert.ErrorIs(t, err, domain.ErrInvalidScore, "score %d", score)
		assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
	}
	assert.Zero(t, store.ratingRows(userA.ID, establishmentX))
	assert.Empty(t, pub.published())
}

func TestRatingService_EmptyTarget(t *testing.T) {
	svc, _, _ := newMemRatingService(t)

	_, err := svc.SubmitRating(context.Background(), userA, domain.Target{}, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
}

func TestRatingService_UnknownEntity(t *testing.T) {
	svc, _, _ := newMemRatingService(t)

	_, err := svc.SubmitRating(context.Background(), userA, domain.Target{Kind: domain.KindEstablishment, ID: "nope"}, 3)
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestRatingService_GetUserRating_AbsentIsZero(t *testing.T) {
	svc, _, _ := newMemRatingService(t)

	mine, err := svc.GetUserRating(context.Background(), userB, establishmentX)
	require.NoError(t, err)
	assert.Equal(t, domain.UserRating{Score: 0}, mine)
}

func TestRatingService_PublishesRatingSubmitted(t *testing.T) {
	svc, _, pub := newMemRatingService(t)

	_, err := svc.SubmitRating(context.Background(), userA, establishmentX, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{event.TopicRatingSubmitted}, pub.published())
}

func TestRatingService_AggregationRetriedInline(t *testing.T) {
	svc, store, pub := newMemRatingService(t)
	store.lockFailures = 1

	_, err := svc.SubmitRating(context.Background(), userA, establishmentX, 5)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, store.entity(establishmentX).averageRating, 1e-9)
	assert.NotContains(t, pub.published(), event.TopicRatingRecomputeRequested)
}

func TestRatingService_AggregationPendingKeepsLedgerWrite(t *testing.T) {
	svc, store, pub := newMemRatingService(t)
	store.lockFailures = 2

	_, err := svc.SubmitRating(context.Background(), userA, establishmentX, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAggregationPending)
	assert.ErrorIs(t, err, errInjected)
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "AGGREGATION_PENDING", appErr.Code)

	assert.Equal(t, 1, store.ratingRows(userA.ID, establishmentX), "ledger write is not rolled back")
	assert.Contains(t, pub.published(), event.TopicRatingRecomputeRequested)

	// The background retry brings the cached average back in line.
	agg, err := svc.RecomputeAggregates(context.Background(), establishmentX)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, agg.AverageRating, 1e-9)
	assert.InDelta(t, 5.0, store.entity(establishmentX).averageRating, 1e-9)
}

func TestRatingService_ConcurrentSubmissionsConverge(t *testing.T) {
	svc, store, _ := newMemRatingService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller := domain.Caller{ID: fmt.Sprintf("user-%d", i%10), Role: domain.RoleUser}
			_, err := svc.SubmitRating(ctx, caller, establishmentX, i%5+1)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stats, err := svc.GetEntityRatingStats(ctx, establishmentX)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalRatings)

	sum := 0
	for score, n := range stats.Distribution {
		sum += score * n
	}
	assert.InDelta(t, float64(sum)/10, stats.AverageRating, 1e-9)
	assert.InDelta(t, stats.AverageRating, store.entity(establishmentX).averageRating, 1e-9)
}

func TestRatingService_RecomputeAggregatesFixesDrift(t *testing.T) {
	svc, store, _ := newMemRatingService(t)
	ctx := context.Background()

	_, err := svc.SubmitRating(ctx, userA, establishmentX, 2)
	require.NoError(t, err)
	store.reviews["rev-1"] = domain.Review{ID: "rev-1", UserID: userB.ID, Target: establishmentX, Status: domain.ReviewStatusApproved}
	store.entities[establishmentX].averageRating = 4.5
	store.entities[establishmentX].reviewCount = 7

	agg, err := svc.RecomputeAggregates(ctx, establishmentX)
	require.NoError(t, err)
	assert.Equal(t, &domain.EntityAggregates{Target: establishmentX, AverageRating: 2, ReviewCount: 1}, agg)
	assert.Equal(t, 1, store.entity(establishmentX).reviewCount)
	assert.InDelta(t, 2.0, store.entity(establishmentX).averageRating, 1e-9)
}

func TestRatingService_RecomputeAggregates_UnknownEntity(t *testing.T) {
	svc, _, _ := newMemRatingService(t)

	_, err := svc.RecomputeAggregates(context.Background(), domain.Target{Kind: domain.KindPOSSystem, ID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

// ---------------------------------------------------------------------------
// SubmitRating with mocked repositories
// ---------------------------------------------------------------------------

func TestRatingService_ConflictRetriedOnce(t *testing.T) {
	m := newMocks()
	tx := &passthroughTx{repos: m.repos()}
	producer, _ := newTestProducer()
	svc := NewRatingService(m.repos(), tx, producer, newTestLogger())

	saved := &domain.Rating{ID: "rat-1", UserID: userA.ID, Target: establishmentX, Score: 3}
	m.ratings.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.Rating")).
		Return(nil, apperrors.Conflict("concurrent rating submission")).Once()
	m.ratings.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.Rating")).
		Return(saved, nil).Once()
	m.entities.On("LockEntity", mock.Anything, establishmentX).Return(nil).Once()
	m.ratings.On("ScoreHistogram", mock.Anything, establishmentX).Return(map[int]int{3: 1}, nil).Once()
	m.entities.On("UpdateAverageRating", mock.Anything, establishmentX, 3.0).Return(nil).Once()

	got, err := svc.SubmitRating(context.Background(), userA, establishmentX, 3)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
	assert.Equal(t, 1, tx.calls)
	m.assertExpectations(t)
}

func TestRatingService_ConflictTwicePropagates(t *testing.T) {
	m := newMocks()
	tx := &passthroughTx{repos: m.repos()}
	producer, pub := newTestProducer()
	svc := NewRatingService(m.repos(), tx, producer, newTestLogger())

	m.ratings.On("Upsert", mock.Anything, mock.Anything).
		Return(nil, apperrors.Conflict("concurrent rating submission")).Twice()

	_, err := svc.SubmitRating(context.Background(), userA, establishmentX, 3)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Zero(t, tx.calls, "no aggregation after a failed ledger write")
	assert.Empty(t, pub.published())
	m.assertExpectations(t)
}

func TestRatingService_LedgerErrorAbortsBeforeAggregation(t *testing.T) {
	m := newMocks()
	tx := &passthroughTx{repos: m.repos()}
	producer, _ := newTestProducer()
	svc := NewRatingService(m.repos(), tx, producer, newTestLogger())

	m.ratings.On("Upsert", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()

	_, err := svc.SubmitRating(context.Background(), userA, establishmentX, 3)
	assert.ErrorContains(t, err, "submit rating")
	assert.Zero(t, tx.calls)
	m.assertExpectations(t)
}

func TestRatingService_PublishFailureDoesNotFailSubmission(t *testing.T) {
	m := newMocks()
	tx := &passthroughTx{repos: m.repos()}
	producer, pub := newTestProducer()
	pub.err = errors.New("broker down")
	svc := NewRatingService(m.repos(), tx, producer, newTestLogger())

	saved := &domain.Rating{ID: "rat-1", UserID: userA.ID, Target: posSystemY, Score: 1}
	m.ratings.On("Upsert", mock.Anything, mock.Anything).Return(saved, nil).Once()
	m.entities.On("LockEntity", mock.Anything, posSystemY).Return(nil).Once()
	m.ratings.On("ScoreHistogram", mock.Anything, posSystemY).Return(map[int]int{1: 1}, nil).Once()
	m.entities.On("UpdateAverageRating", mock.Anything, posSystemY, 1.0).Return(nil).Once()

	_, err := svc.SubmitRating(context.Background(), userA, posSystemY, 1)
	require.NoError(t, err)
	m.assertExpectations(t)
}

func TestRatingService_GetEntityRatingStats_Error(t *testing.T) {
	m := newMocks()
	producer, _ := newTestProducer()
	svc := NewRatingService(m.repos(), &passthroughTx{repos: m.repos()}, producer, newTestLogger())

	m.ratings.On("ScoreHistogram", mock.Anything, posSystemY).Return(nil, errors.New("timeout")).Once()

	_, err := svc.GetEntityRatingStats(context.Background(), posSystemY)
	assert.ErrorContains(t, err, "get rating stats")
	m.assertExpectations(t)
}
