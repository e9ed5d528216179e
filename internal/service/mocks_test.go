package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/event"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/repository"
	pkgkafka "github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/kafka"
)

// --- Mock Repositories ---

type mockRatingRepository struct {
	mock.Mock
}

func (m *mockRatingRepository) Upsert(ctx context.Context, rating *domain.Rating) (*domain.Rating, error) {
	args := m.Called(ctx, rating)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rating), args.Error(1)
}

func (m *mockRatingRepository) GetScore(ctx context.Context, userID string, target domain.Target) (int, bool, error) {
	args := m.Called(ctx, userID, target)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *mockRatingRepository) ScoreHistogram(ctx context.Context, target domain.Target) (map[int]int, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]int), args.Error(1)
}

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) UpdateStatus(ctx context.Context, id string, status domain.ReviewStatus) (*domain.Review, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) ExistsForUser(ctx context.Context, userID string, target domain.Target) (bool, error) {
	args := m.Called(ctx, userID, target)
	return args.Bool(0), args.Error(1)
}

func (m *mockReviewRepository) CountApproved(ctx context.Context, target domain.Target) (int, error) {
	args := m.Called(ctx, target)
	return args.Int(0), args.Error(1)
}

func (m *mockReviewRepository) ListPending(ctx context.Context, page, perPage int) ([]domain.PendingReview, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]domain.PendingReview), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) ListApproved(ctx context.Context, target domain.Target, page, perPage int) ([]domain.PublishedReview, int, error) {
	args := m.Called(ctx, target, page, perPage)
	return args.Get(0).([]domain.PublishedReview), args.Int(1), args.Error(2)
}

type mockResponseRepository struct {
	mock.Mock
}

func (m *mockResponseRepository) Create(ctx context.Context, resp *domain.ReviewResponse) error {
	args := m.Called(ctx, resp)
	return args.Error(0)
}

func (m *mockResponseRepository) ListByReview(ctx context.Context, reviewID string) ([]domain.ReviewResponse, error) {
	args := m.Called(ctx, reviewID)
	return args.Get(0).([]domain.ReviewResponse), args.Error(1)
}

func (m *mockResponseRepository) ListByReviews(ctx context.Context, reviewIDs []string) (map[string][]domain.ReviewResponse, error) {
	args := m.Called(ctx, reviewIDs)
	return args.Get(0).(map[string][]domain.ReviewResponse), args.Error(1)
}

type mockEntityStore struct {
	mock.Mock
}

func (m *mockEntityStore) LockEntity(ctx context.Context, target domain.Target) error {
	args := m.Called(ctx, target)
	return args.Error(0)
}

func (m *mockEntityStore) UpdateAverageRating(ctx context.Context, target domain.Target, average float64) error {
	args := m.Called(ctx, target, average)
	return args.Error(0)
}

func (m *mockEntityStore) UpdateReviewCount(ctx context.Context, target domain.Target, count int) error {
	args := m.Called(ctx, target, count)
	return args.Error(0)
}

func (m *mockEntityStore) ResolveOwner(ctx context.Context, target domain.Target) (string, bool, error) {
	args := m.Called(ctx, target)
	return args.String(0), args.Bool(1), args.Error(2)
}

// --- Test Helpers ---

type mocks struct {
	ratings   *mockRatingRepository
	reviews   *mockReviewRepository
	responses *mockResponseRepository
	entities  *mockEntityStore
}

func newMocks() *mocks {
	return &mocks{
		ratings:   &mockRatingRepository{},
		reviews:   &mockReviewRepository{},
		responses: &mockResponseRepository{},
		entities:  &mockEntityStore{},
	}
}

func (m *mocks) repos() repository.Repositories {
	return repository.Repositories{
		Ratings:   m.ratings,
		Reviews:   m.reviews,
		Responses: m.responses,
		Entities:  m.entities,
	}
}

func (m *mocks) assertExpectations(t mock.TestingT) {
	m.ratings.AssertExpectations(t)
	m.reviews.AssertExpectations(t)
	m.responses.AssertExpectations(t)
	m.entities.AssertExpectations(t)
}

// passthroughTx runs fn against the same repositories and counts how many
// units of work were opened.
type passthroughTx struct {
	repos repository.Repositories
	calls int
}

func (tx *passthroughTx) WithinTx(_ context.Context, fn func(repository.Repositories) error) error {
	tx.calls++
	return fn(tx.repos)
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProducer() (*event.Producer, *recordingPublisher) {
	pub := &recordingPublisher{}
	return event.NewProducer(pub, newTestLogger()), pub
}

var (
	establishmentX = domain.Target{Kind: domain.KindEstablishment, ID: "est-x"}
	posSystemY     = domain.Target{Kind: domain.KindPOSSystem, ID: "pos-y"}

	userA = domain.Caller{ID: "user-a", Role: domain.RoleUser}
	userB = domain.Caller{ID: "user-b", Role: domain.RoleUser}
	owner = domain.Caller{ID: "owner-1", Role: domain.RoleBusiness}
	admin = domain.Caller{ID: "admin-1", Role: domain.RoleAdmin}
)

func strPtr(s string) *string { return &s }
