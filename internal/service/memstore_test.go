package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/repository"
)

// memStore is an in-memory stand-in for the PostgreSQL store. Transactions
// are serialized, which is what the entity row lock achieves in production.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	entities  map[domain.Target]*memEntity
	ratings   map[ratingKey]domain.Rating
	reviews   map[string]domain.Review
	responses []domain.ReviewResponse
	users     map[string]string

	// lockFailures makes the next n LockEntity calls fail.
	lockFailures int
}

type memEntity struct {
	name          string
	ownerID       string
	averageRating float64
	reviewCount   int
}

type ratingKey struct {
	userID string
	target domain.Target
}

var errInjected = errors.New("could not serialize access due to concurrent update")

func newMemStore() *memStore {
	return &memStore{
		entities: make(map[domain.Target]*memEntity),
		ratings:  make(map[ratingKey]domain.Rating),
		reviews:  make(map[string]domain.Review),
		users:    make(map[string]string),
	}
}

func (s *memStore) addEntity(t domain.Target, name, ownerID string) {
	s.entities[t] = &memEntity{name: name, ownerID: ownerID}
}

func (s *memStore) entity(t domain.Target) memEntity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.entities[t]
}

func (s *memStore) repos() repository.Repositories {
	return repository.Repositories{
		Ratings:   memRatings{s},
		Reviews:   memReviews{s},
		Responses: memResponses{s},
		Entities:  memEntities{s},
	}
}

func (s *memStore) WithinTx(_ context.Context, fn func(repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s.repos())
}

// --- ratings ---

type memRatings struct{ s *memStore }

func (r memRatings) Upsert(_ context.Context, rating *domain.Rating) (*domain.Rating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.entities[rating.Target]; !ok {
		return nil, domain.EntityNotFound(rating.Target)
	}
	key := ratingKey{rating.UserID, rating.Target}
	if existing, ok := r.s.ratings[key]; ok {
		existing.Score = rating.Score
		existing.UpdatedAt = rating.UpdatedAt
		r.s.ratings[key] = existing
		return &existing, nil
	}
	stored := *rating
	r.s.ratings[key] = stored
	return &stored, nil
}

func (r memRatings) GetScore(_ context.Context, userID string, target domain.Target) (int, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.ratings[ratingKey{userID, target}]
	return rt.Score, ok, nil
}

func (r memRatings) ScoreHistogram(_ context.Context, target domain.Target) (map[int]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h := make(map[int]int)
	for k, rt := range r.s.ratings {
		if k.target == target {
			h[rt.Score]++
		}
	}
	return h, nil
}

func (s *memStore) ratingRows(userID string, target domain.Target) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.ratings {
		if k.userID == userID && k.target == target {
			n++
		}
	}
	return n
}

// --- reviews ---

type memReviews struct{ s *memStore }

func (r memReviews) Create(_ context.Context, review *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.entities[review.Target]; !ok {
		return domain.EntityNotFound(review.Target)
	}
	r.s.reviews[review.ID] = *review
	return nil
}

func (r memReviews) GetByID(_ context.Context, id string) (*domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, domain.ReviewNotFound(id)
	}
	return &rv, nil
}

func (r memReviews) GetByIDForUpdate(ctx context.Context, id string) (*domain.Review, error) {
	return r.GetByID(ctx, id)
}

func (r memReviews) UpdateStatus(_ context.Context, id string, status domain.ReviewStatus) (*domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, domain.ReviewNotFound(id)
	}
	rv.Status = status
	r.s.reviews[id] = rv
	return &rv, nil
}

func (r memReviews) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[id]; !ok {
		return domain.ReviewNotFound(id)
	}
	delete(r.s.reviews, id)
	kept := r.s.responses[:0]
	for _, resp := range r.s.responses {
		if resp.ReviewID != id {
			kept = append(kept, resp)
		}
	}
	r.s.responses = kept
	return nil
}

func (r memReviews) ExistsForUser(_ context.Context, userID string, target domain.Target) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rv := range r.s.reviews {
		if rv.UserID == userID && rv.Target == target {
			return true, nil
		}
	}
	return false, nil
}

func (r memReviews) CountApproved(_ context.Context, target domain.Target) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, rv := range r.s.reviews {
		if rv.Target == target && rv.Status == domain.ReviewStatusApproved {
			n++
		}
	}
	return n, nil
}

func (r memReviews) sorted(keep func(domain.Review) bool, newestFirst bool) []domain.Review {
	var out []domain.Review
	for _, rv := range r.s.reviews {
		if keep(rv) {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if newestFirst {
			a, b = b, a
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

func paginate[T any](items []T, page, perPage int) []T {
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := min(start+perPage, len(items))
	return items[start:end]
}

func (r memReviews) ListPending(_ context.Context, page, perPage int) ([]domain.PendingReview, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.sorted(func(rv domain.Review) bool { return rv.Status == domain.ReviewStatusPending }, false)
	out := make([]domain.PendingReview, 0, len(all))
	for _, rv := range paginate(all, page, perPage) {
		out = append(out, domain.PendingReview{
			Review:     rv,
			AuthorName: r.s.users[rv.UserID],
			TargetName: r.s.entities[rv.Target].name,
		})
	}
	return out, len(all), nil
}

func (r memReviews) ListApproved(_ context.Context, target domain.Target, page, perPage int) ([]domain.PublishedReview, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.sorted(func(rv domain.Review) bool {
		return rv.Target == target && rv.Status == domain.ReviewStatusApproved
	}, true)
	out := make([]domain.PublishedReview, 0, len(all))
	for _, rv := range paginate(all, page, perPage) {
		out = append(out, domain.PublishedReview{
			Review:     rv,
			AuthorName: r.s.users[rv.UserID],
			Responses:  []domain.ReviewResponse{},
		})
	}
	return out, len(all), nil
}

// --- responses ---

type memResponses struct{ s *memStore }

func (r memResponses) Create(_ context.Context, resp *domain.ReviewResponse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reviews[resp.ReviewID]; !ok {
		return domain.ReviewNotFound(resp.ReviewID)
	}
	r.s.responses = append(r.s.responses, *resp)
	return nil
}

func (r memResponses) ListByReview(ctx context.Context, reviewID string) ([]domain.ReviewResponse, error) {
	grouped, _ := r.ListByReviews(ctx, []string{reviewID})
	if grouped[reviewID] == nil {
		return []domain.ReviewResponse{}, nil
	}
	return grouped[reviewID], nil
}

func (r memResponses) ListByReviews(_ context.Context, reviewIDs []string) (map[string][]domain.ReviewResponse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[string]bool, len(reviewIDs))
	for _, id := range reviewIDs {
		want[id] = true
	}
	out := make(map[string][]domain.ReviewResponse)
	for _, resp := range r.s.responses {
		if want[resp.ReviewID] {
			out[resp.ReviewID] = append(out[resp.ReviewID], resp)
		}
	}
	return out, nil
}

// --- entities ---

type memEntities struct{ s *memStore }

func (e memEntities) LockEntity(_ context.Context, target domain.Target) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if e.s.lockFailures > 0 {
		e.s.lockFailures--
		return errInjected
	}
	if _, ok := e.s.entities[target]; !ok {
		return domain.EntityNotFound(target)
	}
	return nil
}

func (e memEntities) UpdateAverageRating(_ context.Context, target domain.Target, average float64) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	ent, ok := e.s.entities[target]
	if !ok {
		return domain.EntityNotFound(target)
	}
	ent.averageRating = average
	return nil
}

func (e memEntities) UpdateReviewCount(_ context.Context, target domain.Target, count int) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	ent, ok := e.s.entities[target]
	if !ok {
		return domain.EntityNotFound(target)
	}
	ent.reviewCount = count
	return nil
}

func (e memEntities) ResolveOwner(_ context.Context, target domain.Target) (string, bool, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	ent, ok := e.s.entities[target]
	if !ok || ent.ownerID == "" {
		return "", false, nil
	}
	return ent.ownerID, true, nil
}

// tickingClock returns strictly increasing timestamps so ordering by
// created_at is deterministic.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{t: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}
