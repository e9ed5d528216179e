package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/service"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/health"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/middleware"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/pagination"
)

// ============================================================================
// Mock services
// ============================================================================

type mockRatingService struct {
	mock.Mock
}

func (m *mockRatingService) SubmitRating(ctx context.Context, caller domain.Caller, target domain.Target, score int) (*domain.Rating, error) {
	args := m.Called(ctx, caller, target, score)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rating), args.Error(1)
}

func (m *mockRatingService) GetUserRating(ctx context.Context, caller domain.Caller, target domain.Target) (domain.UserRating, error) {
	args := m.Called(ctx, caller, target)
	return args.Get(0).(domain.UserRating), args.Error(1)
}

func (m *mockRatingService) GetEntityRatingStats(ctx context.Context, target domain.Target) (domain.RatingStats, error) {
	args := m.Called(ctx, target)
	return args.Get(0).(domain.RatingStats), args.Error(1)
}

func (m *mockRatingService) RecomputeAggregates(ctx context.Context, target domain.Target) (*domain.EntityAggregates, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EntityAggregates), args.Error(1)
}

type mockReviewService struct {
	mock.Mock
}

func (m *mockReviewService) SubmitReview(ctx context.Context, caller domain.Caller, in service.ReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewService) ListPending(ctx context.Context, params pagination.Params) ([]domain.PendingReview, int, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]domain.PendingReview), args.Int(1), args.Error(2)
}

func (m *mockReviewService) Moderate(ctx context.Context, reviewID, status string) (*domain.Review, error) {
	args := m.Called(ctx, reviewID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewService) DeleteReview(ctx context.Context, caller domain.Caller, reviewID string) error {
	args := m.Called(ctx, caller, reviewID)
	return args.Error(0)
}

func (m *mockReviewService) RespondToReview(ctx context.Context, caller domain.Caller, reviewID, content string) (*domain.ReviewResponse, error) {
	args := m.Called(ctx, caller, reviewID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewResponse), args.Error(1)
}

func (m *mockReviewService) ListResponses(ctx context.Context, reviewID string) ([]domain.ReviewResponse, error) {
	args := m.Called(ctx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewResponse), args.Error(1)
}

func (m *mockReviewService) ListEntityReviews(ctx context.Context, target domain.Target, params pagination.Params) ([]domain.PublishedReview, int, error) {
	args := m.Called(ctx, target, params)
	return args.Get(0).([]domain.PublishedReview), args.Int(1), args.Error(2)
}

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubValidator accepts tokens of the form "<user id>:<role>".
func stubValidator(token string) (*middleware.Claims, error) {
	id, role, ok := strings.Cut(token, ":")
	if !ok || id == "" {
		return nil, errors.New("malformed token")
	}
	return &middleware.Claims{UserID: id, Role: role}, nil
}

type testServer struct {
	ratings *mockRatingService
	reviews *mockReviewService
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{ratings: &mockRatingService{}, reviews: &mockReviewService{}}
	ts.handler = NewRouter(ts.ratings, ts.reviews, stubValidator, health.NewHandler(), testLogger(), RouterConfig{
		CORS:              middleware.CORSConfig{AllowedOrigins: []string{"*"}},
		PublicCacheMaxAge: 60,
	})
	t.Cleanup(func() {
		ts.ratings.AssertExpectations(t)
		ts.reviews.AssertExpectations(t)
	})
	return ts
}

// do sends a request; token may be empty for anonymous calls.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code      string            `json:"code"`
		Message   string            `json:"message"`
		Fields    map[string]string `json:"fields"`
		RequestID string            `json:"request_id"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode(t, rec)
	require.NotNil(t, env.Error, rec.Body.String())
	return env.Error.Code
}

const (
	userToken     = "user-a:USER"
	ownerToken    = "owner-1:BUSINESS"
	adminToken    = "admin-1:admin"
	reviewID      = "6f1c2e9a-3b4d-4c5e-8f70-1a2b3c4d5e6f"
	reviewsPrefix = "/api/v1/review/"
)

var (
	userA = domain.Caller{ID: "user-a", Role: domain.RoleUser}
	owner = domain.Caller{ID: "owner-1", Role: domain.RoleBusiness}
	admin = domain.Caller{ID: "admin-1", Role: domain.RoleAdmin}

	establishment = domain.Target{Kind: domain.KindEstablishment, ID: "est-1"}
	posSystem     = domain.Target{Kind: domain.KindPOSSystem, ID: "pos-1"}
)
