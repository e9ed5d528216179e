package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/httputil"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/validator"
)

// RatingService is the rating behavior the HTTP layer depends on.
type RatingService interface {
	SubmitRating(ctx context.Context, caller domain.Caller, target domain.Target, score int) (*domain.Rating, error)
	GetUserRating(ctx context.Context, caller domain.Caller, target domain.Target) (domain.UserRating, error)
	GetEntityRatingStats(ctx context.Context, target domain.Target) (domain.RatingStats, error)
	RecomputeAggregates(ctx context.Context, target domain.Target) (*domain.EntityAggregates, error)
}

// RatingHandler handles HTTP requests for rating endpoints.
type RatingHandler struct {
	service RatingService
	logger  *slog.Logger
}

// NewRatingHandler creates a new rating HTTP handler.
func NewRatingHandler(svc RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{service: svc, logger: logger}
}

// SubmitRatingRequest is the JSON request body for submitting a rating.
// Exactly one of the two ids must be set; the score range is checked by the
// service.
type SubmitRatingRequest struct {
	Score           int    `json:"score"`
	EstablishmentID string `json:"establishment_id" validate:"omitempty,max=64"`
	PosSystemID     string `json:"pos_system_id" validate:"omitempty,max=64"`
}

// SubmitRating handles POST /api/v1/rating
func (h *RatingHandler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	var req SubmitRatingRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	target, err := domain.NewTarget(req.EstablishmentID, req.PosSystemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	rating, err := h.service.SubmitRating(r.Context(), callerFrom(r), target, req.Score)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, rating)
}

// GetUserRating handles GET /api/v1/rating/my/{entityKind}/{id}
func (h *RatingHandler) GetUserRating(w http.ResponseWriter, r *http.Request) {
	target, err := targetFromPath(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	rating, err := h.service.GetUserRating(r.Context(), callerFrom(r), target)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, rating)
}

// GetEntityRatingStats handles GET /api/v1/rating/stats/{entityKind}/{id}
func (h *RatingHandler) GetEntityRatingStats(w http.ResponseWriter, r *http.Request) {
	target, err := targetFromPath(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	stats, err := h.service.GetEntityRatingStats(r.Context(), target)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, stats)
}

// RecomputeAggregates handles POST /api/v1/rating/recompute/{entityKind}/{id}
func (h *RatingHandler) RecomputeAggregates(w http.ResponseWriter, r *http.Request) {
	target, err := targetFromPath(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	agg, err := h.service.RecomputeAggregates(r.Context(), target)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, agg)
}
