package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/service"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/httputil"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/pagination"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/validator"
)

// ReviewService is the review behavior the HTTP layer depends on.
type ReviewService interface {
	SubmitReview(ctx context.Context, caller domain.Caller, in service.ReviewInput) (*domain.Review, error)
	ListPending(ctx context.Context, params pagination.Params) ([]domain.PendingReview, int, error)
	Moderate(ctx context.Context, reviewID, status string) (*domain.Review, error)
	DeleteReview(ctx context.Context, caller domain.Caller, reviewID string) error
	RespondToReview(ctx context.Context, caller domain.Caller, reviewID, content string) (*domain.ReviewResponse, error)
	ListResponses(ctx context.Context, reviewID string) ([]domain.ReviewResponse, error)
	ListEntityReviews(ctx context.Context, target domain.Target, params pagination.Params) ([]domain.PublishedReview, int, error)
}

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// SubmitReviewRequest is the JSON request body for submitting a review.
type SubmitReviewRequest struct {
	EstablishmentID string  `json:"establishment_id" validate:"omitempty,max=64"`
	PosSystemID     string  `json:"pos_system_id" validate:"omitempty,max=64"`
	Content         string  `json:"content" validate:"max=5000"`
	Pros            *string `json:"pros" validate:"omitempty,max=2000"`
	Cons            *string `json:"cons" validate:"omitempty,max=2000"`
}

// ModerateReviewRequest is the JSON request body for moderating a review.
type ModerateReviewRequest struct {
	Status string `json:"status" validate:"required"`
}

// RespondToReviewRequest is the JSON request body for responding to a review.
type RespondToReviewRequest struct {
	Content string `json:"content" validate:"max=5000"`
}

// --- Handlers ---

// SubmitReview handles POST /api/v1/review
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req SubmitReviewRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	target, err := domain.NewTarget(req.EstablishmentID, req.PosSystemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	review, err := h.service.SubmitReview(r.Context(), callerFrom(r), service.ReviewInput{
		Target:  target,
		Content: req.Content,
		Pros:    req.Pros,
		Cons:    req.Cons,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, review)
}

// ListPending handles GET /api/v1/review/pending
func (h *ReviewHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	reviews, total, err := h.service.ListPending(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(reviews, total, params))
}

// ModerateReview handles PATCH /api/v1/review/{id}/moderate
func (h *ReviewHandler) ModerateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.URLParamUUID(w, r, "id")
	if !ok {
		return
	}

	var req ModerateReviewRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	review, err := h.service.Moderate(r.Context(), id, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/v1/review/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.URLParamUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), callerFrom(r), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RespondToReview handles POST /api/v1/review/{id}/responses
func (h *ReviewHandler) RespondToReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.URLParamUUID(w, r, "id")
	if !ok {
		return
	}

	var req RespondToReviewRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	resp, err := h.service.RespondToReview(r.Context(), callerFrom(r), id, req.Content)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, resp)
}

// ListResponses handles GET /api/v1/review/{id}/responses
func (h *ReviewHandler) ListResponses(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.URLParamUUID(w, r, "id")
	if !ok {
		return
	}

	responses, err := h.service.ListResponses(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, responses)
}

// ListEntityReviews handles GET /api/v1/review/entity/{entityKind}/{id}
func (h *ReviewHandler) ListEntityReviews(w http.ResponseWriter, r *http.Request) {
	target, err := targetFromPath(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	params := pagination.FromRequest(r)

	reviews, total, err := h.service.ListEntityReviews(r.Context(), target, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(reviews, total, params))
}
