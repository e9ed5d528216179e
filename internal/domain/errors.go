package domain

import (
	"fmt"
	"net/http"

	apperrors "github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/errors"
)

// Domain sentinels. Each wraps the matching pkg/errors sentinel so callers can
// test for either level with errors.Is.
var (
	ErrInvalidTarget      = fmt.Errorf("%w: exactly one of establishment_id or pos_system_id is required", apperrors.ErrInvalidInput)
	ErrInvalidScore       = fmt.Errorf("%w: score must be an integer between %d and %d", apperrors.ErrInvalidInput, MinScore, MaxScore)
	ErrInvalidContent     = fmt.Errorf("%w: content must not be empty", apperrors.ErrInvalidInput)
	ErrInvalidStatus      = fmt.Errorf("%w: status must be APPROVED or REJECTED", apperrors.ErrInvalidInput)
	ErrReviewNotFound     = fmt.Errorf("review %w", apperrors.ErrNotFound)
	ErrEntityNotFound     = fmt.Errorf("entity %w", apperrors.ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("user %w", apperrors.ErrNotFound)
	ErrNotAuthorized      = fmt.Errorf("%w: caller may not act on this review", apperrors.ErrForbidden)
	ErrDuplicateReview    = fmt.Errorf("%w: a review for this entity already exists", apperrors.ErrConflict)
	ErrInvalidTransition  = fmt.Errorf("%w: review status transition not allowed", apperrors.ErrConflict)
	ErrAggregationPending = fmt.Errorf("%w: aggregate recomputation pending", apperrors.ErrInternal)
)

// Constructors returning *apperrors.AppError with the codes the HTTP layer
// exposes.

func InvalidTarget() *apperrors.AppError {
	return apperrors.New("INVALID_TARGET", "exactly one of establishment_id or pos_system_id is required", http.StatusBadRequest, ErrInvalidTarget)
}

func InvalidScore() *apperrors.AppError {
	return apperrors.New("INVALID_SCORE", fmt.Sprintf("score must be an integer between %d and %d", MinScore, MaxScore), http.StatusBadRequest, ErrInvalidScore)
}

func InvalidContent() *apperrors.AppError {
	return apperrors.New("INVALID_CONTENT", "content must not be empty", http.StatusBadRequest, ErrInvalidContent)
}

func InvalidStatus(status string) *apperrors.AppError {
	return apperrors.New("INVALID_STATUS", fmt.Sprintf("status %q is not a moderation outcome, use APPROVED or REJECTED", status), http.StatusBadRequest, ErrInvalidStatus)
}

func ReviewNotFound(id string) *apperrors.AppError {
	return apperrors.New("REVIEW_NOT_FOUND", fmt.Sprintf("review %s not found", id), http.StatusNotFound, ErrReviewNotFound)
}

func EntityNotFound(t Target) *apperrors.AppError {
	return apperrors.New("ENTITY_NOT_FOUND", fmt.Sprintf("%s %s not found", t.Kind, t.ID), http.StatusNotFound, ErrEntityNotFound)
}

// UserNotFound reports a caller whose token is valid but who has no users row.
func UserNotFound(id string) *apperrors.AppError {
	return apperrors.New("USER_NOT_FOUND", fmt.Sprintf("user %s not found", id), http.StatusNotFound, ErrUserNotFound)
}

func NotAuthorized() *apperrors.AppError {
	return apperrors.New("NOT_AUTHORIZED", "you are not allowed to perform this action", http.StatusForbidden, ErrNotAuthorized)
}

func DuplicateReview() *apperrors.AppError {
	return apperrors.New("DUPLICATE_REVIEW", "you have already reviewed this entity", http.StatusConflict, ErrDuplicateReview)
}

func InvalidTransition(from, to ReviewStatus) *apperrors.AppError {
	return apperrors.New("INVALID_TRANSITION", fmt.Sprintf("cannot move review from %s to %s", from, to), http.StatusConflict, ErrInvalidTransition)
}

// AggregationPending carries cause for logging; clients only see the generic
// message.
func AggregationPending(cause error) *apperrors.AppError {
	return apperrors.New("AGGREGATION_PENDING", "rating saved, aggregate update is pending", http.StatusInternalServerError,
		fmt.Errorf("%w: %w", ErrAggregationPending, cause))
}
