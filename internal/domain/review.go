package domain

import (
	"strings"
	"time"
)

// ReviewStatus is a review's moderation state.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "PENDING"
	ReviewStatusApproved ReviewStatus = "APPROVED"
	ReviewStatusRejected ReviewStatus = "REJECTED"
)

// ParseReviewStatus upper-cases s and reports whether it names a status.
func ParseReviewStatus(s string) (ReviewStatus, bool) {
	st := ReviewStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected:
		return st, true
	}
	return st, false
}

// IsTerminal reports whether the status is a moderation outcome.
func (s ReviewStatus) IsTerminal() bool {
	return s == ReviewStatusApproved || s == ReviewStatusRejected
}

// CheckTransition validates moving a review from s to next:
//
//	PENDING            -> APPROVED | REJECTED
//	X                  -> X (no-op, allowed)
//	APPROVED<->REJECTED only when allowRemoderation
//	*                  -> PENDING never
func (s ReviewStatus) CheckTransition(next ReviewStatus, allowRemoderation bool) error {
	if !next.IsTerminal() {
		return InvalidStatus(string(next))
	}
	if s == next || s == ReviewStatusPending {
		return nil
	}
	if allowRemoderation && s.IsTerminal() {
		return nil
	}
	return InvalidTransition(s, next)
}

// AffectsApprovedCount reports whether moving from s to next can change the
// number of approved reviews.
func (s ReviewStatus) AffectsApprovedCount(next ReviewStatus) bool {
	return s == ReviewStatusApproved || next == ReviewStatusApproved
}

// Review is free-text feedback awaiting or past moderation.
type Review struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Target    Target       `json:"target"`
	Content   string       `json:"content"`
	Pros      *string      `json:"pros,omitempty"`
	Cons      *string      `json:"cons,omitempty"`
	Status    ReviewStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// PendingReview is a queue entry shown to moderators.
type PendingReview struct {
	Review
	AuthorName string `json:"author_name"`
	TargetName string `json:"target_name"`
}

// PublishedReview is an approved review with its response thread.
type PublishedReview struct {
	Review
	AuthorName string           `json:"author_name"`
	Responses  []ReviewResponse `json:"responses"`
}

// ReviewResponse is a reply posted by the entity owner or an admin.
type ReviewResponse struct {
	ID        string    `json:"id"`
	ReviewID  string    `json:"review_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeContent trims s and rejects it when nothing is left.
func NormalizeContent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", InvalidContent()
	}
	return s, nil
}

// OptionalText trims s and returns nil for blank input.
func OptionalText(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
