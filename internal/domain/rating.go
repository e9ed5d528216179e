package domain

import "time"

const (
	MinScore = 1
	MaxScore = 5
)

// Rating is one user's score for one entity.
type Rating struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Target    Target    `json:"target"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateScore rejects scores outside [MinScore, MaxScore].
func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return InvalidScore()
	}
	return nil
}

// UserRating is the caller's own score; 0 means not rated.
type UserRating struct {
	Score int `json:"score"`
}

// RatingStats summarizes the ledger for one entity.
type RatingStats struct {
	AverageRating float64     `json:"average_rating"`
	TotalRatings  int         `json:"total_ratings"`
	Distribution  map[int]int `json:"distribution"`
}

// NewRatingStats builds stats from a score histogram. Scores outside
// [MinScore, MaxScore] are ignored; every valid score has a key.
func NewRatingStats(histogram map[int]int) RatingStats {
	stats := RatingStats{Distribution: make(map[int]int, MaxScore)}
	sum := 0
	for score := MinScore; score <= MaxScore; score++ {
		n := histogram[score]
		stats.Distribution[score] = n
		stats.TotalRatings += n
		sum += score * n
	}
	if stats.TotalRatings > 0 {
		stats.AverageRating = float64(sum) / float64(stats.TotalRatings)
	}
	return stats
}

// EntityAggregates are the denormalized fields stored on a rated entity.
type EntityAggregates struct {
	Target        Target  `json:"target"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}
