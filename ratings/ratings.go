// Package ratings accumulates star ratings and reviews on itineraries, tour
// guides and activities.
package ratings

import (
	"strings"
	"time"

	"tripgenie/errs"
	"tripgenie/models"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Validate fails with Validation unless r is within 1..5.
func Validate(r int) error {
	if r < MinRating || r > MaxRating {
		return errs.Validation("rating must be between %d and %d, got %d", MinRating, MaxRating, r)
	}
	return nil
}

// Average is the arithmetic mean of all, or 0 when there are none.
func Average(all []int) float64 {
	if len(all) == 0 {
		return 0
	}
	sum := 0
	for _, r := range all {
		sum += r
	}
	return float64(sum) / float64(len(all))
}

// AddRating appends r and recomputes the average, which it returns.
func AddRating(target *models.Ratings, r int) (float64, error) {
	if err := Validate(r); err != nil {
		return 0, err
	}
	target.AllRatings = append(target.AllRatings, r)
	target.Rating = Average(target.AllRatings)
	return target.Rating, nil
}

// AddComment appends c. Comments are never merged or replaced.
func AddComment(target *models.Ratings, c models.Comment) {
	target.Comments = append(target.Comments, c)
}

// NewComment builds a comment by username, or by "Anonymous" when anonymous
// is set. A zero rating means the comment carries none; any other value must
// be valid. At least one of liked and disliked is required.
func NewComment(username string, anonymous bool, rating int, content models.CommentContent, now time.Time) (models.Comment, error) {
	content.Liked = strings.TrimSpace(content.Liked)
	content.Disliked = strings.TrimSpace(content.Disliked)
	if content.Liked == "" && content.Disliked == "" {
		return models.Comment{}, errs.Validation("comment is empty")
	}
	if rating != 0 {
		if err := Validate(rating); err != nil {
			return models.Comment{}, err
		}
	}
	if anonymous {
		username = models.AnonymousUsername
	}
	return models.Comment{
		Username: username,
		Rating:   rating,
		Content:  content,
		Date:     now,
	}, nil
}
