package ratings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripgenie/errs"
	"tripgenie/models"
)

func TestAddRating(t *testing.T) {
	var r models.Ratings

	avg, err := AddRating(&r, 4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)

	avg, err = AddRating(&r, 5)
	require.NoError(t, err)
	assert.Equal(t, 4.5, avg)

	avg, err = AddRating(&r, 3)
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, []int{4, 5, 3}, r.AllRatings)
	assert.Equal(t, 4.0, r.Rating)
}

func TestAddRatingOutOfRange(t *testing.T) {
	r := models.Ratings{Rating: 5, AllRatings: []int{5}}
	for _, bad := range []int{0, 6, -1} {
		_, err := AddRating(&r, bad)
		assert.ErrorIs(t, err, errs.ErrValidation)
	}
	assert.Equal(t, []int{5}, r.AllRatings, "rejected ratings are not recorded")
	assert.Equal(t, 5.0, r.Rating)
}

func TestAverage(t *testing.T) {
	assert.Equal(t, 0.0, Average(nil))
	assert.Equal(t, 0.0, Average([]int{}))
	assert.InDelta(t, 3.6667, Average([]int{5, 5, 1}), 1e-4)
}

func TestNewComment(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	content := models.CommentContent{Liked: " the food ", Disliked: ""}

	c, err := NewComment("amira", false, 0, content, now)
	require.NoError(t, err)
	assert.Equal(t, "amira", c.Username)
	assert.Equal(t, "the food", c.Content.Liked)
	assert.Equal(t, now, c.Date)

	c, err = NewComment("amira", true, 4, content, now)
	require.NoError(t, err)
	assert.Equal(t, models.AnonymousUsername, c.Username)
	assert.Equal(t, 4, c.Rating)

	_, err = NewComment("amira", false, 0, models.CommentContent{Liked: "  "}, now)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = NewComment("amira", false, 9, content, now)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestAddCommentAppends(t *testing.T) {
	var r models.Ratings
	AddComment(&r, models.Comment{Username: "a"})
	AddComment(&r, models.Comment{Username: "a"})
	assert.Len(t, r.Comments, 2)
}
