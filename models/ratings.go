package models

import "time"

// AnonymousUsername replaces the author of comments posted anonymously.
const AnonymousUsername = "Anonymous"

// CommentContent is the liked/disliked pair of a free-text review.
type CommentContent struct {
	Liked    string `json:"liked" bson:"liked"`
	Disliked string `json:"disliked" bson:"disliked"`
}

type Comment struct {
	Username string         `json:"username" bson:"username"`
	Rating   int            `json:"rating,omitempty" bson:"rating,omitempty"`
	Content  CommentContent `json:"content" bson:"content"`
	Date     time.Time      `json:"date" bson:"date"`
}

// Ratings is shared by every rateable entity (itineraries, tour guides, activities).
type Ratings struct {
	Rating     float64   `json:"rating" bson:"rating"`
	AllRatings []int     `json:"allRatings" bson:"allRatings"`
	Comments   []Comment `json:"comments" bson:"comments"`
}
