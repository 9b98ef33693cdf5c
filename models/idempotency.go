package models

import "time"

// IdempotencyRecord remembers the first response to a request carrying an
// Idempotency-Key so retries replay it instead of booking twice.
type IdempotencyRecord struct {
	Key         string              `json:"key" bson:"key"`
	Method      string              `json:"method" bson:"method"`
	Path        string              `json:"path" bson:"path"`
	UserID      string              `json:"userId" bson:"userId"`
	RequestHash string              `json:"requestHash" bson:"requestHash"`
	Response    *IdempotentResponse `json:"response,omitempty" bson:"response,omitempty"`
	CreatedAt   time.Time           `json:"createdAt" bson:"createdAt"`
	ExpiresAt   time.Time           `json:"expiresAt" bson:"expiresAt"`
}

type IdempotentResponse struct {
	Status int    `json:"status" bson:"status"`
	Body   []byte `json:"body" bson:"body"`
}
