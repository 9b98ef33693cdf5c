package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"tripgenie/models"
)

func (m *Mongo) ReserveIdempotencyKey(ctx context.Context, rec models.IdempotencyRecord) (*models.IdempotencyRecord, error) {
	_, err := m.IdempotencyCollection.InsertOne(ctx, rec)
	if err == nil {
		return nil, nil
	}
	if !isDuplicateKeyError(err) {
		return nil, fmt.Errorf("reserving idempotency key: %w", err)
	}
	var existing models.IdempotencyRecord
	if err := m.IdempotencyCollection.FindOne(ctx, bson.M{"key": rec.Key}).Decode(&existing); err != nil {
		return nil, fmt.Errorf("loading idempotency record: %w", err)
	}
	return &existing, nil
}

func (m *Mongo) SaveIdempotentResponse(ctx context.Context, key string, resp models.IdempotentResponse) error {
	_, err := m.IdempotencyCollection.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$set": bson.M{"response": resp}})
	if err != nil {
		return fmt.Errorf("saving idempotent response: %w", err)
	}
	return nil
}
