package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

func (m *Mongo) DeleteUnbookedItineraries(ctx context.Context, tourGuide string) (int64, error) {
	res, err := m.ItineraryCollection.DeleteMany(ctx, bson.M{"tourGuide": tourGuide, "isBooked": false})
	if err != nil {
		return 0, fmt.Errorf("deleting itineraries of %s: %w", tourGuide, err)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) DeleteActivities(ctx context.Context, advertiser string) (int64, error) {
	res, err := m.ActivitiesCollection.DeleteMany(ctx, bson.M{"advertiser": advertiser})
	if err != nil {
		return 0, fmt.Errorf("deleting activities of %s: %w", advertiser, err)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) PullActivityRefs(ctx context.Context, activityIDs []string) (int64, error) {
	if len(activityIDs) == 0 {
		return 0, nil
	}
	res, err := m.ItineraryCollection.UpdateMany(ctx,
		bson.M{"activities": bson.M{"$in": activityIDs}},
		bson.M{"$pull": bson.M{"activities": bson.M{"$in": activityIDs}}},
	)
	if err != nil {
		return 0, fmt.Errorf("removing activity references: %w", err)
	}
	return res.ModifiedCount, nil
}

func (m *Mongo) DeleteProducts(ctx context.Context, seller string) (int64, error) {
	res, err := m.ProductsCollection.DeleteMany(ctx, bson.M{"seller": seller})
	if err != nil {
		return 0, fmt.Errorf("deleting products of %s: %w", seller, err)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) DeleteAccount(ctx context.Context, id string) (bool, error) {
	res, err := m.AccountsCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("deleting account %s: %w", id, err)
	}
	return res.DeletedCount == 1, nil
}
