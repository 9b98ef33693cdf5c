package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tripgenie/errs"
	"tripgenie/models"
)

func (m *Mongo) InsertItinerary(ctx context.Context, it models.Itinerary) error {
	if _, err := m.ItineraryCollection.InsertOne(ctx, it); err != nil {
		if isDuplicateKeyError(err) {
			return errs.Conflict("itinerary %s already exists", it.ID)
		}
		return fmt.Errorf("inserting itinerary: %w", err)
	}
	return nil
}

func (m *Mongo) FindItinerary(ctx context.Context, id string) (models.Itinerary, error) {
	var it models.Itinerary
	err := findOne(ctx, m.ItineraryCollection, bson.M{"_id": id}, &it, "itinerary", id)
	return it, err
}

func (m *Mongo) FindItineraries(ctx context.Context, f ItineraryFilter) ([]models.Itinerary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	its, err := findAll[models.Itinerary](ctx, m.ItineraryCollection, f.BSON(), opts)
	if err != nil {
		return nil, fmt.Errorf("listing itineraries: %w", err)
	}
	return its, nil
}

func (m *Mongo) PatchItinerary(ctx context.Context, id, owner string, p ItineraryPatch) (models.Itinerary, error) {
	var it models.Itinerary
	err := m.ItineraryCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "tourGuide": owner},
		bson.M{"$set": p.setDoc(m.now())},
		returnAfter,
	).Decode(&it)
	return it, notFound(err, "itinerary", id)
}

func (m *Mongo) DeleteUnbookedItinerary(ctx context.Context, id, owner string) (bool, error) {
	res, err := m.ItineraryCollection.DeleteOne(ctx, bson.M{"_id": id, "tourGuide": owner, "isBooked": false})
	if err != nil {
		return false, fmt.Errorf("deleting itinerary %s: %w", id, err)
	}
	return res.DeletedCount == 1, nil
}

func (m *Mongo) ToggleActivation(ctx context.Context, id, owner string) (models.Itinerary, error) {
	toggle := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"isActivated": bson.M{"$not": bson.A{"$isActivated"}},
			"updatedAt":   m.now(),
		}}},
	}
	var it models.Itinerary
	err := m.ItineraryCollection.FindOneAndUpdate(ctx, bson.M{"_id": id, "tourGuide": owner}, toggle, returnAfter).Decode(&it)
	return it, notFound(err, "itinerary", id)
}

func (m *Mongo) SetAppropriate(ctx context.Context, id string, appropriate bool) (models.Itinerary, error) {
	var it models.Itinerary
	err := m.ItineraryCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"appropriate": appropriate, "updatedAt": m.now()}},
		returnAfter,
	).Decode(&it)
	return it, notFound(err, "itinerary", id)
}

func (m *Mongo) AdjustBookingCount(ctx context.Context, id string, delta int) (models.Itinerary, error) {
	count := bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$bookingCount", 0}}, delta}}}}
	adjust := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"bookingCount": count, "updatedAt": m.now()}}},
		{{Key: "$set", Value: bson.M{"isBooked": bson.M{"$gt": bson.A{"$bookingCount", 0}}}}},
	}
	var it models.Itinerary
	err := m.ItineraryCollection.FindOneAndUpdate(ctx, bson.M{"_id": id}, adjust, returnAfter).Decode(&it)
	return it, notFound(err, "itinerary", id)
}

func (m *Mongo) RateItinerary(ctx context.Context, id string, rating int) (models.Itinerary, error) {
	var it models.Itinerary
	err := m.ItineraryCollection.FindOneAndUpdate(ctx, bson.M{"_id": id}, ratePipeline(rating), returnAfter).Decode(&it)
	return it, notFound(err, "itinerary", id)
}

func (m *Mongo) CommentItinerary(ctx context.Context, id string, c models.Comment) error {
	return pushComment(ctx, m.ItineraryCollection, "itinerary", id, c)
}

// ratePipeline appends rating to allRatings and recomputes the average in the
// same write, so concurrent ratings never lose each other.
func ratePipeline(rating int) mongo.Pipeline {
	all := bson.M{"$concatArrays": bson.A{bson.M{"$ifNull": bson.A{"$allRatings", bson.A{}}}, bson.A{rating}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"allRatings": all}}},
		{{Key: "$set", Value: bson.M{"rating": bson.M{"$avg": "$allRatings"}}}},
	}
}

func pushComment(ctx context.Context, coll *mongo.Collection, what, id string, c models.Comment) error {
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"comments": c}})
	if err != nil {
		return fmt.Errorf("commenting on %s %s: %w", what, id, err)
	}
	if res.MatchedCount == 0 {
		return notFound(mongo.ErrNoDocuments, what, id)
	}
	return nil
}
