package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tripgenie/errs"
	"tripgenie/models"
)

func (m *Mongo) InsertBooking(ctx context.Context, b models.ItineraryBooking) error {
	if _, err := m.BookingsCollection.InsertOne(ctx, b); err != nil {
		if isDuplicateKeyError(err) {
			return errs.Conflict("booking %s already exists", b.ID)
		}
		return fmt.Errorf("inserting booking: %w", err)
	}
	return nil
}

func (m *Mongo) FindBooking(ctx context.Context, id string) (models.ItineraryBooking, error) {
	var b models.ItineraryBooking
	err := findOne(ctx, m.BookingsCollection, bson.M{"_id": id}, &b, "booking", id)
	return b, err
}

func (m *Mongo) FindBookings(ctx context.Context, f BookingFilter) ([]models.ItineraryBooking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	bs, err := findAll[models.ItineraryBooking](ctx, m.BookingsCollection, f.BSON(), opts)
	if err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}
	return bs, nil
}

func (m *Mongo) DeleteBooking(ctx context.Context, id, tourist string) (bool, error) {
	res, err := m.BookingsCollection.DeleteOne(ctx, bson.M{"_id": id, "tourist": tourist})
	if err != nil {
		return false, fmt.Errorf("deleting booking %s: %w", id, err)
	}
	return res.DeletedCount == 1, nil
}
