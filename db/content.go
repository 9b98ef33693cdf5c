package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tripgenie/errs"
	"tripgenie/models"
)

func (m *Mongo) InsertActivity(ctx context.Context, a models.Activity) error {
	if _, err := m.ActivitiesCollection.InsertOne(ctx, a); err != nil {
		if isDuplicateKeyError(err) {
			return errs.Conflict("activity %s already exists", a.ID)
		}
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

func (m *Mongo) FindActivity(ctx context.Context, id string) (models.Activity, error) {
	var a models.Activity
	err := findOne(ctx, m.ActivitiesCollection, bson.M{"_id": id}, &a, "activity", id)
	return a, err
}

func (m *Mongo) FindActivities(ctx context.Context, f ActivityFilter) ([]models.Activity, error) {
	as, err := findAll[models.Activity](ctx, m.ActivitiesCollection, f.BSON())
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	return as, nil
}

func (m *Mongo) RateActivity(ctx context.Context, id string, rating int) (models.Activity, error) {
	var a models.Activity
	err := m.ActivitiesCollection.FindOneAndUpdate(ctx, bson.M{"_id": id}, ratePipeline(rating), returnAfter).Decode(&a)
	return a, notFound(err, "activity", id)
}

func (m *Mongo) CommentActivity(ctx context.Context, id string, c models.Comment) error {
	return pushComment(ctx, m.ActivitiesCollection, "activity", id, c)
}

func (m *Mongo) InsertProduct(ctx context.Context, p models.Product) error {
	if _, err := m.ProductsCollection.InsertOne(ctx, p); err != nil {
		if isDuplicateKeyError(err) {
			return errs.Conflict("product %s already exists", p.ID)
		}
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}

func (m *Mongo) FindProducts(ctx context.Context, seller string) ([]models.Product, error) {
	filter := bson.M{}
	if seller != "" {
		filter["seller"] = seller
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	ps, err := findAll[models.Product](ctx, m.ProductsCollection, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return ps, nil
}
