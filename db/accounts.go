package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"tripgenie/errs"
	"tripgenie/models"
)

func (m *Mongo) InsertAccount(ctx context.Context, a models.Account) error {
	if _, err := m.AccountsCollection.InsertOne(ctx, a); err != nil {
		if isDuplicateKeyError(err) {
			return errs.Conflict("account %s already exists", a.ID)
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

func (m *Mongo) FindAccount(ctx context.Context, id string) (models.Account, error) {
	var a models.Account
	err := findOne(ctx, m.AccountsCollection, bson.M{"_id": id}, &a, "account", id)
	return a, err
}

func (m *Mongo) UpdateProfile(ctx context.Context, id string, p models.Profile) (models.Account, error) {
	return m.updateAccount(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"profile": p}}, id)
}

func (m *Mongo) SetAccepted(ctx context.Context, id string, accepted bool) (models.Account, error) {
	return m.updateAccount(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isAccepted": accepted}}, id)
}

func (m *Mongo) AdjustWallet(ctx context.Context, id string, delta float64) (models.Account, error) {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["wallet"] = bson.M{"$gte": -delta}
	}
	a, err := m.updateAccount(ctx, filter, bson.M{"$inc": bson.M{"wallet": delta}}, id)
	if err == nil || delta >= 0 || !errors.Is(err, errs.ErrNotFound) {
		return a, err
	}
	// the debit missed: either no such account or not enough money
	if _, ferr := m.FindAccount(ctx, id); ferr != nil {
		return models.Account{}, ferr
	}
	return models.Account{}, errs.Conflict("insufficient wallet balance")
}

func (m *Mongo) RateAccount(ctx context.Context, id string, rating int) (models.Account, error) {
	var a models.Account
	err := m.AccountsCollection.FindOneAndUpdate(ctx, bson.M{"_id": id}, ratePipeline(rating), returnAfter).Decode(&a)
	return a, notFound(err, "account", id)
}

func (m *Mongo) CommentAccount(ctx context.Context, id string, c models.Comment) error {
	return pushComment(ctx, m.AccountsCollection, "account", id, c)
}

func (m *Mongo) updateAccount(ctx context.Context, filter, update bson.M, id string) (models.Account, error) {
	var a models.Account
	err := m.AccountsCollection.FindOneAndUpdate(ctx, filter, update, returnAfter).Decode(&a)
	return a, notFound(err, "account", id)
}

func (m *Mongo) InsertCurrency(ctx context.Context, c models.Currency) error {
	if _, err := m.CurrencyCollection.InsertOne(ctx, c); err != nil {
		if isDuplicateKeyError(err) {
			return errs.Conflict("currency %s already exists", c.ID)
		}
		return fmt.Errorf("inserting currency: %w", err)
	}
	return nil
}

func (m *Mongo) FindCurrency(ctx context.Context, id string) (models.Currency, error) {
	var c models.Currency
	err := findOne(ctx, m.CurrencyCollection, bson.M{"_id": id}, &c, "currency", id)
	return c, err
}
