// Package cascade removes an account together with everything it owns.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"tripgenie/db"
	"tripgenie/errs"
	"tripgenie/logger"
	"tripgenie/models"
)

// Store is the slice of db.Store the coordinator needs.
type Store interface {
	FindItineraries(ctx context.Context, f db.ItineraryFilter) ([]models.Itinerary, error)
	FindActivities(ctx context.Context, f db.ActivityFilter) ([]models.Activity, error)
	FindProducts(ctx context.Context, seller string) ([]models.Product, error)
	InsertItinerary(ctx context.Context, it models.Itinerary) error
	PatchItinerary(ctx context.Context, id, owner string, p db.ItineraryPatch) (models.Itinerary, error)
	InsertActivity(ctx context.Context, a models.Activity) error
	InsertProduct(ctx context.Context, p models.Product) error
	InsertAccount(ctx context.Context, a models.Account) error
	db.Cascader
	Atomically(ctx context.Context, fn func(ctx context.Context) error) error
}

// Result counts what a cascade removed.
type Result struct {
	Itineraries int64 `json:"itineraries"`
	Activities  int64 `json:"activities"`
	Unlinked    int64 `json:"unlinkedItineraries"`
	Products    int64 `json:"products"`
}

type Coordinator struct {
	store Store
	log   log.Logger
}

func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{store: store, log: logger.With("cascade")}
}

// plan is decided before anything is written. It keeps what it removes so
// that a store without transactions can put it back.
type plan struct {
	itineraries []models.Itinerary
	activities  []models.Activity
	activityIDs []string
	linked      []models.Itinerary // itineraries referencing the activities
	products    []models.Product
}

// OnAccountDeleted deletes acc and its dependents as one unit. A tour guide
// with any booked itinerary is refused with Conflict before anything is
// removed; advertisers and sellers lose their content unconditionally.
func (c *Coordinator) OnAccountDeleted(ctx context.Context, acc models.Account) (Result, error) {
	p, err := c.plan(ctx, acc)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = c.store.Atomically(ctx, func(ctx context.Context) error {
		res = Result{}
		switch acc.Role.Owns() {
		case models.OwnsItineraries:
			n, err := c.store.DeleteUnbookedItineraries(ctx, acc.ID)
			if err != nil {
				return err
			}
			db.OnRollback(ctx, func(ctx context.Context) error {
				return restore(ctx, p.itineraries, c.store.InsertItinerary)
			})
			// a booking landed between plan and apply
			if n != int64(len(p.itineraries)) {
				return errs.Conflict("tour guide %s gained a booked itinerary while being deleted", acc.Username)
			}
			res.Itineraries = n
		case models.OwnsActivities:
			n, err := c.store.DeleteActivities(ctx, acc.ID)
			if err != nil {
				return err
			}
			db.OnRollback(ctx, func(ctx context.Context) error {
				return restore(ctx, p.activities, c.store.InsertActivity)
			})
			res.Activities = n
			if res.Unlinked, err = c.store.PullActivityRefs(ctx, p.activityIDs); err != nil {
				return err
			}
			db.OnRollback(ctx, func(ctx context.Context) error {
				for _, it := range p.linked {
					if _, err := c.store.PatchItinerary(ctx, it.ID, it.TourGuide, db.ItineraryPatch{Activities: it.Activities}); err != nil && !errors.Is(err, errs.ErrNotFound) {
						return err
					}
				}
				return nil
			})
		case models.OwnsProducts:
			n, err := c.store.DeleteProducts(ctx, acc.ID)
			if err != nil {
				return err
			}
			db.OnRollback(ctx, func(ctx context.Context) error {
				return restore(ctx, p.products, c.store.InsertProduct)
			})
			res.Products = n
		}
		ok, err := c.store.DeleteAccount(ctx, acc.ID)
		if err != nil {
			return err
		}
		if !ok {
			return errs.NotFound("account %s not found", acc.ID)
		}
		db.OnRollback(ctx, func(ctx context.Context) error {
			return c.store.InsertAccount(ctx, acc)
		})
		return nil
	})
	if err != nil {
		level.Warn(c.log).Log("msg", "cascade aborted", "account", acc.ID, "role", acc.Role, "err", err)
		return Result{}, err
	}
	level.Info(c.log).Log("msg", "account deleted", "account", acc.ID, "role", acc.Role,
		"itineraries", res.Itineraries, "activities", res.Activities, "products", res.Products)
	return res, nil
}

func (c *Coordinator) plan(ctx context.Context, acc models.Account) (plan, error) {
	var p plan
	switch acc.Role.Owns() {
	case models.OwnsItineraries:
		owned, err := c.store.FindItineraries(ctx, db.ItineraryFilter{TourGuide: acc.ID})
		if err != nil {
			return p, fmt.Errorf("planning cascade: %w", err)
		}
		for _, it := range owned {
			if it.IsBooked {
				return p, errs.Conflict("itinerary %q is booked; tour guide %s cannot be deleted", it.Title, acc.Username)
			}
		}
		p.itineraries = owned
	case models.OwnsActivities:
		owned, err := c.store.FindActivities(ctx, db.ActivityFilter{Advertiser: acc.ID})
		if err != nil {
			return p, fmt.Errorf("planning cascade: %w", err)
		}
		p.activities = owned
		for _, a := range owned {
			p.activityIDs = append(p.activityIDs, a.ID)
		}
		if len(owned) == 0 {
			break
		}
		all, err := c.store.FindItineraries(ctx, db.ItineraryFilter{})
		if err != nil {
			return p, fmt.Errorf("planning cascade: %w", err)
		}
		for _, it := range all {
			if slices.ContainsFunc(it.Activities, func(id string) bool { return slices.Contains(p.activityIDs, id) }) {
				p.linked = append(p.linked, it)
			}
		}
	case models.OwnsProducts:
		owned, err := c.store.FindProducts(ctx, acc.ID)
		if err != nil {
			return p, fmt.Errorf("planning cascade: %w", err)
		}
		p.products = owned
	}
	return p, nil
}

// restore reinserts docs, skipping the ones that are still there.
func restore[T any](ctx context.Context, docs []T, insert func(context.Context, T) error) error {
	for _, d := range docs {
		if err := insert(ctx, d); err != nil && !errors.Is(err, errs.ErrConflict) {
			return err
		}
	}
	return nil
}
