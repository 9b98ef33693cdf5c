// Package profile manages accounts: the acceptance-gated profiles and content
// of advertisers and sellers, admin acceptance, and account deletion with
// everything the account owns.
package profile

import (
	"context"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"tripgenie/cascade"
	"tripgenie/db"
	"tripgenie/errs"
	"tripgenie/guard"
	"tripgenie/logger"
	"tripgenie/metrics"
	"tripgenie/models"
	"tripgenie/mq"
	"tripgenie/utils"
)

type Service struct {
	store   db.Store
	cascade *cascade.Coordinator
	events  mq.Emitter
	metrics *metrics.Metrics
	log     log.Logger

	Now func() time.Time
}

func NewService(store db.Store, events mq.Emitter, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		cascade: cascade.NewCoordinator(store),
		events:  events,
		metrics: m,
		log:     logger.With("profile"),
		Now:     time.Now,
	}
}

// accepted loads id and fails with NotAccepted while an admin has not yet
// accepted it.
func (s *Service) accepted(ctx context.Context, id string) (models.Account, error) {
	acc, err := s.store.FindAccount(ctx, id)
	if err != nil {
		return models.Account{}, err
	}
	return acc, guard.CheckAccepted(acc)
}

func (s *Service) Get(ctx context.Context, id string) (models.Account, error) {
	acc, err := s.accepted(ctx, id)
	if err != nil {
		return models.Account{}, err
	}
	return acc, nil
}

func (s *Service) Update(ctx context.Context, id string, p models.Profile) (models.Account, error) {
	if _, err := s.accepted(ctx, id); err != nil {
		return models.Account{}, err
	}
	if err := utils.ValidateStruct(p); err != nil {
		return models.Account{}, err
	}
	return s.store.UpdateProfile(ctx, id, p)
}

type ActivityInput struct {
	Name     string   `json:"name" validate:"required"`
	Category []string `json:"category" validate:"required,min=1,dive,required"`
	Tags     []string `json:"tags" validate:"dive,required"`
	Price    float64  `json:"price" validate:"gte=0"`
	Pictures []string `json:"pictures" validate:"dive,url"`
}

// CreateActivity publishes an activity owned by the advertiser id.
func (s *Service) CreateActivity(ctx context.Context, id string, in ActivityInput) (models.Activity, error) {
	acc, err := s.accepted(ctx, id)
	if err != nil {
		return models.Activity{}, err
	}
	if acc.Role.Owns() != models.OwnsActivities {
		return models.Activity{}, errs.Forbidden("only advertisers can publish activities")
	}
	if err := utils.ValidateStruct(in); err != nil {
		return models.Activity{}, err
	}
	a := models.Activity{
		ID:         utils.GetUUID(),
		Name:       strings.TrimSpace(in.Name),
		Category:   in.Category,
		Tags:       in.Tags,
		Price:      in.Price,
		Pictures:   in.Pictures,
		Advertiser: id,
		Ratings:    models.Ratings{AllRatings: []int{}, Comments: []models.Comment{}},
		CreatedAt:  s.Now().UTC(),
	}
	if err := s.store.InsertActivity(ctx, a); err != nil {
		return models.Activity{}, err
	}
	level.Info(s.log).Log("msg", "activity created", "id", a.ID, "advertiser", id)
	return a, nil
}

type ProductInput struct {
	Name     string  `json:"name" validate:"required"`
	Price    float64 `json:"price" validate:"gte=0"`
	Currency string  `json:"currency" validate:"required"`
}

// CreateProduct lists a product owned by the seller id.
func (s *Service) CreateProduct(ctx context.Context, id string, in ProductInput) (models.Product, error) {
	acc, err := s.accepted(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	if acc.Role.Owns() != models.OwnsProducts {
		return models.Product{}, errs.Forbidden("only sellers can list products")
	}
	if err := utils.ValidateStruct(in); err != nil {
		return models.Product{}, err
	}
	p := models.Product{
		ID:        utils.GetUUID(),
		Name:      strings.TrimSpace(in.Name),
		Price:     in.Price,
		Currency:  in.Currency,
		Seller:    id,
		CreatedAt: s.Now().UTC(),
	}
	if err := s.store.InsertProduct(ctx, p); err != nil {
		return models.Product{}, err
	}
	level.Info(s.log).Log("msg", "product created", "id", p.ID, "seller", id)
	return p, nil
}

// Accept lets an advertiser or seller start publishing.
func (s *Service) Accept(ctx context.Context, moderator models.Role, id string) (models.Account, error) {
	if !moderator.Moderates() {
		return models.Account{}, errs.Forbidden("only admins can accept accounts")
	}
	acc, err := s.store.FindAccount(ctx, id)
	if err != nil {
		return models.Account{}, err
	}
	if !acc.Role.RequiresAcceptance() {
		return models.Account{}, errs.Validation("%s accounts do not need acceptance", acc.Role)
	}
	return s.store.SetAccepted(ctx, id, true)
}

// Delete removes account id on behalf of requester, who must be that
// account or an admin. Owned content goes with it; a tour guide with booked
// itineraries cannot be deleted.
func (s *Service) Delete(ctx context.Context, requester string, role models.Role, id string) (cascade.Result, error) {
	if requester != id && !role.Moderates() {
		return cascade.Result{}, errs.Forbidden("you can only delete your own account")
	}
	acc, err := s.store.FindAccount(ctx, id)
	if err != nil {
		return cascade.Result{}, err
	}

	res, err := s.cascade.OnAccountDeleted(ctx, acc)
	outcome := "ok"
	switch {
	case err == nil:
	case errs.KindOf(err) == errs.KindConflict:
		outcome = "refused"
	default:
		outcome = "error"
	}
	s.metrics.Cascades.WithLabelValues(acc.Role.String(), outcome).Inc()
	if err != nil {
		return cascade.Result{}, err
	}

	s.events.Emit(ctx, mq.Event{Type: mq.AccountDeleted, Account: id})
	return res, nil
}
