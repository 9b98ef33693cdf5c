package itinerary

import (
	"context"

	"github.com/go-kit/log/level"

	"tripgenie/models"
	"tripgenie/pricing"
)

// pricer resolves display prices for one request: the rate table and the
// viewer's preferred currency are looked up at most once.
type pricer struct {
	s          *Service
	rates      pricing.Rates
	preferred  *models.Currency
	currencies map[string]models.Currency
}

func (s *Service) newPricer(ctx context.Context, v Viewer) *pricer {
	pr := &pricer{s: s, currencies: make(map[string]models.Currency)}
	if !v.Role.HasPreferredCurrency() || v.ID == "" {
		return pr
	}
	acc, err := s.store.FindAccount(ctx, v.ID)
	if err != nil || acc.PreferredCurrency == "" {
		return pr
	}
	cur, err := s.store.FindCurrency(ctx, acc.PreferredCurrency)
	if err != nil {
		level.Warn(s.log).Log("msg", "preferred currency lookup failed", "currency", acc.PreferredCurrency, "err", err)
		return pr
	}
	pr.preferred = &cur
	pr.rates = s.fetchRates(ctx)
	return pr
}

// fetchRates degrades to no table at all when the source is down; prices
// are then shown in their native currency.
func (s *Service) fetchRates(ctx context.Context) pricing.Rates {
	if s.rates == nil {
		return nil
	}
	rates, err := s.rates.Rates(ctx)
	if err != nil {
		s.metrics.RateFetches.WithLabelValues("error").Inc()
		level.Warn(s.log).Log("msg", "exchange rates unavailable, showing native prices", "err", err)
		return nil
	}
	s.metrics.RateFetches.WithLabelValues("ok").Inc()
	return rates
}

func (pr *pricer) price(ctx context.Context, amount float64, currencyID string) pricing.Price {
	native, ok := pr.currencies[currencyID]
	if !ok {
		var err error
		native, err = pr.s.store.FindCurrency(ctx, currencyID)
		if err != nil {
			native = models.Currency{ID: currencyID, Code: currencyID}
		}
		pr.currencies[currencyID] = native
	}
	return pricing.Resolve(amount, native, pr.preferred, pr.rates)
}
