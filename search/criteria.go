package search

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"tripgenie/errs"
	"tripgenie/utils"
)

type SortKey string

const (
	SortNone   SortKey = ""
	SortPrice  SortKey = "price"
	SortRating SortKey = "rating"
)

// Criteria are independent and optional; a zero Criteria keeps everything.
type Criteria struct {
	Budget    *float64
	LowerDate *time.Time
	UpperDate *time.Time
	Types     []string
	Languages []string
	SearchBy  string
	SortBy    SortKey
	Desc      bool

	// UpcomingOnly drops itineraries whose every available date has passed.
	// Set for public browsing, never taken from the query string.
	UpcomingOnly bool
}

// ParseCriteria reads budget, lowerDate, upperDate, types, languages,
// searchBy, sortBy and order from q.
func ParseCriteria(q url.Values) (Criteria, error) {
	var c Criteria

	if s := strings.TrimSpace(q.Get("budget")); s != "" {
		b, err := strconv.ParseFloat(s, 64)
		if err != nil || b < 0 {
			return c, errs.Validation("invalid budget %q", s)
		}
		c.Budget = &b
	}
	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"lowerDate", &c.LowerDate}, {"upperDate", &c.UpperDate}} {
		s := strings.TrimSpace(q.Get(p.key))
		if s == "" {
			continue
		}
		d := utils.ParseDate(s)
		if d == nil {
			return c, errs.Validation("invalid %s %q", p.key, s)
		}
		*p.dst = d
	}
	if c.LowerDate != nil && c.UpperDate != nil && c.UpperDate.Before(*c.LowerDate) {
		return c, errs.Validation("upperDate is before lowerDate")
	}

	c.Types = utils.SplitTags(strings.Join(q["types"], ","))
	c.Languages = utils.SplitTags(strings.Join(q["languages"], ","))
	c.SearchBy = strings.TrimSpace(q.Get("searchBy"))

	switch SortKey(q.Get("sortBy")) {
	case SortNone:
	case SortPrice:
		c.SortBy = SortPrice
	case SortRating:
		c.SortBy = SortRating
	default:
		return c, errs.Validation("cannot sort by %q", q.Get("sortBy"))
	}
	switch strings.ToLower(q.Get("order")) {
	case "", "asc", "1":
	case "desc", "-1":
		c.Desc = true
	default:
		return c, errs.Validation("invalid order %q", q.Get("order"))
	}
	return c, nil
}
