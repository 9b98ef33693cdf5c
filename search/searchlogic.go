// Package search composes the itinerary filters, the free-text match and the
// sort used by every itinerary listing.
package search

import (
	"sort"
	"strings"
	"time"

	"tripgenie/availability"
	"tripgenie/models"
	"tripgenie/utils"
)

// Entry is an itinerary with its activities resolved.
type Entry struct {
	Itinerary  models.Itinerary
	Activities []models.Activity
}

// Compose applies c to corpus. The structured predicates and the free-text
// match are two separate passes over corpus whose results are intersected,
// since the text also matches activity tags and categories that the
// structured query does not project. The result is then sorted; entries with
// equal keys come back in no particular order.
func Compose(corpus []Entry, c Criteria, now time.Time) []Entry {
	out := Filter(corpus, c)
	if c.SearchBy != "" {
		out = intersect(out, Match(corpus, c.SearchBy))
	}
	if c.UpcomingOnly {
		out = upcoming(out, now)
	}
	Sort(out, c.SortBy, c.Desc)
	return out
}

// Filter keeps the entries passing every structured predicate of c.
func Filter(corpus []Entry, c Criteria) []Entry {
	types := lowerSet(c.Types)
	languages := lowerSet(c.Languages)

	out := make([]Entry, 0, len(corpus))
	for _, e := range corpus {
		it := e.Itinerary
		if c.Budget != nil && it.Price > *c.Budget {
			continue
		}
		if !availability.WithinWindow(it.AvailableDates, c.LowerDate, c.UpperDate) {
			continue
		}
		if len(types) > 0 && !hasCategory(e.Activities, types) {
			continue
		}
		if len(languages) > 0 {
			if _, ok := languages[strings.ToLower(it.Language)]; !ok {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Match scans corpus for entries whose title, or any activity tag or
// category, contains text (case-insensitive).
func Match(corpus []Entry, text string) []Entry {
	text = strings.TrimSpace(text)
	out := make([]Entry, 0)
	for _, e := range corpus {
		if matchesText(e, text) {
			out = append(out, e)
		}
	}
	return out
}

func matchesText(e Entry, text string) bool {
	if utils.ContainsIgnoreCase(e.Itinerary.Title, text) {
		return true
	}
	for _, a := range e.Activities {
		for _, tag := range a.Tags {
			if utils.ContainsIgnoreCase(tag, text) {
				return true
			}
		}
		for _, cat := range a.Category {
			if utils.ContainsIgnoreCase(cat, text) {
				return true
			}
		}
	}
	return false
}

// Sort orders entries in place by key. SortNone leaves them as they are.
func Sort(entries []Entry, key SortKey, desc bool) {
	var value func(models.Itinerary) float64
	switch key {
	case SortPrice:
		value = func(it models.Itinerary) float64 { return it.Price }
	case SortRating:
		value = func(it models.Itinerary) float64 { return it.Rating }
	default:
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := value(entries[i].Itinerary), value(entries[j].Itinerary)
		if desc {
			return a > b
		}
		return a < b
	})
}

func upcoming(entries []Entry, now time.Time) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if availability.IsAvailable(e.Itinerary.AvailableDates, now) {
			out = append(out, e)
		}
	}
	return out
}

func intersect(base, other []Entry) []Entry {
	ids := make(map[string]struct{}, len(other))
	for _, e := range other {
		ids[e.Itinerary.ID] = struct{}{}
	}
	out := make([]Entry, 0, len(base))
	for _, e := range base {
		if _, ok := ids[e.Itinerary.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}

func hasCategory(activities []models.Activity, want map[string]struct{}) bool {
	for _, a := range activities {
		for _, cat := range a.Category {
			if _, ok := want[strings.ToLower(cat)]; ok {
				return true
			}
		}
	}
	return false
}

func lowerSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}
