package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Role is the closed set of account kinds. Guest is the zero value and stands
// for an unauthenticated viewer; it never appears on a stored account.
type Role uint8

const (
	Guest Role = iota
	Tourist
	TourGuide
	Advertiser
	Seller
	Admin
	TourismGovernor
)

// Roles lists every role that owns a route prefix.
var Roles = []Role{Guest, Tourist, TourGuide, Advertiser, Seller, Admin, TourismGovernor}

var roleNames = [...]string{
	Guest:           "guest",
	Tourist:         "tourist",
	TourGuide:       "tour-guide",
	Advertiser:      "advertiser",
	Seller:          "seller",
	Admin:           "admin",
	TourismGovernor: "tourism-governor",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// ParseRole accepts the route-prefix spelling ("tour-guide") as well as the
// camel-case spelling used in tokens ("tourGuide").
func ParseRole(s string) (Role, bool) {
	switch s {
	case "guest", "":
		return Guest, true
	case "tourist":
		return Tourist, true
	case "tour-guide", "tourGuide":
		return TourGuide, true
	case "advertiser":
		return Advertiser, true
	case "seller":
		return Seller, true
	case "admin":
		return Admin, true
	case "tourism-governor", "tourismGovernor":
		return TourismGovernor, true
	}
	return Guest, false
}

// AuthorsItineraries reports whether the role may create itineraries.
func (r Role) AuthorsItineraries() bool { return r == TourGuide }

// Books reports whether the role may book and cancel itineraries.
func (r Role) Books() bool { return r == Tourist }

// Reviews reports whether the role may rate and comment.
func (r Role) Reviews() bool { return r == Tourist }

// Moderates reports whether the role may set the appropriate flag and delete
// other accounts.
func (r Role) Moderates() bool { return r == Admin }

// RequiresAcceptance reports whether the account must be accepted by an admin
// before it can use its profile or publish content.
func (r Role) RequiresAcceptance() bool { return r == Advertiser || r == Seller }

// HasPreferredCurrency reports whether prices are converted for this role.
func (r Role) HasPreferredCurrency() bool { return r == Tourist }

type ListingScope uint8

const (
	ScopePublic ListingScope = iota // activated, appropriate, not entirely past
	ScopeOwn                        // the requester's own itineraries
	ScopeAll                        // administrative listing
)

func (r Role) ListingScope() ListingScope {
	switch r {
	case TourGuide:
		return ScopeOwn
	case Admin:
		return ScopeAll
	}
	return ScopePublic
}

// Content is the kind of entity an account owns.
type Content uint8

const (
	OwnsNothing Content = iota
	OwnsItineraries
	OwnsActivities
	OwnsProducts
)

func (r Role) Owns() Content {
	switch r {
	case TourGuide:
		return OwnsItineraries
	case Advertiser:
		return OwnsActivities
	case Seller:
		return OwnsProducts
	}
	return OwnsNothing
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(b []byte) error {
	parsed, ok := ParseRole(string(b))
	if !ok {
		return fmt.Errorf("unknown role %q", b)
	}
	*r = parsed
	return nil
}

func (r Role) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(r.String())
}

func (r *Role) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	s, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("role: expected string, got %s", t)
	}
	return r.UnmarshalText([]byte(s))
}
