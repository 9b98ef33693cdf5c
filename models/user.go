package models

import "time"

// Account is any registered user. Role-specific fields are left zero for
// roles that do not use them.
type Account struct {
	ID                string    `json:"id" bson:"_id"`
	Username          string    `json:"username" bson:"username"`
	Email             string    `json:"email" bson:"email"`
	Role              Role      `json:"role" bson:"role"`
	IsAccepted        bool      `json:"isAccepted" bson:"isAccepted"`
	PreferredCurrency string    `json:"preferredCurrency,omitempty" bson:"preferredCurrency,omitempty"`
	Wallet            float64   `json:"wallet" bson:"wallet"`
	Profile           Profile   `json:"profile" bson:"profile"`
	Ratings           `bson:",inline"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
}

// Profile holds the editable public details of advertisers, sellers and
// tour guides.
type Profile struct {
	Name        string `json:"name,omitempty" bson:"name,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	Website     string `json:"website,omitempty" bson:"website,omitempty" validate:"omitempty,url"`
	Hotline     string `json:"hotline,omitempty" bson:"hotline,omitempty"`
	Mobile      string `json:"mobile,omitempty" bson:"mobile,omitempty"`
}
