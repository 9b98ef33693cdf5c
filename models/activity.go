package models

import "time"

// Activity is referenced (not owned) by itineraries and owned by an advertiser.
type Activity struct {
	ID         string    `json:"id" bson:"_id"`
	Name       string    `json:"name" bson:"name"`
	Category   []string  `json:"category" bson:"category"`
	Tags       []string  `json:"tags" bson:"tags"`
	Price      float64   `json:"price" bson:"price"`
	Pictures   []string  `json:"pictures" bson:"pictures"`
	Advertiser string    `json:"advertiser" bson:"advertiser"`
	Ratings    `bson:",inline"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// Product is owned by a seller. Only its ownership matters to this service.
type Product struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Price     float64   `json:"price" bson:"price"`
	Currency  string    `json:"currency" bson:"currency"`
	Seller    string    `json:"seller" bson:"seller"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
