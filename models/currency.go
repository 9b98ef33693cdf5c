package models

// Currency is read-only reference data.
type Currency struct {
	ID     string `json:"id" bson:"_id"`
	Code   string `json:"code" bson:"code"`
	Symbol string `json:"symbol" bson:"symbol"`
	Name   string `json:"name" bson:"name"`
}
