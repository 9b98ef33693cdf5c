package models

import "time"

type PaymentType string

const (
	CreditCard PaymentType = "CreditCard"
	DebitCard  PaymentType = "DebitCard"
	Wallet     PaymentType = "Wallet"
)

// Valid reports whether p is one of the accepted payment types.
func (p PaymentType) Valid() bool {
	switch p {
	case CreditCard, DebitCard, Wallet:
		return true
	}
	return false
}

// ItineraryBooking is a tourist's reservation of one slot of an itinerary.
type ItineraryBooking struct {
	ID              string      `json:"id" bson:"_id"`
	Itinerary       string      `json:"itinerary" bson:"itinerary"`
	Tourist         string      `json:"tourist" bson:"tourist"`
	NumberOfTickets int         `json:"numberOfTickets" bson:"numberOfTickets"`
	Date            time.Time   `json:"date" bson:"date"`
	Time            TimeSlot    `json:"time" bson:"time"`
	PaymentType     PaymentType `json:"paymentType" bson:"paymentType"`
	PaymentAmount   float64     `json:"paymentAmount" bson:"paymentAmount"`
	Currency        string      `json:"currency" bson:"currency"`
	CreatedAt       time.Time   `json:"createdAt" bson:"createdAt"`
}
