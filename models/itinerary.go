package models

import "time"

// TimeSlot is one bookable window on an available date, as "HH:MM" strings.
type TimeSlot struct {
	StartTime string `json:"startTime" bson:"startTime" validate:"required"`
	EndTime   string `json:"endTime" bson:"endTime" validate:"required"`
}

// AvailableDate is a calendar date with one or more time slots.
type AvailableDate struct {
	Date  time.Time  `json:"date" bson:"date"`
	Times []TimeSlot `json:"times" bson:"times"`
}

// Itinerary is a bookable, multi-activity trip created by a tour guide.
type Itinerary struct {
	ID              string          `json:"id" bson:"_id"`
	Title           string          `json:"title" bson:"title"`
	Language        string          `json:"language" bson:"language"`
	Price           float64         `json:"price" bson:"price"`
	Currency        string          `json:"currency" bson:"currency"` // Currency.ID
	Timeline        string          `json:"timeline" bson:"timeline"`
	PickUpLocation  string          `json:"pickUpLocation" bson:"pickUpLocation"`
	DropOffLocation string          `json:"dropOffLocation" bson:"dropOffLocation"`
	Accessibility   bool            `json:"accessibility" bson:"accessibility"`
	AvailableDates  []AvailableDate `json:"availableDates" bson:"availableDates"`
	Activities      []string        `json:"activities" bson:"activities"` // Activity.ID refs
	TourGuide       string          `json:"tourGuide" bson:"tourGuide"`

	IsBooked     bool `json:"isBooked" bson:"isBooked"`
	BookingCount int  `json:"-" bson:"bookingCount"`
	IsActivated  bool `json:"isActivated" bson:"isActivated"`
	Appropriate  bool `json:"appropriate" bson:"appropriate"`

	Ratings `bson:",inline"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
