package domain

import "time"

// ItineraryPayload is the body sent to the remote API when creating or
// updating an itinerary. The order of Places within a day is the visiting
// order and must be preserved on the wire.
type ItineraryPayload struct {
	Title string       `json:"title"`
	Days  []PayloadDay `json:"days"`
}

// PayloadDay is one day of an ItineraryPayload. Date is "2006-01-02".
type PayloadDay struct {
	Date   string         `json:"date"`
	Places []PayloadPlace `json:"places"`
}

// PayloadPlace references a catalog place by external ID.
type PayloadPlace struct {
	PlaceExternalID string `json:"placeExternalId"`
	Note            string `json:"note,omitempty"`
}

// ItinerarySummary is what the remote API returns after create/update.
type ItinerarySummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Itinerary is a saved itinerary as read back from the remote API.
// It is used to resume editing.
type Itinerary struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Days  []PayloadDay `json:"days"`
}
