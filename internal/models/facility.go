// internal/models/facility.go
package models

import "time"

// MaxAFHCapacity is the licensed resident limit for a Washington adult family home.
const MaxAFHCapacity = 6

// FacilityLocation is the street address and point of a home.
type FacilityLocation struct {
	Address   string   `json:"address,omitempty"`
	City      string   `json:"city"`
	Zip       string   `json:"zip"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasPoint reports whether both coordinates are known.
func (l FacilityLocation) HasPoint() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Facility is the read-only description of an adult family home.
type Facility struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name"`
	LicenseNumber       string           `json:"licenseNumber,omitempty"`
	Description         string           `json:"description,omitempty"`
	Capacity            int              `json:"capacity"`
	AvailableBeds       int              `json:"availableBeds"`
	PriceMin            int              `json:"priceMin"`
	PriceMax            int              `json:"priceMax"`
	AcceptsMedicaid     bool             `json:"acceptsMedicaid"`
	AcceptsLTCInsurance bool             `json:"acceptsLtcInsurance"`
	Specialties         []string         `json:"specialties"`
	MedicalServices     []string         `json:"medicalServices"`
	DailyServices       []string         `json:"dailyServices"`
	Amenities           []string         `json:"amenities"`
	Location            FacilityLocation `json:"location"`
	Rating              float64          `json:"rating,omitempty"`
	UpdatedAt           time.Time        `json:"updatedAt,omitempty"`

	// Relevance is the search engine score when the record came from a search hit.
	Relevance float64 `json:"relevance,omitempty"`
}

// HasPricing reports whether the home published a price range.
func (f Facility) HasPricing() bool {
	return f.PriceMax > 0 || f.PriceMin > 0
}

// FacilityAvailability is the bed count snapshot for one home.
type FacilityAvailability struct {
	FacilityID    string    `json:"facilityId"`
	Capacity      int       `json:"capacity"`
	AvailableBeds int       `json:"availableBeds"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
