package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/gosimple/slug"
	"github.com/lib/pq"

	"github.com/vandreio/tourbook/internal/constants"
)

// Location is a GeoJSON-style point with display metadata. Coordinates are
// [longitude, latitude].
type Location struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
	Address     string     `json:"address,omitempty"`
	Description string     `json:"description,omitempty"`
	Day         int        `json:"day,omitempty"`
}

// Longitude returns the first coordinate.
func (l Location) Longitude() float64 { return l.Coordinates[0] }

// Latitude returns the second coordinate.
func (l Location) Latitude() float64 { return l.Coordinates[1] }

// Value implements driver.Valuer, storing the location as JSONB.
func (l Location) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB columns.
func (l *Location) Scan(src interface{}) error {
	if src == nil {
		*l = Location{}
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type %T for Location", src)
	}
	return json.Unmarshal(data, l)
}

// LocationList is a JSONB array of itinerary stops.
type LocationList []Location

// Value implements driver.Valuer.
func (ll LocationList) Value() (driver.Value, error) {
	if ll == nil {
		return json.Marshal([]Location{})
	}
	return json.Marshal(ll)
}

// Scan implements sql.Scanner.
func (ll *LocationList) Scan(src interface{}) error {
	if src == nil {
		*ll = nil
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type %T for LocationList", src)
	}
	return json.Unmarshal(data, ll)
}

// Tour represents a bookable tour. Secret tours are excluded from public
// listings and only reachable by staff.
type Tour struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Slug            string         `json:"slug"`
	Duration        int            `json:"duration"`
	DurationWeeks   float64        `json:"durationWeeks"`
	MaxGroupSize    int            `json:"maxGroupSize"`
	Difficulty      string         `json:"difficulty"`
	RatingsAverage  float64        `json:"ratingsAverage"`
	RatingsQuantity int            `json:"ratingsQuantity"`
	Price           float64        `json:"price"`
	PriceDiscount   *float64       `json:"priceDiscount,omitempty"`
	Summary         string         `json:"summary"`
	Description     string         `json:"description,omitempty"`
	ImageCover      string         `json:"imageCover"`
	Images          pq.StringArray `json:"images"`
	StartDates      []time.Time    `json:"startDates"`
	Secret          bool           `json:"-"`
	StartLocation   Location       `json:"startLocation"`
	Locations       LocationList   `json:"locations"`
	Guides          pq.Int64Array  `json:"guides"`
	GuideDetails    []*TourGuide   `json:"guideDetails,omitempty"`
	Reviews         []*Review      `json:"reviews,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// TourGuide is the subset of user fields embedded in a tour detail
// response when the guide ids are expanded.
type TourGuide struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo,omitempty"`
	Role  string `json:"role"`
}

// Derive fills computed fields after a database load.
func (t *Tour) Derive() {
	if t.Duration > 0 {
		t.DurationWeeks = math.Round(float64(t.Duration)/7*10) / 10
	}
	t.RatingsAverage = RoundRating(t.RatingsAverage)
}

// SlugFrom derives a URL slug from a tour name.
func SlugFrom(name string) string {
	return slug.Make(name)
}

// RoundRating clamps a rating into the valid range and rounds it to one
// decimal place, matching how averages are presented.
func RoundRating(v float64) float64 {
	if v == 0 {
		return 0
	}
	if v < constants.MinRating {
		v = constants.MinRating
	}
	if v > constants.MaxRating {
		v = constants.MaxRating
	}
	return math.Round(v*10) / 10
}

// CreateTourRequest is the payload for tour creation.
type CreateTourRequest struct {
	Name          string       `json:"name" validate:"required,min=10,max=40"`
	Duration      int          `json:"duration" validate:"required,gte=1"`
	MaxGroupSize  int          `json:"maxGroupSize" validate:"required,gte=1"`
	Difficulty    string       `json:"difficulty" validate:"required,difficulty"`
	Price         float64      `json:"price" validate:"required,gt=0"`
	PriceDiscount *float64     `json:"priceDiscount,omitempty" validate:"omitempty,gt=0,ltfield=Price"`
	Summary       string       `json:"summary" validate:"required"`
	Description   string       `json:"description,omitempty"`
	ImageCover    string       `json:"imageCover" validate:"required"`
	Images        []string     `json:"images,omitempty"`
	StartDates    []time.Time  `json:"startDates,omitempty"`
	Secret        bool         `json:"secret,omitempty"`
	StartLocation *Location    `json:"startLocation,omitempty"`
	Locations     LocationList `json:"locations,omitempty"`
	Guides        []int64      `json:"guides,omitempty"`
}

// UpdateTourRequest is the payload for partial tour updates. Only present
// fields are written.
type UpdateTourRequest struct {
	Name          *string      `json:"name,omitempty" validate:"omitempty,min=10,max=40"`
	Duration      *int         `json:"duration,omitempty" validate:"omitempty,gte=1"`
	MaxGroupSize  *int         `json:"maxGroupSize,omitempty" validate:"omitempty,gte=1"`
	Difficulty    *string      `json:"difficulty,omitempty" validate:"omitempty,difficulty"`
	Price         *float64     `json:"price,omitempty" validate:"omitempty,gt=0"`
	PriceDiscount *float64     `json:"priceDiscount,omitempty" validate:"omitempty,gt=0"`
	Summary       *string      `json:"summary,omitempty"`
	Description   *string      `json:"description,omitempty"`
	ImageCover    *string      `json:"imageCover,omitempty"`
	Images        []string     `json:"images,omitempty"`
	StartDates    []time.Time  `json:"startDates,omitempty"`
	Secret        *bool        `json:"secret,omitempty"`
	StartLocation *Location    `json:"startLocation,omitempty"`
	Locations     LocationList `json:"locations,omitempty"`
	Guides        []int64      `json:"guides,omitempty"`
}

// TourStats is one row of the per-difficulty aggregate report.
type TourStats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// MonthlyPlanEntry is one month of the start-date plan for a year, busiest
// months first.
type MonthlyPlanEntry struct {
	Month         int      `json:"month"`
	NumTourStarts int      `json:"numTourStarts"`
	Tours         []string `json:"tours"`
}

// TourDistance pairs a tour with its distance from a reference point.
type TourDistance struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}
