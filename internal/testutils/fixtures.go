// Package testutils provides fixture builders shared by tests across the
// domain, application and infrastructure packages.
package testutils

import (
	"time"

	"github.com/ahrav/go-agrisense/internal/domain"
)

// Well-known identities used by fixtures.
const (
	AdminID   = "admin"
	ExpertA   = "expert-a"
	ExpertB   = "expert-b"
	FarmOwner = "farm-1"
	Outsider  = "mallory"
)

// Well-known vocabulary terms used by fixtures.
const (
	CropWheat     = "wheat"
	CropMaize     = "maize"
	MetricSoilPH  = "soil-ph"
	MetricNitrate = "nitrate"
	GoalYield     = "yield"
	GoalWater     = "water-saving"
)

// FixedTime is a deterministic clock value for fixtures.
var FixedTime = time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)

// FixedClock returns a clock function that always reports FixedTime.
func FixedClock() func() time.Time {
	return func() time.Time { return FixedTime }
}

// TemplateOption customizes a fixture template.
type TemplateOption func(*domain.Template)

// NewTemplate returns a template for wheat that accepts temperatures in
// [10,30], humidity in [20,80] and UV up to 8.
func NewTemplate(id uint64, author string, opts ...TemplateOption) domain.Template {
	t := domain.Template{
		ID:          id,
		Author:      author,
		Name:        "Spring wheat irrigation",
		Description: "Irrigation schedule for spring wheat in mild weather.",
		CropTypes:   []string{CropWheat},
		Conditions:  []domain.ConditionRange{{Metric: MetricSoilPH, Min: 6, Max: 7}},
		Weather: domain.WeatherRange{
			MinTemp:     10,
			MaxTemp:     30,
			MinHumidity: 20,
			MaxHumidity: 80,
			MaxUV:       8,
		},
		Actions:   []string{"irrigate at dawn", "check soil moisture"},
		CreatedAt: FixedTime,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// WithCropTypes overrides the template's crop types.
func WithCropTypes(crops ...string) TemplateOption {
	return func(t *domain.Template) { t.CropTypes = crops }
}

// WithWeather overrides the template's weather range.
func WithWeather(w domain.WeatherRange) TemplateOption {
	return func(t *domain.Template) { t.Weather = w }
}

// WithRating sets the template's rating statistics.
func WithRating(count, avg uint64) TemplateOption {
	return func(t *domain.Template) {
		t.RatingCount = count
		t.AverageRating = avg
	}
}

// NewParticipant returns a wheat farm owned by owner.
func NewParticipant(owner string) domain.Participant {
	return domain.Participant{
		Owner:         owner,
		CropType:      CropWheat,
		FarmSize:      120,
		Latitude:      -33.86,
		Longitude:     151.21,
		HealthMetrics: []string{MetricSoilPH},
		Goals:         []string{GoalYield},
		RegisteredAt:  FixedTime,
	}
}

// NewExpert returns a verified expert with the given reputation.
func NewExpert(id string, reputation uint8) domain.Expert {
	return domain.Expert{
		ID:          id,
		VerifiedAt:  FixedTime,
		Credentials: "MSc Agronomy",
		Reputation:  reputation,
	}
}

// MildReading returns a reading inside the NewTemplate weather range.
func MildReading() domain.WeatherReading {
	return domain.WeatherReading{Temperature: 20, Humidity: 50, UVIndex: 5}
}
