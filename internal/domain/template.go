package domain

import (
	"slices"
	"time"
)

// Bounds on analysis templates.
const (
	// MaxTemplateCropTypes is the maximum number of crop types a template
	// applies to.
	MaxTemplateCropTypes = 5

	// MaxConditions is the maximum number of condition ranges per template.
	MaxConditions = 5

	// MaxActions is the maximum number of recommended actions per template.
	MaxActions = 10
)

// ConditionRange bounds one named field condition, for example soil moisture.
type ConditionRange struct {
	Metric string `json:"metric"`
	Min    int64  `json:"min"`
	Max    int64  `json:"max"`
}

// WeatherRange is the weather envelope a template applies to. All bounds
// are inclusive.
type WeatherRange struct {
	MinTemp     int  `json:"min_temp"`
	MaxTemp     int  `json:"max_temp"`
	MinHumidity uint `json:"min_humidity"`
	MaxHumidity uint `json:"max_humidity"`
	MaxUV       uint `json:"max_uv"`
}

// Contains reports whether the reading falls inside the range.
func (w WeatherRange) Contains(r WeatherReading) bool {
	return w.MinTemp <= r.Temperature && r.Temperature <= w.MaxTemp &&
		w.MinHumidity <= r.Humidity && r.Humidity <= w.MaxHumidity &&
		r.UVIndex <= w.MaxUV
}

// Template is an expert-authored rule mapping crop types and weather ranges
// to an ordered list of recommended actions.
type Template struct {
	// ID is assigned from the template counter and is never reused.
	ID uint64 `json:"id"`

	// Author is the verified expert who published the template.
	Author string `json:"author"`

	Name        string `json:"name"`
	Description string `json:"description"`

	// CropTypes lists the crop types the template applies to.
	CropTypes []string `json:"crop_types"`

	Conditions []ConditionRange `json:"conditions"`
	Weather    WeatherRange     `json:"weather"`

	// Actions are the recommended steps in the order they should be taken.
	Actions []string `json:"actions"`

	CreatedAt time.Time `json:"created_at"`

	// RatingCount never decreases.
	RatingCount uint64 `json:"rating_count"`

	// AverageRating is only meaningful when RatingCount > 0.
	AverageRating uint64 `json:"average_rating"`
}

// AppliesTo reports whether cropType is one of the template's crop types.
func (t Template) AppliesTo(cropType string) bool {
	return slices.Contains(t.CropTypes, cropType)
}

// Rated reports whether the template has received any rating.
func (t Template) Rated() bool { return t.RatingCount > 0 }

// EffectiveRating is the rating used for ranking: the average once rated,
// zero otherwise.
func (t Template) EffectiveRating() uint64 {
	if !t.Rated() {
		return 0
	}
	return t.AverageRating
}

// Clone returns a deep copy of the template.
func (t Template) Clone() Template {
	t.CropTypes = cloneStrings(t.CropTypes)
	t.Actions = cloneStrings(t.Actions)
	if t.Conditions != nil {
		t.Conditions = append([]ConditionRange(nil), t.Conditions...)
	}
	return t
}
