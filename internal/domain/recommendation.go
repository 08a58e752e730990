package domain

import "time"

// Sane domain for weather readings accepted by the ledger.
const (
	MinTemperature = -50
	MaxTemperature = 50
	MaxHumidity    = 100
	MaxUVIndex     = 12
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 100
)

// WeatherReading is a point-in-time observation supplied by the weather
// oracle at the boundary.
type WeatherReading struct {
	// Temperature is in whole degrees Celsius.
	Temperature int `json:"temperature"`

	// Humidity is relative humidity in percent.
	Humidity uint `json:"humidity"`

	UVIndex uint `json:"uv_index"`

	// ObservedAt is when the reading was taken. A zero value is replaced by
	// the generation time when the reading is snapshotted.
	ObservedAt time.Time `json:"observed_at"`
}

// Sane reports whether every field lies in the accepted domain:
// temperature in [-50,50], humidity in [0,100] and UV index in [0,12].
func (r WeatherReading) Sane() bool {
	return r.Temperature >= MinTemperature && r.Temperature <= MaxTemperature &&
		r.Humidity <= MaxHumidity &&
		r.UVIndex <= MaxUVIndex
}

// ValidRating reports whether rating lies in [MinRating, MaxRating].
func ValidRating(rating uint) bool {
	return rating >= MinRating && rating <= MaxRating
}

// Recommendation binds one participant, one selected template and one
// weather snapshot at a point in time.
type Recommendation struct {
	// ID is assigned from the recommendation counter and is never reused.
	ID uint64 `json:"id"`

	// Owner is the participant the recommendation was generated for.
	Owner string `json:"owner"`

	// TemplateID references the selected template.
	TemplateID uint64 `json:"template_id"`

	// Weather is the reading the selection was made against.
	Weather WeatherReading `json:"weather"`

	GeneratedAt time.Time `json:"generated_at"`

	// HasFeedback flips from false to true exactly once.
	HasFeedback bool `json:"has_feedback"`
}

// Feedback is the single rating attached to a recommendation.
type Feedback struct {
	RecommendationID uint64 `json:"recommendation_id"`

	// Rater is the authoring expert of the matched template, recorded at
	// settlement time. It is not the farm that submitted the rating.
	Rater string `json:"rater"`

	Rating uint8 `json:"rating"`

	Comment *string `json:"comment,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
}

// Clone returns a deep copy of the feedback.
func (f Feedback) Clone() Feedback {
	if f.Comment != nil {
		c := *f.Comment
		f.Comment = &c
	}
	return f
}
