package sqlstore

import (
	"time"

	"github.com/ahrav/go-agrisense/internal/domain"
)

// Timestamps are stored as UTC unix nanoseconds so values survive the round
// trip without driver-specific layout or location handling. Zero times are
// stored as 0.

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

type settingRow struct {
	Name  string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

func (settingRow) TableName() string { return "settings" }

type counterRow struct {
	Name string `gorm:"primaryKey"`
	Next uint64 `gorm:"not null;check:next >= 1"`
}

func (counterRow) TableName() string { return "counters" }

type participantRow struct {
	Owner         string   `gorm:"primaryKey"`
	CropType      string   `gorm:"not null;index"`
	FarmSize      uint32   `gorm:"not null;check:farm_size > 0"`
	Latitude      float64  `gorm:"not null"`
	Longitude     float64  `gorm:"not null"`
	HealthMetrics []string `gorm:"serializer:json"`
	Goals         []string `gorm:"serializer:json"`
	Registered    int64    `gorm:"column:registered_at;not null"`
}

func (participantRow) TableName() string { return "participants" }

func participantToRow(p domain.Participant) participantRow {
	return participantRow{
		Owner:         p.Owner,
		CropType:      p.CropType,
		FarmSize:      p.FarmSize,
		Latitude:      p.Latitude,
		Longitude:     p.Longitude,
		HealthMetrics: p.HealthMetrics,
		Goals:         p.Goals,
		Registered:    toNanos(p.RegisteredAt),
	}
}

func (r participantRow) toDomain() domain.Participant {
	return domain.Participant{
		Owner:         r.Owner,
		CropType:      r.CropType,
		FarmSize:      r.FarmSize,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		HealthMetrics: r.HealthMetrics,
		Goals:         r.Goals,
		RegisteredAt:  fromNanos(r.Registered),
	}
}

type expertRow struct {
	ID          string `gorm:"primaryKey"`
	Verified    int64  `gorm:"column:verified_at;not null"`
	Credentials string `gorm:"not null"`
	Reputation  uint8  `gorm:"not null;check:reputation <= 100"`
}

func (expertRow) TableName() string { return "experts" }

func expertToRow(e domain.Expert) expertRow {
	return expertRow{
		ID:          e.ID,
		Verified:    toNanos(e.VerifiedAt),
		Credentials: e.Credentials,
		Reputation:  e.Reputation,
	}
}

func (r expertRow) toDomain() domain.Expert {
	return domain.Expert{
		ID:          r.ID,
		VerifiedAt:  fromNanos(r.Verified),
		Credentials: r.Credentials,
		Reputation:  r.Reputation,
	}
}

type templateRow struct {
	ID            uint64                  `gorm:"primaryKey;autoIncrement:false"`
	Author        string                  `gorm:"not null;index"`
	Name          string                  `gorm:"not null"`
	Description   string                  `gorm:"not null"`
	CropTypes     []string                `gorm:"serializer:json"`
	Conditions    []domain.ConditionRange `gorm:"serializer:json"`
	MinTemp       int                     `gorm:"not null"`
	MaxTemp       int                     `gorm:"not null;check:max_temp >= min_temp"`
	MinHumidity   uint                    `gorm:"not null"`
	MaxHumidity   uint                    `gorm:"not null;check:max_humidity >= min_humidity"`
	MaxUV         uint                    `gorm:"column:max_uv;not null"`
	Actions       []string                `gorm:"serializer:json"`
	Created       int64                   `gorm:"column:created_at;not null"`
	RatingCount   uint64                  `gorm:"not null"`
	AverageRating uint64                  `gorm:"not null;check:average_rating <= 100"`
}

func (templateRow) TableName() string { return "templates" }

func templateToRow(t domain.Template) templateRow {
	return templateRow{
		ID:            t.ID,
		Author:        t.Author,
		Name:          t.Name,
		Description:   t.Description,
		CropTypes:     t.CropTypes,
		Conditions:    t.Conditions,
		MinTemp:       t.Weather.MinTemp,
		MaxTemp:       t.Weather.MaxTemp,
		MinHumidity:   t.Weather.MinHumidity,
		MaxHumidity:   t.Weather.MaxHumidity,
		MaxUV:         t.Weather.MaxUV,
		Actions:       t.Actions,
		Created:       toNanos(t.CreatedAt),
		RatingCount:   t.RatingCount,
		AverageRating: t.AverageRating,
	}
}

func (r templateRow) toDomain() domain.Template {
	return domain.Template{
		ID:          r.ID,
		Author:      r.Author,
		Name:        r.Name,
		Description: r.Description,
		CropTypes:   r.CropTypes,
		Conditions:  r.Conditions,
		Weather: domain.WeatherRange{
			MinTemp:     r.MinTemp,
			MaxTemp:     r.MaxTemp,
			MinHumidity: r.MinHumidity,
			MaxHumidity: r.MaxHumidity,
			MaxUV:       r.MaxUV,
		},
		Actions:       r.Actions,
		CreatedAt:     fromNanos(r.Created),
		RatingCount:   r.RatingCount,
		AverageRating: r.AverageRating,
	}
}

type recommendationRow struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement:false"`
	Owner       string `gorm:"not null;index"`
	TemplateID  uint64 `gorm:"not null;index"`
	Temperature int    `gorm:"not null"`
	Humidity    uint   `gorm:"not null"`
	UVIndex     uint   `gorm:"column:uv_index;not null"`
	Observed    int64  `gorm:"column:observed_at;not null"`
	Generated   int64  `gorm:"column:generated_at;not null"`
	HasFeedback bool   `gorm:"not null"`
}

func (recommendationRow) TableName() string { return "recommendations" }

func recommendationToRow(r domain.Recommendation) recommendationRow {
	return recommendationRow{
		ID:          r.ID,
		Owner:       r.Owner,
		TemplateID:  r.TemplateID,
		Temperature: r.Weather.Temperature,
		Humidity:    r.Weather.Humidity,
		UVIndex:     r.Weather.UVIndex,
		Observed:    toNanos(r.Weather.ObservedAt),
		Generated:   toNanos(r.GeneratedAt),
		HasFeedback: r.HasFeedback,
	}
}

func (r recommendationRow) toDomain() domain.Recommendation {
	return domain.Recommendation{
		ID:         r.ID,
		Owner:      r.Owner,
		TemplateID: r.TemplateID,
		Weather: domain.WeatherReading{
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
			UVIndex:     r.UVIndex,
			ObservedAt:  fromNanos(r.Observed),
		},
		GeneratedAt: fromNanos(r.Generated),
		HasFeedback: r.HasFeedback,
	}
}

type feedbackRow struct {
	RecommendationID uint64  `gorm:"primaryKey;autoIncrement:false"`
	Rater            string  `gorm:"not null;index"`
	Rating           uint8   `gorm:"not null;check:rating BETWEEN 1 AND 100"`
	Comment          *string
	Submitted        int64   `gorm:"column:submitted_at;not null"`
}

func (feedbackRow) TableName() string { return "feedback" }

func feedbackToRow(f domain.Feedback) feedbackRow {
	return feedbackRow{
		RecommendationID: f.RecommendationID,
		Rater:            f.Rater,
		Rating:           f.Rating,
		Comment:          f.Comment,
		Submitted:        toNanos(f.SubmittedAt),
	}
}

func (r feedbackRow) toDomain() domain.Feedback {
	return domain.Feedback{
		RecommendationID: r.RecommendationID,
		Rater:            r.Rater,
		Rating:           r.Rating,
		Comment:          r.Comment,
		SubmittedAt:      fromNanos(r.Submitted),
	}
}

type vocabularyRow struct {
	Kind string `gorm:"primaryKey"`
	Term string `gorm:"primaryKey"`
}

func (vocabularyRow) TableName() string { return "vocabulary_terms" }
