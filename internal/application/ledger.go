package application

import (
	"fmt"
	"time"

	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/ports"
)

// Ledger creates recommendations and settles their single feedback event.
// Both operations run inside a caller-supplied transaction: every
// precondition is checked before the first write, and an error from any
// later step aborts the whole transaction.
type Ledger struct {
	matcher    Matcher
	aggregator ReputationAggregator
}

// Generate matches the caller's farm against reading and records a new
// recommendation for the selected template.
//
// Checks run in order: the caller must own a farm (ErrFarmNotFound), the
// reading must be sane (ErrInvalidWeatherData) and some template must match
// (ErrAnalysisNotFound). The recommendation id is allocated only after all
// three pass.
func (l Ledger) Generate(
	tx ports.Tx,
	caller string,
	reading domain.WeatherReading,
	now time.Time,
) (domain.Recommendation, error) {
	profile, ok, err := tx.Participant(caller)
	if err != nil {
		return domain.Recommendation{}, err
	}
	if !ok {
		return domain.Recommendation{}, domain.ErrFarmNotFound
	}

	if !reading.Sane() {
		return domain.Recommendation{}, fmt.Errorf(
			"%w: temperature=%d humidity=%d uv_index=%d",
			domain.ErrInvalidWeatherData, reading.Temperature, reading.Humidity, reading.UVIndex)
	}

	templateID, err := l.matcher.Select(tx, profile, reading)
	if err != nil {
		return domain.Recommendation{}, err
	}

	id, err := tx.NextRecommendationID()
	if err != nil {
		return domain.Recommendation{}, err
	}

	if reading.ObservedAt.IsZero() {
		reading.ObservedAt = now
	}
	rec := domain.Recommendation{
		ID:          id,
		Owner:       caller,
		TemplateID:  templateID,
		Weather:     reading,
		GeneratedAt: now,
		HasFeedback: false,
	}
	if err := tx.PutRecommendation(rec); err != nil {
		return domain.Recommendation{}, err
	}
	return rec, nil
}

// Settlement is the outcome of a recorded feedback event.
type Settlement struct {
	Feedback domain.Feedback
	Update   RatingUpdate
}

// RecordFeedback attaches the caller's rating to a recommendation and
// applies it to the matched template and its author.
//
// Checks run in order: the recommendation exists, the caller owns it, it
// has not been rated, the rating is in [1,100], the template still exists
// and its author is a known expert. The rater of record is the template
// author, not the caller.
func (l Ledger) RecordFeedback(
	tx ports.Tx,
	caller string,
	recommendationID uint64,
	rating uint,
	comment *string,
	now time.Time,
) (Settlement, error) {
	rec, ok, err := tx.Recommendation(recommendationID)
	if err != nil {
		return Settlement{}, err
	}
	if !ok {
		return Settlement{}, domain.ErrRecommendationNotFound
	}

	owns, err := NewGate(tx).OwnsRecommendation(caller, recommendationID)
	if err != nil {
		return Settlement{}, err
	}
	if !owns {
		return Settlement{}, domain.ErrNotAuthorized
	}

	if rec.HasFeedback {
		return Settlement{}, domain.ErrAlreadyRated
	}

	if !domain.ValidRating(rating) {
		return Settlement{}, fmt.Errorf("%w: %d not in [%d,%d]",
			domain.ErrInvalidRating, rating, domain.MinRating, domain.MaxRating)
	}

	template, ok, err := tx.Template(rec.TemplateID)
	if err != nil {
		return Settlement{}, err
	}
	if !ok {
		return Settlement{}, domain.ErrAnalysisNotFound
	}

	// Templates can only be published by verified experts and experts are
	// never removed, so a missing author means the store is inconsistent.
	expert, ok, err := tx.Expert(template.Author)
	if err != nil {
		return Settlement{}, err
	}
	if !ok {
		return Settlement{}, fmt.Errorf("%w: author %q of template %d",
			domain.ErrExpertNotFound, template.Author, template.ID)
	}

	rec.HasFeedback = true
	if err := tx.PutRecommendation(rec); err != nil {
		return Settlement{}, err
	}

	fb := domain.Feedback{
		RecommendationID: rec.ID,
		Rater:            template.Author,
		Rating:           uint8(rating),
		Comment:          comment,
		SubmittedAt:      now,
	}
	if err := tx.PutFeedback(fb); err != nil {
		return Settlement{}, err
	}

	update, err := l.aggregator.Apply(tx, template, expert, fb.Rating)
	if err != nil {
		return Settlement{}, err
	}

	return Settlement{Feedback: fb, Update: update}, nil
}
