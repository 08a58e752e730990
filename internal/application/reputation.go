package application

import (
	"fmt"

	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/ports"
)

// RatingUpdate describes the effect of one feedback event on the template
// and its author.
type RatingUpdate struct {
	TemplateID    uint64
	RatingCount   uint64
	AverageRating uint64

	ExpertID       string
	PrevReputation uint8
	Reputation     uint8
}

// ReputationAggregator folds a feedback rating into the matched template's
// statistics and its author's reputation.
//
// Apply requires that the template and expert exist and that rating lies in
// [1,100]. The ledger guarantees this before calling; Apply does not
// re-check existence. It does assert that the results stay inside their
// domains and fails with domain.ErrInvariantViolated instead of clamping.
type ReputationAggregator struct{}

// Apply writes the updated template and expert through tx.
func (ReputationAggregator) Apply(
	tx ports.Tx,
	template domain.Template,
	expert domain.Expert,
	rating uint8,
) (RatingUpdate, error) {
	count, avg := domain.NextTemplateRating(template.RatingCount, template.AverageRating, rating)
	if count <= template.RatingCount {
		return RatingUpdate{}, fmt.Errorf("%w: rating count of template %d did not advance",
			domain.ErrInvariantViolated, template.ID)
	}
	if avg < domain.MinRating || avg > domain.MaxRating {
		return RatingUpdate{}, fmt.Errorf("%w: average rating %d of template %d outside [%d,%d]",
			domain.ErrInvariantViolated, avg, template.ID, domain.MinRating, domain.MaxRating)
	}

	score := domain.NextReputation(expert.Reputation, rating)
	if score > domain.MaxReputation {
		return RatingUpdate{}, fmt.Errorf("%w: reputation %d of expert %q above %d",
			domain.ErrInvariantViolated, score, expert.ID, domain.MaxReputation)
	}

	update := RatingUpdate{
		TemplateID:     template.ID,
		RatingCount:    count,
		AverageRating:  avg,
		ExpertID:       expert.ID,
		PrevReputation: expert.Reputation,
		Reputation:     score,
	}

	template.RatingCount = count
	template.AverageRating = avg
	if err := tx.PutTemplate(template); err != nil {
		return RatingUpdate{}, err
	}

	expert.Reputation = score
	if err := tx.PutExpert(expert); err != nil {
		return RatingUpdate{}, err
	}

	return update, nil
}
