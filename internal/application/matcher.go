package application

import (
	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/ports"
)

// Matcher selects the best-fit analysis template for a farm profile from a
// store snapshot. Ranking itself lives in domain.SelectTemplate; Matcher
// only gathers its inputs.
type Matcher struct{}

// Select returns the id of the highest-ranked template that applies to the
// profile's crop type and whose weather range contains reading. It returns
// domain.ErrAnalysisNotFound when no template is a candidate.
func (Matcher) Select(v ports.View, profile domain.Participant, reading domain.WeatherReading) (uint64, error) {
	templates, err := v.Templates()
	if err != nil {
		return 0, err
	}

	reputations := make(map[string]uint8)
	for _, t := range templates {
		if !t.AppliesTo(profile.CropType) || !t.Weather.Contains(reading) {
			continue
		}
		if _, seen := reputations[t.Author]; seen {
			continue
		}
		// Authors missing from the expert store rank with reputation 0.
		expert, _, err := v.Expert(t.Author)
		if err != nil {
			return 0, err
		}
		reputations[t.Author] = expert.Reputation
	}

	id, ok := domain.SelectTemplate(profile.CropType, reading, templates, func(author string) uint8 {
		return reputations[author]
	})
	if !ok {
		return 0, domain.ErrAnalysisNotFound
	}
	return id, nil
}
