package domain

// ReputationLookup returns the reputation of a template author. Unknown
// authors rank as zero.
type ReputationLookup func(author string) uint8

// SelectTemplate picks the best-fit template for a farm growing cropType
// under reading.
//
// A template is a candidate when it lists cropType and its weather range
// contains the reading. Candidates are ranked by:
//
//  1. higher effective rating (unrated templates count as 0 and rank below
//     any rated template)
//  2. higher author reputation
//  3. lower template id
//
// The result depends only on the arguments, so repeated calls over the same
// store contents return the same id. The second return value is false when
// no template is a candidate.
func SelectTemplate(
	cropType string,
	reading WeatherReading,
	templates []Template,
	reputation ReputationLookup,
) (uint64, bool) {
	var (
		best     Template
		bestRep  uint8
		selected bool
	)

	for _, t := range templates {
		if !t.AppliesTo(cropType) || !t.Weather.Contains(reading) {
			continue
		}

		rep := uint8(0)
		if reputation != nil {
			rep = reputation(t.Author)
		}

		if !selected || outranks(t, rep, best, bestRep) {
			best, bestRep, selected = t, rep, true
		}
	}

	if !selected {
		return 0, false
	}
	return best.ID, true
}

// outranks reports whether candidate a (author reputation repA) ranks above
// candidate b.
func outranks(a Template, repA uint8, b Template, repB uint8) bool {
	// A rated template always beats an unrated one, even one rated at the
	// lowest possible average.
	if a.Rated() != b.Rated() {
		return a.Rated()
	}
	if ra, rb := a.EffectiveRating(), b.EffectiveRating(); ra != rb {
		return ra > rb
	}
	if repA != repB {
		return repA > repB
	}
	return a.ID < b.ID
}
