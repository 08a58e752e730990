package domain

import "time"

// Bounds on participant profiles.
const (
	// MaxHealthMetrics is the maximum number of tracked health metrics per farm.
	MaxHealthMetrics = 5

	// MaxGoals is the maximum number of goals per farm.
	MaxGoals = 5
)

// Reputation bounds for verified experts.
const (
	// InitialReputation is assigned when an admin verifies an expert.
	InitialReputation uint8 = 80

	// MaxReputation is the upper bound of the reputation domain.
	MaxReputation uint8 = 100
)

// Participant is a registered farm profile, uniquely keyed by its owner.
type Participant struct {
	// Owner is the identity that registered the farm. It never changes.
	Owner string `json:"owner"`

	// CropType is a term from the crop-type vocabulary.
	CropType string `json:"crop_type"`

	// FarmSize is the farm area in whole units and is always positive.
	FarmSize uint32 `json:"farm_size"`

	// Latitude is the signed latitude of the farm in degrees.
	Latitude float64 `json:"latitude"`

	// Longitude is the signed longitude of the farm in degrees.
	Longitude float64 `json:"longitude"`

	// HealthMetrics lists up to MaxHealthMetrics tracked metrics.
	HealthMetrics []string `json:"health_metrics"`

	// Goals lists up to MaxGoals goals.
	Goals []string `json:"goals"`

	// RegisteredAt records when the farm was first registered.
	RegisteredAt time.Time `json:"registered_at"`
}

// Clone returns a deep copy of the participant.
func (p Participant) Clone() Participant {
	p.HealthMetrics = cloneStrings(p.HealthMetrics)
	p.Goals = cloneStrings(p.Goals)
	return p
}

// Expert is a verified domain expert who may author analysis templates.
// Reputation is the only field that changes after creation.
type Expert struct {
	// ID is the expert's identity.
	ID string `json:"id"`

	// VerifiedAt records when an admin verified the expert.
	VerifiedAt time.Time `json:"verified_at"`

	// Credentials is free text supplied at verification.
	Credentials string `json:"credentials"`

	// Reputation is an exponentially weighted quality estimate in [0,100].
	Reputation uint8 `json:"reputation"`
}

// VocabularyKind names one of the admin-controlled vocabularies.
type VocabularyKind string

// Known vocabularies.
const (
	VocabularyCropType     VocabularyKind = "crop-type"
	VocabularyHealthMetric VocabularyKind = "health-metric"
	VocabularyGoal         VocabularyKind = "goal"
)

// VocabularyKinds lists every known vocabulary in a stable order.
var VocabularyKinds = []VocabularyKind{VocabularyCropType, VocabularyHealthMetric, VocabularyGoal}

// Valid reports whether k is a known vocabulary.
func (k VocabularyKind) Valid() bool {
	switch k {
	case VocabularyCropType, VocabularyHealthMetric, VocabularyGoal:
		return true
	}
	return false
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
