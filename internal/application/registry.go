package application

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/ports"
)

// FarmInput is the caller-supplied part of a farm profile.
type FarmInput struct {
	CropType      string   `json:"crop_type" yaml:"crop_type" validate:"required,term"`
	FarmSize      uint32   `json:"farm_size" yaml:"farm_size" validate:"required,min=1"`
	Latitude      float64  `json:"latitude" yaml:"latitude" validate:"min=-90,max=90"`
	Longitude     float64  `json:"longitude" yaml:"longitude" validate:"min=-180,max=180"`
	HealthMetrics []string `json:"health_metrics" yaml:"health_metrics" validate:"max=5,unique,dive,term"`
	Goals         []string `json:"goals" yaml:"goals" validate:"max=5,unique,dive,term"`
}

// ConditionInput bounds one named field condition of a template.
type ConditionInput struct {
	Metric string `json:"metric" yaml:"metric" validate:"required,term"`
	Min    int64  `json:"min" yaml:"min"`
	Max    int64  `json:"max" yaml:"max" validate:"gtefield=Min"`
}

// WeatherRangeInput is the weather envelope of a template. Bounds are
// inclusive and must lie inside the sane reading domain.
type WeatherRangeInput struct {
	MinTemp     int  `json:"min_temp" yaml:"min_temp" validate:"min=-50,max=50"`
	MaxTemp     int  `json:"max_temp" yaml:"max_temp" validate:"min=-50,max=50,gtefield=MinTemp"`
	MinHumidity uint `json:"min_humidity" yaml:"min_humidity" validate:"max=100"`
	MaxHumidity uint `json:"max_humidity" yaml:"max_humidity" validate:"max=100,gtefield=MinHumidity"`
	MaxUV       uint `json:"max_uv" yaml:"max_uv" validate:"max=12"`
}

// TemplateInput is the caller-supplied part of an analysis template.
type TemplateInput struct {
	Name        string            `json:"name" yaml:"name" validate:"required,max=128"`
	Description string            `json:"description" yaml:"description" validate:"max=2000"`
	CropTypes   []string          `json:"crop_types" yaml:"crop_types" validate:"required,min=1,max=5,unique,dive,term"`
	Conditions  []ConditionInput  `json:"conditions" yaml:"conditions" validate:"max=5,dive"`
	Weather     WeatherRangeInput `json:"weather" yaml:"weather"`
	Actions     []string          `json:"actions" yaml:"actions" validate:"required,min=1,max=10,dive,required,max=500"`
}

// Registry implements the administrative operations that populate the
// stores the matching engine reads: expert verification, vocabulary
// management, farm registration and template publication.
//
// Like the Ledger, every method runs inside a caller-supplied transaction
// and performs all checks before its first write.
type Registry struct {
	validate *validator.Validate
}

// NewRegistry returns a Registry that validates inputs with v.
func NewRegistry(v *validator.Validate) Registry {
	return Registry{validate: v}
}

// BootstrapAdmin records id as the admin identity when none is set yet. It
// reports the admin identity in effect afterwards.
func (r Registry) BootstrapAdmin(tx ports.Tx, id string) (string, error) {
	current, err := tx.Admin()
	if err != nil {
		return "", err
	}
	if current != "" {
		return current, nil
	}
	if id == "" {
		return "", fmt.Errorf("%w: empty admin identity", domain.ErrInvalidInput)
	}
	if err := tx.SetAdmin(id); err != nil {
		return "", err
	}
	return id, nil
}

// VerifyExpert registers expertID as a verified expert with the initial
// reputation. Only the admin may verify experts, and each expert is
// verified once.
func (r Registry) VerifyExpert(
	tx ports.Tx,
	caller, expertID, credentials string,
	now time.Time,
) (domain.Expert, error) {
	admin, err := NewGate(tx).IsAdmin(caller)
	if err != nil {
		return domain.Expert{}, err
	}
	if !admin {
		return domain.Expert{}, domain.ErrNotAuthorized
	}

	if expertID == "" {
		return domain.Expert{}, fmt.Errorf("%w: empty expert id", domain.ErrInvalidInput)
	}

	verified, err := NewGate(tx).IsVerifiedExpert(expertID)
	if err != nil {
		return domain.Expert{}, err
	}
	if verified {
		return domain.Expert{}, domain.ErrExpertAlreadyVerified
	}

	expert := domain.Expert{
		ID:          expertID,
		VerifiedAt:  now,
		Credentials: credentials,
		Reputation:  domain.InitialReputation,
	}
	if err := tx.PutExpert(expert); err != nil {
		return domain.Expert{}, err
	}
	return expert, nil
}

// AddVocabularyTerm adds a normalized term to vocabulary kind. Only the
// admin may manage vocabularies.
func (r Registry) AddVocabularyTerm(
	tx ports.Tx,
	caller string,
	kind domain.VocabularyKind,
	raw string,
) (string, error) {
	admin, err := NewGate(tx).IsAdmin(caller)
	if err != nil {
		return "", err
	}
	if !admin {
		return "", domain.ErrNotAuthorized
	}

	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown vocabulary %q", domain.ErrInvalidInput, kind)
	}

	term, err := NormalizeTerm(raw)
	if err != nil {
		return "", err
	}

	exists, err := tx.HasTerm(kind, term)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%w: %q in %s", domain.ErrVocabularyTermExists, term, kind)
	}

	if err := tx.AddTerm(kind, term); err != nil {
		return "", err
	}
	return term, nil
}

// RegisterFarm creates the caller's farm profile. The caller becomes the
// owner and may hold only one profile.
func (r Registry) RegisterFarm(
	tx ports.Tx,
	caller string,
	in FarmInput,
	now time.Time,
) (domain.Participant, error) {
	if caller == "" {
		return domain.Participant{}, domain.ErrNotAuthorized
	}

	registered, err := NewGate(tx).IsRegisteredParticipant(caller)
	if err != nil {
		return domain.Participant{}, err
	}
	if registered {
		return domain.Participant{}, domain.ErrFarmAlreadyRegistered
	}

	p, err := r.buildParticipant(tx, caller, in)
	if err != nil {
		return domain.Participant{}, err
	}
	p.RegisteredAt = now

	if err := tx.PutParticipant(p); err != nil {
		return domain.Participant{}, err
	}
	return p, nil
}

// UpdateFarm replaces the mutable fields of the caller's farm profile.
// Owner and registration time never change.
func (r Registry) UpdateFarm(tx ports.Tx, caller string, in FarmInput) (domain.Participant, error) {
	existing, ok, err := tx.Participant(caller)
	if err != nil {
		return domain.Participant{}, err
	}
	if !ok {
		return domain.Participant{}, domain.ErrFarmNotFound
	}

	p, err := r.buildParticipant(tx, caller, in)
	if err != nil {
		return domain.Participant{}, err
	}
	p.RegisteredAt = existing.RegisteredAt

	if err := tx.PutParticipant(p); err != nil {
		return domain.Participant{}, err
	}
	return p, nil
}

func (r Registry) buildParticipant(v ports.View, owner string, in FarmInput) (domain.Participant, error) {
	if err := validateStruct(r.validate, "farm", in, domain.ErrInvalidInput); err != nil {
		return domain.Participant{}, err
	}

	crops, err := resolveTerms(v, domain.VocabularyCropType, "crop_type", []string{in.CropType}, domain.ErrInvalidCropType)
	if err != nil {
		return domain.Participant{}, err
	}
	metrics, err := resolveTerms(v, domain.VocabularyHealthMetric, "health_metrics", in.HealthMetrics, domain.ErrInvalidVocabularyTerm)
	if err != nil {
		return domain.Participant{}, err
	}
	goals, err := resolveTerms(v, domain.VocabularyGoal, "goals", in.Goals, domain.ErrInvalidVocabularyTerm)
	if err != nil {
		return domain.Participant{}, err
	}

	return domain.Participant{
		Owner:         owner,
		CropType:      crops[0],
		FarmSize:      in.FarmSize,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		HealthMetrics: metrics,
		Goals:         goals,
	}, nil
}

// PublishTemplate stores a new analysis template authored by the caller,
// who must be a verified expert, and returns it with its assigned id.
func (r Registry) PublishTemplate(
	tx ports.Tx,
	caller string,
	in TemplateInput,
	now time.Time,
) (domain.Template, error) {
	expert, err := NewGate(tx).IsVerifiedExpert(caller)
	if err != nil {
		return domain.Template{}, err
	}
	if !expert {
		return domain.Template{}, domain.ErrNotAuthorized
	}

	if err := validateStruct(r.validate, "template", in, domain.ErrInvalidInput); err != nil {
		return domain.Template{}, err
	}

	crops, err := resolveTerms(tx, domain.VocabularyCropType, "crop_types", in.CropTypes, domain.ErrInvalidCropType)
	if err != nil {
		return domain.Template{}, err
	}

	metrics := make([]string, len(in.Conditions))
	for i, c := range in.Conditions {
		metrics[i] = c.Metric
	}
	metrics, err = resolveTerms(tx, domain.VocabularyHealthMetric, "conditions", metrics, domain.ErrInvalidVocabularyTerm)
	if err != nil {
		return domain.Template{}, err
	}

	conditions := make([]domain.ConditionRange, len(in.Conditions))
	for i, c := range in.Conditions {
		conditions[i] = domain.ConditionRange{Metric: metrics[i], Min: c.Min, Max: c.Max}
	}

	id, err := tx.NextTemplateID()
	if err != nil {
		return domain.Template{}, err
	}

	t := domain.Template{
		ID:          id,
		Author:      caller,
		Name:        in.Name,
		Description: in.Description,
		CropTypes:   crops,
		Conditions:  conditions,
		Weather: domain.WeatherRange{
			MinTemp:     in.Weather.MinTemp,
			MaxTemp:     in.Weather.MaxTemp,
			MinHumidity: in.Weather.MinHumidity,
			MaxHumidity: in.Weather.MaxHumidity,
			MaxUV:       in.Weather.MaxUV,
		},
		Actions:   append([]string(nil), in.Actions...),
		CreatedAt: now,
	}
	if err := tx.PutTemplate(t); err != nil {
		return domain.Template{}, err
	}
	return t, nil
}
