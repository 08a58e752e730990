// Package application implements the advisory engine's operations on top of
// the ports.Store abstraction: access checks, template matching, the
// recommendation ledger, rating aggregation and the registry operations
// that populate the stores.
package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/ports"
)

// Operation names reported to observers, logs and wrapped errors.
const (
	OpBootstrap              = "Bootstrap"
	OpVerifyExpert           = "VerifyExpert"
	OpAddVocabularyTerm      = "AddVocabularyTerm"
	OpRegisterFarm           = "RegisterFarm"
	OpUpdateFarm             = "UpdateFarm"
	OpPublishTemplate        = "PublishTemplate"
	OpGenerateRecommendation = "GenerateRecommendation"
	OpFindBestAnalysis       = "FindBestAnalysis"
	OpSubmitFeedback         = "SubmitFeedback"
)

// Metric names recorded by the Advisor in addition to whatever the
// observer records per operation.
const (
	MetricFeedbackRating        = "feedback_rating"
	MetricTemplateAverageRating = "template_average_rating"
	MetricExpertReputation      = "expert_reputation"
)

// Advisor is the entry point to the advisory engine. Every mutating method
// runs as exactly one store transaction: either all of its writes commit or
// none do. Caller identity is always an explicit argument; authentication
// happens at the transport boundary.
//
// Advisor is safe for concurrent use; the store serializes transactions.
type Advisor struct {
	store    ports.Store
	registry Registry
	ledger   Ledger
	matcher  Matcher

	observer ports.OperationObserver
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithLogger sets the logger. The default discards all output.
func WithLogger(l *zap.Logger) Option {
	return func(a *Advisor) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Advisor) {
		if now != nil {
			a.now = now
		}
	}
}

// WithObserver installs an observer that wraps every operation.
func WithObserver(o ports.OperationObserver) Option {
	return func(a *Advisor) {
		if o != nil {
			a.observer = o
		}
	}
}

// WithMetrics installs the collector for rating and reputation metrics.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(a *Advisor) {
		if m != nil {
			a.metrics = m
		}
	}
}

// NewAdvisor creates an Advisor over store.
// NewAdvisor returns an error if the input validator cannot be built.
func NewAdvisor(store ports.Store, opts ...Option) (*Advisor, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	a := &Advisor{
		store:    store,
		registry: NewRegistry(v),
		observer: nopObserver{},
		metrics:  nopMetrics{},
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// run wraps one operation with the observer and logging, and tags any
// failure with the operation name.
func (a *Advisor) run(
	ctx context.Context,
	op string,
	attrs map[string]string,
	fn func(ctx context.Context) error,
) error {
	ctx, done := a.observer.Start(ctx, op, attrs)

	err := fn(ctx)
	if err != nil {
		err = domain.NewOperationError(op, err)
		fields := []zap.Field{
			zap.String("operation", op),
			zap.String("code", domain.CodeOf(err)),
			zap.Error(err),
		}
		for k, v := range attrs {
			fields = append(fields, zap.String(k, v))
		}
		if domain.KindOf(err) == domain.KindInternal {
			a.logger.Error("operation failed", fields...)
		} else {
			a.logger.Debug("operation rejected", fields...)
		}
	}

	done(err)
	return err
}

func (a *Advisor) transact(
	ctx context.Context,
	op string,
	attrs map[string]string,
	fn func(tx ports.Tx) error,
) error {
	return a.run(ctx, op, attrs, func(ctx context.Context) error {
		return a.store.RunInTransaction(ctx, fn)
	})
}

// Bootstrap records adminID as the admin identity unless the store already
// has one, and returns the admin identity in effect.
func (a *Advisor) Bootstrap(ctx context.Context, adminID string) (string, error) {
	var admin string
	err := a.transact(ctx, OpBootstrap, map[string]string{"admin": adminID}, func(tx ports.Tx) error {
		var err error
		admin, err = a.registry.BootstrapAdmin(tx, adminID)
		return err
	})
	if err != nil {
		return "", err
	}
	if admin != adminID {
		a.logger.Warn("configured admin ignored; store already has an admin",
			zap.String("configured", adminID), zap.String("admin", admin))
	}
	return admin, nil
}

// VerifyExpert registers expertID as a verified expert with reputation 80.
// Only the admin may call it.
//
// Errors: ErrNotAuthorized, ErrExpertAlreadyVerified, ErrInvalidInput.
func (a *Advisor) VerifyExpert(ctx context.Context, caller, expertID, credentials string) (domain.Expert, error) {
	var expert domain.Expert
	attrs := map[string]string{"caller": caller, "expert_id": expertID}
	err := a.transact(ctx, OpVerifyExpert, attrs, func(tx ports.Tx) error {
		var err error
		expert, err = a.registry.VerifyExpert(tx, caller, expertID, credentials, a.now())
		return err
	})
	if err != nil {
		return domain.Expert{}, err
	}

	a.metrics.RecordGauge(MetricExpertReputation, float64(expert.Reputation), map[string]string{"expert_id": expert.ID})
	a.logger.Info("expert verified", zap.String("expert_id", expert.ID), zap.Uint8("reputation", expert.Reputation))
	return expert, nil
}

// AddVocabularyTerm adds term to vocabulary kind and returns the stored,
// normalized form. Only the admin may call it.
//
// Errors: ErrNotAuthorized, ErrInvalidInput, ErrInvalidVocabularyTerm,
// ErrVocabularyTermExists.
func (a *Advisor) AddVocabularyTerm(
	ctx context.Context,
	caller string,
	kind domain.VocabularyKind,
	term string,
) (string, error) {
	var stored string
	attrs := map[string]string{"caller": caller, "vocabulary": string(kind)}
	err := a.transact(ctx, OpAddVocabularyTerm, attrs, func(tx ports.Tx) error {
		var err error
		stored, err = a.registry.AddVocabularyTerm(tx, caller, kind, term)
		return err
	})
	if err != nil {
		return "", err
	}

	a.logger.Info("vocabulary term added", zap.String("vocabulary", string(kind)), zap.String("term", stored))
	return stored, nil
}

// RegisterFarm creates the caller's farm profile.
//
// Errors: ErrNotAuthorized, ErrFarmAlreadyRegistered, ErrInvalidInput,
// ErrInvalidCropType, ErrInvalidVocabularyTerm.
func (a *Advisor) RegisterFarm(ctx context.Context, caller string, in FarmInput) (domain.Participant, error) {
	var p domain.Participant
	err := a.transact(ctx, OpRegisterFarm, map[string]string{"caller": caller}, func(tx ports.Tx) error {
		var err error
		p, err = a.registry.RegisterFarm(tx, caller, in, a.now())
		return err
	})
	if err != nil {
		return domain.Participant{}, err
	}

	a.logger.Info("farm registered", zap.String("owner", p.Owner), zap.String("crop_type", p.CropType))
	return p, nil
}

// UpdateFarm replaces the caller's farm profile.
//
// Errors: ErrFarmNotFound, ErrInvalidInput, ErrInvalidCropType,
// ErrInvalidVocabularyTerm.
func (a *Advisor) UpdateFarm(ctx context.Context, caller string, in FarmInput) (domain.Participant, error) {
	var p domain.Participant
	err := a.transact(ctx, OpUpdateFarm, map[string]string{"caller": caller}, func(tx ports.Tx) error {
		var err error
		p, err = a.registry.UpdateFarm(tx, caller, in)
		return err
	})
	if err != nil {
		return domain.Participant{}, err
	}

	a.logger.Info("farm updated", zap.String("owner", p.Owner), zap.String("crop_type", p.CropType))
	return p, nil
}

// PublishTemplate stores a template authored by the caller, who must be a
// verified expert.
//
// Errors: ErrNotAuthorized, ErrInvalidInput, ErrInvalidCropType,
// ErrInvalidVocabularyTerm.
func (a *Advisor) PublishTemplate(ctx context.Context, caller string, in TemplateInput) (domain.Template, error) {
	var t domain.Template
	err := a.transact(ctx, OpPublishTemplate, map[string]string{"caller": caller}, func(tx ports.Tx) error {
		var err error
		t, err = a.registry.PublishTemplate(tx, caller, in, a.now())
		return err
	})
	if err != nil {
		return domain.Template{}, err
	}

	a.logger.Info("template published",
		zap.Uint64("template_id", t.ID),
		zap.String("author", t.Author),
		zap.Strings("crop_types", t.CropTypes))
	return t, nil
}

// GenerateRecommendation selects the best template for the caller's farm
// under reading and records a recommendation. It returns the new
// recommendation id.
//
// Errors: ErrFarmNotFound, ErrInvalidWeatherData, ErrAnalysisNotFound.
func (a *Advisor) GenerateRecommendation(
	ctx context.Context,
	caller string,
	reading domain.WeatherReading,
) (uint64, error) {
	var rec domain.Recommendation
	err := a.transact(ctx, OpGenerateRecommendation, map[string]string{"caller": caller}, func(tx ports.Tx) error {
		var err error
		rec, err = a.ledger.Generate(tx, caller, reading, a.now())
		return err
	})
	if err != nil {
		return 0, err
	}

	a.logger.Info("recommendation generated",
		zap.Uint64("recommendation_id", rec.ID),
		zap.String("owner", rec.Owner),
		zap.Uint64("template_id", rec.TemplateID))
	return rec.ID, nil
}

// FindBestAnalysis returns the id of the template GenerateRecommendation
// would select for the caller, without recording anything. The reading is
// matched as given; it is not checked against the sane weather domain.
//
// Errors: ErrFarmNotFound, ErrAnalysisNotFound.
func (a *Advisor) FindBestAnalysis(
	ctx context.Context,
	caller string,
	reading domain.WeatherReading,
) (uint64, error) {
	var id uint64
	err := a.run(ctx, OpFindBestAnalysis, map[string]string{"caller": caller}, func(ctx context.Context) error {
		return a.store.View(ctx, func(v ports.View) error {
			profile, ok, err := v.Participant(caller)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrFarmNotFound
			}
			id, err = a.matcher.Select(v, profile, reading)
			return err
		})
	})
	return id, err
}

// SubmitFeedback rates a recommendation on behalf of its owner and applies
// the rating to the matched template and its author in the same
// transaction. A recommendation can be rated once.
//
// Errors: ErrNotAuthorized, ErrRecommendationNotFound, ErrAlreadyRated,
// ErrInvalidRating, ErrAnalysisNotFound.
func (a *Advisor) SubmitFeedback(
	ctx context.Context,
	caller string,
	recommendationID uint64,
	rating uint,
	comment *string,
) error {
	if comment != nil {
		c := *comment
		comment = &c
	}

	var s Settlement
	attrs := map[string]string{
		"caller":            caller,
		"recommendation_id": strconv.FormatUint(recommendationID, 10),
	}
	err := a.transact(ctx, OpSubmitFeedback, attrs, func(tx ports.Tx) error {
		var err error
		s, err = a.ledger.RecordFeedback(tx, caller, recommendationID, rating, comment, a.now())
		return err
	})
	if err != nil {
		return err
	}

	u := s.Update
	a.metrics.RecordHistogram(MetricFeedbackRating, float64(s.Feedback.Rating), nil)
	a.metrics.RecordGauge(MetricTemplateAverageRating, float64(u.AverageRating),
		map[string]string{"template_id": strconv.FormatUint(u.TemplateID, 10)})
	a.metrics.RecordGauge(MetricExpertReputation, float64(u.Reputation),
		map[string]string{"expert_id": u.ExpertID})

	a.logger.Info("feedback recorded",
		zap.Uint64("recommendation_id", recommendationID),
		zap.Uint8("rating", s.Feedback.Rating),
		zap.Uint64("template_id", u.TemplateID),
		zap.Uint64("rating_count", u.RatingCount),
		zap.Uint64("average_rating", u.AverageRating),
		zap.String("expert_id", u.ExpertID),
		zap.Uint8("reputation_before", u.PrevReputation),
		zap.Uint8("reputation", u.Reputation))
	return nil
}

// Admin returns the admin identity, or "" before Bootstrap.
func (a *Advisor) Admin(ctx context.Context) (string, error) {
	var admin string
	err := a.store.View(ctx, func(v ports.View) error {
		var err error
		admin, err = v.Admin()
		return err
	})
	return admin, err
}

// Participant returns the farm profile owned by owner.
func (a *Advisor) Participant(ctx context.Context, owner string) (domain.Participant, bool, error) {
	var (
		p  domain.Participant
		ok bool
	)
	err := a.store.View(ctx, func(v ports.View) error {
		var err error
		p, ok, err = v.Participant(owner)
		return err
	})
	return p, ok, err
}

// Expert returns the verified expert with id.
func (a *Advisor) Expert(ctx context.Context, id string) (domain.Expert, bool, error) {
	var (
		e  domain.Expert
		ok bool
	)
	err := a.store.View(ctx, func(v ports.View) error {
		var err error
		e, ok, err = v.Expert(id)
		return err
	})
	return e, ok, err
}

// Template returns the template with id.
func (a *Advisor) Template(ctx context.Context, id uint64) (domain.Template, bool, error) {
	var (
		t  domain.Template
		ok bool
	)
	err := a.store.View(ctx, func(v ports.View) error {
		var err error
		t, ok, err = v.Template(id)
		return err
	})
	return t, ok, err
}

// Templates returns every template in ascending id order.
func (a *Advisor) Templates(ctx context.Context) ([]domain.Template, error) {
	var all []domain.Template
	err := a.store.View(ctx, func(v ports.View) error {
		var err error
		all, err = v.Templates()
		return err
	})
	return all, err
}

// Recommendation returns the recommendation with id.
func (a *Advisor) Recommendation(ctx context.Context, id uint64) (domain.Recommendation, bool, error) {
	var (
		r  domain.Recommendation
		ok bool
	)
	err := a.store.View(ctx, func(v ports.View) error {
		var err error
		r, ok, err = v.Recommendation(id)
		return err
	})
	return r, ok, err
}

// Feedback returns the feedback recorded for a recommendation.
func (a *Advisor) Feedback(ctx context.Context, recommendationID uint64) (domain.Feedback, bool, error) {
	var (
		f  domain.Feedback
		ok bool
	)
	err := a.store.View(ctx, func(v ports.View) error {
		var err error
		f, ok, err = v.Feedback(recommendationID)
		return err
	})
	return f, ok, err
}

// Vocabulary returns the terms of kind in ascending order.
func (a *Advisor) Vocabulary(ctx context.Context, kind domain.VocabularyKind) ([]string, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown vocabulary %q", domain.ErrInvalidInput, kind)
	}
	var terms []string
	err := a.store.View(ctx, func(v ports.View) error {
		var err error
		terms, err = v.Vocabulary(kind)
		return err
	})
	return terms, err
}

type nopObserver struct{}

func (nopObserver) Start(ctx context.Context, _ string, _ map[string]string) (context.Context, func(error)) {
	return ctx, func(error) {}
}

type nopMetrics struct{}

func (nopMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (nopMetrics) RecordCounter(string, float64, map[string]string)       {}
func (nopMetrics) RecordGauge(string, float64, map[string]string)         {}
func (nopMetrics) RecordHistogram(string, float64, map[string]string)     {}
