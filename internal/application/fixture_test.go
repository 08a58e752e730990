package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-agrisense/infrastructure/store/memory"
	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/ports"
	"github.com/ahrav/go-agrisense/internal/testutils"
)

// fixture is an Advisor over a fresh memory store with an admin, the
// standard vocabularies and two verified experts.
type fixture struct {
	t       *testing.T
	ctx     context.Context
	store   *memory.Store
	advisor *Advisor
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	store := memory.New()
	opts = append([]Option{WithClock(testutils.FixedClock())}, opts...)
	advisor, err := NewAdvisor(store, opts...)
	require.NoError(t, err)

	f := &fixture{t: t, ctx: context.Background(), store: store, advisor: advisor}

	_, err = advisor.Bootstrap(f.ctx, testutils.AdminID)
	require.NoError(t, err)

	vocab := map[domain.VocabularyKind][]string{
		domain.VocabularyCropType:     {testutils.CropWheat, testutils.CropMaize},
		domain.VocabularyHealthMetric: {testutils.MetricSoilPH, testutils.MetricNitrate},
		domain.VocabularyGoal:         {testutils.GoalYield, testutils.GoalWater},
	}
	for kind, terms := range vocab {
		for _, term := range terms {
			_, err := advisor.AddVocabularyTerm(f.ctx, testutils.AdminID, kind, term)
			require.NoError(t, err)
		}
	}

	for _, id := range []string{testutils.ExpertA, testutils.ExpertB} {
		_, err := advisor.VerifyExpert(f.ctx, testutils.AdminID, id, "MSc Agronomy")
		require.NoError(t, err)
	}
	return f
}

// templateInput accepts wheat at temperatures in [10,30], humidity in
// [20,80] and UV up to 8.
func templateInput(mutate ...func(*TemplateInput)) TemplateInput {
	in := TemplateInput{
		Name:        "Spring wheat irrigation",
		Description: "Irrigation schedule for spring wheat.",
		CropTypes:   []string{testutils.CropWheat},
		Conditions:  []ConditionInput{{Metric: testutils.MetricSoilPH, Min: 6, Max: 7}},
		Weather: WeatherRangeInput{
			MinTemp:     10,
			MaxTemp:     30,
			MinHumidity: 20,
			MaxHumidity: 80,
			MaxUV:       8,
		},
		Actions: []string{"irrigate at dawn", "check soil moisture"},
	}
	for _, m := range mutate {
		m(&in)
	}
	return in
}

func farmInput() FarmInput {
	return FarmInput{
		CropType:      testutils.CropWheat,
		FarmSize:      120,
		Latitude:      -33.86,
		Longitude:     151.21,
		HealthMetrics: []string{testutils.MetricSoilPH},
		Goals:         []string{testutils.GoalYield},
	}
}

func (f *fixture) publish(author string, mutate ...func(*TemplateInput)) uint64 {
	f.t.Helper()
	tmpl, err := f.advisor.PublishTemplate(f.ctx, author, templateInput(mutate...))
	require.NoError(f.t, err)
	return tmpl.ID
}

func (f *fixture) registerFarm(owner string) {
	f.t.Helper()
	_, err := f.advisor.RegisterFarm(f.ctx, owner, farmInput())
	require.NoError(f.t, err)
}

func (f *fixture) generate(owner string) uint64 {
	f.t.Helper()
	id, err := f.advisor.GenerateRecommendation(f.ctx, owner, testutils.MildReading())
	require.NoError(f.t, err)
	return id
}

func (f *fixture) template(id uint64) domain.Template {
	f.t.Helper()
	tmpl, ok, err := f.advisor.Template(f.ctx, id)
	require.NoError(f.t, err)
	require.True(f.t, ok, "template %d missing", id)
	return tmpl
}

func (f *fixture) expert(id string) domain.Expert {
	f.t.Helper()
	e, ok, err := f.advisor.Expert(f.ctx, id)
	require.NoError(f.t, err)
	require.True(f.t, ok, "expert %q missing", id)
	return e
}

func (f *fixture) recommendation(id uint64) domain.Recommendation {
	f.t.Helper()
	r, ok, err := f.advisor.Recommendation(f.ctx, id)
	require.NoError(f.t, err)
	require.True(f.t, ok, "recommendation %d missing", id)
	return r
}

// mutate writes directly to the store, bypassing every check.
func (f *fixture) mutate(fn func(tx ports.Tx) error) {
	f.t.Helper()
	require.NoError(f.t, f.store.RunInTransaction(f.ctx, fn))
}
