package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-agrisense/infrastructure/store/memory"
	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/ports"
	"github.com/ahrav/go-agrisense/internal/testutils"
)

// seededStore returns a memory store holding the given experts and
// templates.
func seededStore(t *testing.T, experts []domain.Expert, templates []domain.Template) *memory.Store {
	t.Helper()
	store := memory.New()
	err := store.RunInTransaction(context.Background(), func(tx ports.Tx) error {
		for _, e := range experts {
			if err := tx.PutExpert(e); err != nil {
				return err
			}
		}
		for _, tmpl := range templates {
			if err := tx.PutTemplate(tmpl); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return store
}

func TestMatcher_Select(t *testing.T) {
	tests := []struct {
		name      string
		experts   []domain.Expert
		templates []domain.Template
		reading   domain.WeatherReading
		want      uint64
		wantErr   error
	}{
		{
			name:    "no templates",
			reading: testutils.MildReading(),
			wantErr: domain.ErrAnalysisNotFound,
		},
		{
			name:      "single match",
			experts:   []domain.Expert{testutils.NewExpert(testutils.ExpertA, 80)},
			templates: []domain.Template{testutils.NewTemplate(3, testutils.ExpertA)},
			reading:   testutils.MildReading(),
			want:      3,
		},
		{
			name:    "crop mismatch",
			experts: []domain.Expert{testutils.NewExpert(testutils.ExpertA, 80)},
			templates: []domain.Template{
				testutils.NewTemplate(1, testutils.ExpertA, testutils.WithCropTypes(testutils.CropMaize)),
			},
			reading: testutils.MildReading(),
			wantErr: domain.ErrAnalysisNotFound,
		},
		{
			name:      "weather outside range",
			experts:   []domain.Expert{testutils.NewExpert(testutils.ExpertA, 80)},
			templates: []domain.Template{testutils.NewTemplate(1, testutils.ExpertA)},
			reading:   domain.WeatherReading{Temperature: 31, Humidity: 50, UVIndex: 5},
			wantErr:   domain.ErrAnalysisNotFound,
		},
		{
			name: "rated beats unrated despite author reputation",
			experts: []domain.Expert{
				testutils.NewExpert(testutils.ExpertA, 10),
				testutils.NewExpert(testutils.ExpertB, 100),
			},
			templates: []domain.Template{
				testutils.NewTemplate(1, testutils.ExpertB),
				testutils.NewTemplate(2, testutils.ExpertA, testutils.WithRating(1, 1)),
			},
			reading: testutils.MildReading(),
			want:    2,
		},
		{
			name: "higher average wins",
			experts: []domain.Expert{
				testutils.NewExpert(testutils.ExpertA, 80),
				testutils.NewExpert(testutils.ExpertB, 80),
			},
			templates: []domain.Template{
				testutils.NewTemplate(1, testutils.ExpertA, testutils.WithRating(4, 60)),
				testutils.NewTemplate(2, testutils.ExpertB, testutils.WithRating(1, 75)),
			},
			reading: testutils.MildReading(),
			want:    2,
		},
		{
			name: "reputation breaks rating tie",
			experts: []domain.Expert{
				testutils.NewExpert(testutils.ExpertA, 70),
				testutils.NewExpert(testutils.ExpertB, 90),
			},
			templates: []domain.Template{
				testutils.NewTemplate(1, testutils.ExpertA, testutils.WithRating(2, 50)),
				testutils.NewTemplate(2, testutils.ExpertB, testutils.WithRating(3, 50)),
			},
			reading: testutils.MildReading(),
			want:    2,
		},
		{
			name:    "lowest id breaks full tie",
			experts: []domain.Expert{testutils.NewExpert(testutils.ExpertA, 80)},
			templates: []domain.Template{
				testutils.NewTemplate(9, testutils.ExpertA),
				testutils.NewTemplate(4, testutils.ExpertA),
				testutils.NewTemplate(6, testutils.ExpertA),
			},
			reading: testutils.MildReading(),
			want:    4,
		},
		{
			name:    "missing author ranks with zero reputation",
			experts: []domain.Expert{testutils.NewExpert(testutils.ExpertA, 1)},
			templates: []domain.Template{
				testutils.NewTemplate(1, "ghost"),
				testutils.NewTemplate(2, testutils.ExpertA),
			},
			reading: testutils.MildReading(),
			want:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore(t, tt.experts, tt.templates)
			profile := testutils.NewParticipant(testutils.FarmOwner)

			var got uint64
			err := store.View(context.Background(), func(v ports.View) error {
				var err error
				got, err = Matcher{}.Select(v, profile, tt.reading)
				return err
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatcher_SelectIsDeterministic(t *testing.T) {
	store := seededStore(t,
		[]domain.Expert{testutils.NewExpert(testutils.ExpertA, 80), testutils.NewExpert(testutils.ExpertB, 80)},
		[]domain.Template{
			testutils.NewTemplate(5, testutils.ExpertB, testutils.WithRating(2, 40)),
			testutils.NewTemplate(2, testutils.ExpertA, testutils.WithRating(2, 40)),
			testutils.NewTemplate(7, testutils.ExpertA),
		})
	profile := testutils.NewParticipant(testutils.FarmOwner)

	for range 10 {
		err := store.View(context.Background(), func(v ports.View) error {
			got, err := Matcher{}.Select(v, profile, testutils.MildReading())
			require.NoError(t, err)
			assert.Equal(t, uint64(2), got)
			return nil
		})
		require.NoError(t, err)
	}
}
