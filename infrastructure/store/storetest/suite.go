// Package storetest holds behaviour tests every ports.Store implementation
// must pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/ports"
	"github.com/ahrav/go-agrisense/internal/testutils"
)

// Factory creates a fresh, empty store for one subtest.
type Factory func(t *testing.T) ports.Store

// Run executes the conformance suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("empty store", func(t *testing.T) { testEmpty(t, newStore(t)) })
	t.Run("round trip", func(t *testing.T) { testRoundTrip(t, newStore(t)) })
	t.Run("counters start at one", func(t *testing.T) { testCounters(t, newStore(t)) })
	t.Run("rollback discards writes", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("templates ordered by id", func(t *testing.T) { testTemplateOrder(t, newStore(t)) })
	t.Run("vocabularies", func(t *testing.T) { testVocabularies(t, newStore(t)) })
	t.Run("returned values are copies", func(t *testing.T) { testIsolation(t, newStore(t)) })
	t.Run("closed store", func(t *testing.T) { testClosed(t, newStore(t)) })
}

func testEmpty(t *testing.T, s ports.Store) {
	err := s.View(context.Background(), func(v ports.View) error {
		admin, err := v.Admin()
		require.NoError(t, err)
		assert.Empty(t, admin)

		_, ok, err := v.Participant(testutils.FarmOwner)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = v.Template(1)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = v.Recommendation(1)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = v.Feedback(1)
		require.NoError(t, err)
		assert.False(t, ok)

		all, err := v.Templates()
		require.NoError(t, err)
		assert.Empty(t, all)
		return nil
	})
	require.NoError(t, err)
}

func testRoundTrip(t *testing.T, s ports.Store) {
	ctx := context.Background()
	comment := "worked well"
	tmpl := testutils.NewTemplate(1, testutils.ExpertA, testutils.WithRating(2, 70))
	rec := domain.Recommendation{
		ID:          1,
		Owner:       testutils.FarmOwner,
		TemplateID:  1,
		Weather:     testutils.MildReading(),
		GeneratedAt: testutils.FixedTime,
		HasFeedback: true,
	}
	rec.Weather.ObservedAt = testutils.FixedTime
	fb := domain.Feedback{
		RecommendationID: 1,
		Rater:            testutils.ExpertA,
		Rating:           90,
		Comment:          &comment,
		SubmittedAt:      testutils.FixedTime,
	}

	err := s.RunInTransaction(ctx, func(tx ports.Tx) error {
		require.NoError(t, tx.SetAdmin(testutils.AdminID))
		require.NoError(t, tx.PutParticipant(testutils.NewParticipant(testutils.FarmOwner)))
		require.NoError(t, tx.PutExpert(testutils.NewExpert(testutils.ExpertA, 80)))
		require.NoError(t, tx.PutTemplate(tmpl))
		require.NoError(t, tx.PutRecommendation(rec))
		return tx.PutFeedback(fb)
	})
	require.NoError(t, err)

	err = s.View(ctx, func(v ports.View) error {
		admin, err := v.Admin()
		require.NoError(t, err)
		assert.Equal(t, testutils.AdminID, admin)

		p, ok, err := v.Participant(testutils.FarmOwner)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, testutils.NewParticipant(testutils.FarmOwner), p)

		e, ok, err := v.Expert(testutils.ExpertA)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, testutils.NewExpert(testutils.ExpertA, 80), e)

		got, ok, err := v.Template(1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, tmpl, got)

		gotRec, ok, err := v.Recommendation(1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, rec, gotRec)

		gotFb, ok, err := v.Feedback(1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, fb, gotFb)
		return nil
	})
	require.NoError(t, err)
}

func testCounters(t *testing.T, s ports.Store) {
	ctx := context.Background()
	var tmplIDs, recIDs []uint64

	for range 3 {
		err := s.RunInTransaction(ctx, func(tx ports.Tx) error {
			id, err := tx.NextTemplateID()
			if err != nil {
				return err
			}
			tmplIDs = append(tmplIDs, id)

			id, err = tx.NextRecommendationID()
			if err != nil {
				return err
			}
			recIDs = append(recIDs, id)
			return nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []uint64{1, 2, 3}, tmplIDs)
	assert.Equal(t, []uint64{1, 2, 3}, recIDs)
}

func testRollback(t *testing.T, s ports.Store) {
	ctx := context.Background()
	abort := errors.New("abort")

	err := s.RunInTransaction(ctx, func(tx ports.Tx) error {
		id, err := tx.NextTemplateID()
		require.NoError(t, err)
		require.NoError(t, tx.PutTemplate(testutils.NewTemplate(id, testutils.ExpertA)))
		require.NoError(t, tx.PutExpert(testutils.NewExpert(testutils.ExpertA, 80)))
		require.NoError(t, tx.AddTerm(domain.VocabularyCropType, testutils.CropWheat))
		_, err = tx.NextRecommendationID()
		require.NoError(t, err)
		return abort
	})
	require.ErrorIs(t, err, abort)

	err = s.RunInTransaction(ctx, func(tx ports.Tx) error {
		_, ok, err := tx.Template(1)
		require.NoError(t, err)
		assert.False(t, ok, "template write must be discarded")

		_, ok, err = tx.Expert(testutils.ExpertA)
		require.NoError(t, err)
		assert.False(t, ok, "expert write must be discarded")

		has, err := tx.HasTerm(domain.VocabularyCropType, testutils.CropWheat)
		require.NoError(t, err)
		assert.False(t, has, "vocabulary write must be discarded")

		id, err := tx.NextTemplateID()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id, "template counter must not advance")

		id, err = tx.NextRecommendationID()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id, "recommendation counter must not advance")
		return nil
	})
	require.NoError(t, err)
}

func testTemplateOrder(t *testing.T, s ports.Store) {
	ctx := context.Background()

	err := s.RunInTransaction(ctx, func(tx ports.Tx) error {
		for _, id := range []uint64{3, 1, 2} {
			if err := tx.PutTemplate(testutils.NewTemplate(id, testutils.ExpertA)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = s.View(ctx, func(v ports.View) error {
		all, err := v.Templates()
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i, tmpl := range all {
			assert.Equal(t, uint64(i+1), tmpl.ID)
		}
		return nil
	})
	require.NoError(t, err)
}

func testVocabularies(t *testing.T, s ports.Store) {
	ctx := context.Background()

	err := s.RunInTransaction(ctx, func(tx ports.Tx) error {
		require.NoError(t, tx.AddTerm(domain.VocabularyCropType, testutils.CropWheat))
		require.NoError(t, tx.AddTerm(domain.VocabularyCropType, testutils.CropMaize))
		require.NoError(t, tx.AddTerm(domain.VocabularyGoal, testutils.GoalYield))
		return nil
	})
	require.NoError(t, err)

	err = s.View(ctx, func(v ports.View) error {
		crops, err := v.Vocabulary(domain.VocabularyCropType)
		require.NoError(t, err)
		assert.Equal(t, []string{testutils.CropMaize, testutils.CropWheat}, crops)

		metrics, err := v.Vocabulary(domain.VocabularyHealthMetric)
		require.NoError(t, err)
		assert.Empty(t, metrics)

		has, err := v.HasTerm(domain.VocabularyGoal, testutils.GoalYield)
		require.NoError(t, err)
		assert.True(t, has)

		has, err = v.HasTerm(domain.VocabularyCropType, testutils.GoalYield)
		require.NoError(t, err)
		assert.False(t, has, "terms are scoped to their vocabulary")

		_, err = v.Vocabulary(domain.VocabularyKind("soil"))
		assert.ErrorIs(t, err, ports.ErrUnknownVocabulary)
		return nil
	})
	require.NoError(t, err)
}

func testIsolation(t *testing.T, s ports.Store) {
	ctx := context.Background()

	err := s.RunInTransaction(ctx, func(tx ports.Tx) error {
		return tx.PutTemplate(testutils.NewTemplate(1, testutils.ExpertA))
	})
	require.NoError(t, err)

	err = s.View(ctx, func(v ports.View) error {
		tmpl, ok, err := v.Template(1)
		require.NoError(t, err)
		require.True(t, ok)
		tmpl.Actions[0] = "tampered"
		tmpl.CropTypes[0] = "tampered"
		return nil
	})
	require.NoError(t, err)

	err = s.View(ctx, func(v ports.View) error {
		tmpl, _, err := v.Template(1)
		require.NoError(t, err)
		assert.Equal(t, "irrigate at dawn", tmpl.Actions[0])
		assert.Equal(t, testutils.CropWheat, tmpl.CropTypes[0])
		return nil
	})
	require.NoError(t, err)
}

func testClosed(t *testing.T, s ports.Store) {
	ctx := context.Background()
	require.NoError(t, s.Close())

	err := s.View(ctx, func(ports.View) error { return nil })
	assert.ErrorIs(t, err, ports.ErrStoreClosed)

	err = s.RunInTransaction(ctx, func(ports.Tx) error { return nil })
	assert.ErrorIs(t, err, ports.ErrStoreClosed)
}
