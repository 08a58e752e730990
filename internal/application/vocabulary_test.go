package application

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/testutils"
)

func TestNormalizeTerm(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "already normal", raw: "wheat", want: "wheat"},
		{name: "upper case", raw: "WHEAT", want: "wheat"},
		{name: "surrounding space", raw: "  Soil-PH\t", want: "soil-ph"},
		{name: "inner space kept", raw: "Water Saving", want: "water saving"},
		{name: "unicode folding", raw: "Straße", want: "strasse"},
		{name: "empty", raw: "", wantErr: true},
		{name: "blank", raw: "   ", wantErr: true},
		{name: "control character", raw: "whe\x00at", wantErr: true},
		{name: "at length limit", raw: strings.Repeat("a", MaxTermLength), want: strings.Repeat("a", MaxTermLength)},
		{name: "over length limit", raw: strings.Repeat("a", MaxTermLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTerm(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidVocabularyTerm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuggest(t *testing.T) {
	vocab := []string{"barley", "maize", "wheat"}

	tests := []struct {
		name   string
		term   string
		want   string
		wantOK bool
	}{
		{name: "single typo", term: "wheet", want: "wheat", wantOK: true},
		{name: "missing letter", term: "barly", want: "barley", wantOK: true},
		{name: "too different", term: "rice", want: "maize", wantOK: false},
		{name: "exact", term: "barley", want: "barley", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Suggest(tt.term, vocab)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}

	_, ok := Suggest("wheat", nil)
	assert.False(t, ok, "empty vocabulary has no suggestion")
}

func TestAdvisor_AddVocabularyTerm(t *testing.T) {
	tests := []struct {
		name    string
		caller  string
		kind    domain.VocabularyKind
		term    string
		want    string
		wantErr error
	}{
		{name: "normalizes", caller: testutils.AdminID, kind: domain.VocabularyCropType, term: "  Barley ", want: "barley"},
		{name: "same term in another vocabulary", caller: testutils.AdminID, kind: domain.VocabularyGoal, term: "wheat", want: "wheat"},
		{name: "duplicate after folding", caller: testutils.AdminID, kind: domain.VocabularyCropType, term: "WHEAT", wantErr: domain.ErrVocabularyTermExists},
		{name: "non-admin", caller: testutils.ExpertA, kind: domain.VocabularyCropType, term: "barley", wantErr: domain.ErrNotAuthorized},
		{name: "unknown vocabulary", caller: testutils.AdminID, kind: "soil-type", term: "loam", wantErr: domain.ErrInvalidInput},
		{name: "empty term", caller: testutils.AdminID, kind: domain.VocabularyGoal, term: " ", wantErr: domain.ErrInvalidVocabularyTerm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			got, err := f.advisor.AddVocabularyTerm(f.ctx, tt.caller, tt.kind, tt.term)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			terms, err := f.advisor.Vocabulary(f.ctx, tt.kind)
			require.NoError(t, err)
			assert.Contains(t, terms, tt.want)
		})
	}
}
