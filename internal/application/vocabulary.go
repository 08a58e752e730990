package application

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/ports"
)

// MaxTermLength bounds the length of a vocabulary term in runes.
const MaxTermLength = 64

// minSuggestionSimilarity is the lowest normalized Levenshtein similarity
// at which a vocabulary term is offered as a correction.
const minSuggestionSimilarity = 0.6

// NormalizeTerm trims surrounding whitespace and applies Unicode case
// folding so that "Wheat", "WHEAT" and " wheat " name the same term.
// It rejects empty terms, terms longer than MaxTermLength and terms
// containing control characters.
func NormalizeTerm(raw string) (string, error) {
	term := strings.TrimSpace(raw)
	if term == "" {
		return "", fmt.Errorf("%w: empty term", domain.ErrInvalidVocabularyTerm)
	}
	if n := utf8.RuneCountInString(term); n > MaxTermLength {
		return "", fmt.Errorf("%w: %d runes exceeds %d", domain.ErrInvalidVocabularyTerm, n, MaxTermLength)
	}
	if strings.IndexFunc(term, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("%w: control character in %q", domain.ErrInvalidVocabularyTerm, term)
	}
	// Casers carry state and must not be shared between goroutines.
	return cases.Fold().String(term), nil
}

// Suggest returns the vocabulary term closest to term by Levenshtein
// distance, provided it is similar enough to be a plausible typo. Ties go
// to the earlier term in vocabulary order.
func Suggest(term string, vocabulary []string) (string, bool) {
	var (
		best     string
		bestDist = -1
	)
	for _, candidate := range vocabulary {
		d := levenshtein.ComputeDistance(term, candidate)
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if bestDist < 0 {
		return "", false
	}
	return best, similarity(term, best, bestDist) >= minSuggestionSimilarity
}

// similarity converts an edit distance into a score in [0,1] relative to
// the longer string's rune count.
func similarity(a, b string, distance int) float64 {
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// resolveTerms normalizes each raw term and checks it against vocabulary
// kind. Every unknown term is reported, with a suggestion when one exists,
// in a single ValidationError whose cause is the given sentinel.
func resolveTerms(
	v ports.View,
	kind domain.VocabularyKind,
	field string,
	raw []string,
	cause *domain.CodedError,
) ([]string, error) {
	if raw == nil {
		return nil, nil
	}

	verr := domain.NewValidationError(field, cause)
	out := make([]string, 0, len(raw))
	var known []string

	for _, r := range raw {
		term, err := NormalizeTerm(r)
		if err != nil {
			verr.AddError(err.Error())
			continue
		}

		ok, err := v.HasTerm(kind, term)
		if err != nil {
			return nil, err
		}
		if !ok {
			if known == nil {
				if known, err = v.Vocabulary(kind); err != nil {
					return nil, err
				}
			}
			msg := fmt.Sprintf("%q is not a known %s", term, kind)
			if s, found := Suggest(term, known); found {
				msg += fmt.Sprintf(" (did you mean %q?)", s)
			}
			verr.AddError(msg)
			continue
		}
		out = append(out, term)
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return out, nil
}
