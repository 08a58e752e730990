package ports

import (
	"context"

	"github.com/ahrav/go-agrisense/internal/domain"
)

// View is a read-only, consistent snapshot of the advisory store.
// Lookups report absence through the boolean result rather than an error;
// errors are reserved for infrastructure failures.
type View interface {
	// Admin returns the admin identity, or "" before bootstrap.
	Admin() (string, error)

	Participant(owner string) (domain.Participant, bool, error)
	Expert(id string) (domain.Expert, bool, error)
	Template(id uint64) (domain.Template, bool, error)

	// Templates returns every template ordered by ascending id.
	Templates() ([]domain.Template, error)

	Recommendation(id uint64) (domain.Recommendation, bool, error)
	Feedback(recommendationID uint64) (domain.Feedback, bool, error)

	// Vocabulary returns the terms of kind in ascending order.
	Vocabulary(kind domain.VocabularyKind) ([]string, error)

	// HasTerm reports whether term is a member of vocabulary kind.
	HasTerm(kind domain.VocabularyKind, term string) (bool, error)
}

// Tx is a mutable unit of work. Writes become visible to other callers only
// when the enclosing RunInTransaction returns nil; otherwise every write,
// including counter advances, is discarded.
type Tx interface {
	View

	// SetAdmin records the admin identity.
	SetAdmin(id string) error

	PutParticipant(p domain.Participant) error
	PutExpert(e domain.Expert) error
	PutTemplate(t domain.Template) error
	PutRecommendation(r domain.Recommendation) error
	PutFeedback(f domain.Feedback) error
	AddTerm(kind domain.VocabularyKind, term string) error

	// NextTemplateID returns the next template id and advances the counter.
	// The first id is 1.
	NextTemplateID() (uint64, error)

	// NextRecommendationID returns the next recommendation id and advances
	// the counter. The first id is 1.
	NextRecommendationID() (uint64, error)
}

// Store is the single shared state of the advisory engine. Implementations
// must serialize transactions so that no two mutating operations ever
// interleave, and must commit each transaction in full or not at all.
type Store interface {
	// RunInTransaction executes fn inside one atomic unit. A non-nil error
	// from fn aborts the transaction and is returned unchanged.
	RunInTransaction(ctx context.Context, fn func(tx Tx) error) error

	// View executes fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(v View) error) error

	// Close releases any resources held by the store.
	Close() error
}
