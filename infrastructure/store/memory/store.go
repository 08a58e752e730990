// Package memory provides an in-memory implementation of the advisory store
// used for tests and ephemeral deployments.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/ahrav/go-agrisense/internal/domain"
	"github.com/ahrav/go-agrisense/internal/ports"
)

var _ ports.Store = (*Store)(nil)

// state is the complete contents of the store. A transaction works on a
// private clone and replaces the live state only on commit.
type state struct {
	admin           string
	participants    map[string]domain.Participant
	experts         map[string]domain.Expert
	templates       map[uint64]domain.Template
	recommendations map[uint64]domain.Recommendation
	feedback        map[uint64]domain.Feedback
	vocabularies    map[domain.VocabularyKind]map[string]struct{}

	nextTemplateID       uint64
	nextRecommendationID uint64
}

func newState() state {
	st := state{
		participants:         make(map[string]domain.Participant),
		experts:              make(map[string]domain.Expert),
		templates:            make(map[uint64]domain.Template),
		recommendations:      make(map[uint64]domain.Recommendation),
		feedback:             make(map[uint64]domain.Feedback),
		vocabularies:         make(map[domain.VocabularyKind]map[string]struct{}),
		nextTemplateID:       1,
		nextRecommendationID: 1,
	}
	for _, k := range domain.VocabularyKinds {
		st.vocabularies[k] = make(map[string]struct{})
	}
	return st
}

func (s state) clone() state {
	out := newState()
	out.admin = s.admin
	out.nextTemplateID = s.nextTemplateID
	out.nextRecommendationID = s.nextRecommendationID
	for k, v := range s.participants {
		out.participants[k] = v.Clone()
	}
	for k, v := range s.experts {
		out.experts[k] = v
	}
	for k, v := range s.templates {
		out.templates[k] = v.Clone()
	}
	for k, v := range s.recommendations {
		out.recommendations[k] = v
	}
	for k, v := range s.feedback {
		out.feedback[k] = v.Clone()
	}
	for kind, terms := range s.vocabularies {
		for term := range terms {
			out.vocabularies[kind][term] = struct{}{}
		}
	}
	return out
}

// Store is a mutex-guarded in-memory store. Transactions are fully
// serialized; readers see only committed state.
type Store struct {
	mu     sync.RWMutex
	state  state
	closed bool
}

// New creates an empty store with both counters at 1.
func New() *Store {
	return &Store{state: newState()}
}

// RunInTransaction executes fn against a private clone of the state and
// swaps it in only when fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ports.NewStoreError("store", "RunInTransaction", ports.ErrStoreClosed)
	}

	tx := &transaction{view: view{st: s.state.clone()}}
	if err := fn(tx); err != nil {
		return err
	}

	s.state = tx.st
	return nil
}

// View executes fn against the committed state while holding the read lock.
func (s *Store) View(ctx context.Context, fn func(v ports.View) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ports.NewStoreError("store", "View", ports.ErrStoreClosed)
	}

	return fn(&view{st: s.state})
}

// Close marks the store closed. Later calls fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// view answers lookups against a state. Every returned value is a copy so
// callers cannot reach into the store.
type view struct{ st state }

func (v *view) Admin() (string, error) { return v.st.admin, nil }

func (v *view) Participant(owner string) (domain.Participant, bool, error) {
	p, ok := v.st.participants[owner]
	return p.Clone(), ok, nil
}

func (v *view) Expert(id string) (domain.Expert, bool, error) {
	e, ok := v.st.experts[id]
	return e, ok, nil
}

func (v *view) Template(id uint64) (domain.Template, bool, error) {
	t, ok := v.st.templates[id]
	return t.Clone(), ok, nil
}

func (v *view) Templates() ([]domain.Template, error) {
	out := make([]domain.Template, 0, len(v.st.templates))
	for _, t := range v.st.templates {
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(a, b domain.Template) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (v *view) Recommendation(id uint64) (domain.Recommendation, bool, error) {
	r, ok := v.st.recommendations[id]
	return r, ok, nil
}

func (v *view) Feedback(recommendationID uint64) (domain.Feedback, bool, error) {
	f, ok := v.st.feedback[recommendationID]
	return f.Clone(), ok, nil
}

func (v *view) Vocabulary(kind domain.VocabularyKind) ([]string, error) {
	terms, ok := v.st.vocabularies[kind]
	if !ok {
		return nil, ports.NewStoreError("vocabulary", "Vocabulary", ports.ErrUnknownVocabulary)
	}
	out := make([]string, 0, len(terms))
	for term := range terms {
		out = append(out, term)
	}
	slices.Sort(out)
	return out, nil
}

func (v *view) HasTerm(kind domain.VocabularyKind, term string) (bool, error) {
	terms, ok := v.st.vocabularies[kind]
	if !ok {
		return false, ports.NewStoreError("vocabulary", "HasTerm", ports.ErrUnknownVocabulary)
	}
	_, found := terms[term]
	return found, nil
}

// transaction mutates its private clone of the state.
type transaction struct{ view }

func (tx *transaction) SetAdmin(id string) error {
	tx.st.admin = id
	return nil
}

func (tx *transaction) PutParticipant(p domain.Participant) error {
	tx.st.participants[p.Owner] = p.Clone()
	return nil
}

func (tx *transaction) PutExpert(e domain.Expert) error {
	tx.st.experts[e.ID] = e
	return nil
}

func (tx *transaction) PutTemplate(t domain.Template) error {
	tx.st.templates[t.ID] = t.Clone()
	return nil
}

func (tx *transaction) PutRecommendation(r domain.Recommendation) error {
	tx.st.recommendations[r.ID] = r
	return nil
}

func (tx *transaction) PutFeedback(f domain.Feedback) error {
	tx.st.feedback[f.RecommendationID] = f.Clone()
	return nil
}

func (tx *transaction) AddTerm(kind domain.VocabularyKind, term string) error {
	terms, ok := tx.st.vocabularies[kind]
	if !ok {
		return ports.NewStoreError("vocabulary", "AddTerm", ports.ErrUnknownVocabulary)
	}
	terms[term] = struct{}{}
	return nil
}

func (tx *transaction) NextTemplateID() (uint64, error) {
	id := tx.st.nextTemplateID
	tx.st.nextTemplateID++
	return id, nil
}

func (tx *transaction) NextRecommendationID() (uint64, error) {
	id := tx.st.nextRecommendationID
	tx.st.nextRecommendationID++
	return id, nil
}
