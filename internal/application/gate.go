package application

import "github.com/ahrav/go-agrisense/internal/ports"

// Gate answers the role and ownership questions every mutating operation
// asks before touching state. Its predicates are pure reads over a store
// view and never write.
type Gate struct {
	view ports.View
}

// NewGate returns a Gate that reads from v.
func NewGate(v ports.View) Gate {
	return Gate{view: v}
}

// IsAdmin reports whether caller is the admin identity. An empty caller is
// never the admin, even before an admin has been bootstrapped.
func (g Gate) IsAdmin(caller string) (bool, error) {
	if caller == "" {
		return false, nil
	}
	admin, err := g.view.Admin()
	if err != nil {
		return false, err
	}
	return admin == caller, nil
}

// IsRegisteredParticipant reports whether id owns a farm profile.
func (g Gate) IsRegisteredParticipant(id string) (bool, error) {
	_, ok, err := g.view.Participant(id)
	return ok, err
}

// IsVerifiedExpert reports whether id has been verified by the admin.
func (g Gate) IsVerifiedExpert(id string) (bool, error) {
	_, ok, err := g.view.Expert(id)
	return ok, err
}

// OwnsRecommendation reports whether caller is the participant the
// recommendation was generated for. Unknown recommendations are owned by
// no one.
func (g Gate) OwnsRecommendation(caller string, recommendationID uint64) (bool, error) {
	rec, ok, err := g.view.Recommendation(recommendationID)
	if err != nil || !ok {
		return false, err
	}
	return rec.Owner == caller, nil
}
