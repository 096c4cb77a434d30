package worker

import (
	"github.com/Full-finger/Loquat-sub001/matching"
	"github.com/Full-finger/Loquat-sub001/message"
)

// Registration binds a worker to a pool: who handles, what it may see, and
// when it is consulted. Lower Priority values are consulted first.
type Registration struct {
	Worker   Worker
	Rule     matching.Rule
	Priority uint32
}

// NewRegistration creates a Registration.
func NewRegistration(w Worker, rule matching.Rule, priority uint32) Registration {
	return Registration{Worker: w, Rule: rule, Priority: priority}
}

// Name returns the registered worker's name.
func (r Registration) Name() string {
	return r.Worker.Name()
}

// Matches reports whether some site satisfies both the registration rule and
// the worker's own predicate.
func (r Registration) Matches(sites []message.TargetSite) bool {
	for _, ts := range sites {
		if r.Rule.Matches(ts) && r.Worker.Matches(ts) {
			return true
		}
	}
	return false
}
