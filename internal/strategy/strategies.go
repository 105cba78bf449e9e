package strategy

import (
	"github.com/yanun0323/logs"

	"github.com/vincentmele/flumine/internal/errors"
)

// Strategies is the ordered set of strategies registered with an engine.
type Strategies struct {
	list []Strategy
}

// Add registers a strategy. Names must be unique because the name hash links
// exchange order references back to their owner.
func (s *Strategies) Add(st Strategy) error {
	for _, existing := range s.list {
		if existing.Name() == st.Name() {
			return errors.New("duplicate strategy name: " + st.Name())
		}
	}
	logs.Infof("strategy %s registered", st.Name())
	s.list = append(s.list, st)
	return nil
}

// Start invokes Start on every strategy in registration order.
func (s *Strategies) Start() {
	for _, st := range s.list {
		st.Start()
	}
}

// All returns the strategies in registration order.
func (s *Strategies) All() []Strategy {
	return s.list
}

// Lookup finds a strategy by its name hash, used to reattach recovered
// orders to their owner.
func (s *Strategies) Lookup(nameHash string) (Strategy, bool) {
	for _, st := range s.list {
		if st.NameHash() == nameHash {
			return st, true
		}
	}
	return nil, false
}

// Len is the number of registered strategies.
func (s *Strategies) Len() int {
	return len(s.list)
}
