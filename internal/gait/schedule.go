package gait

import (
	"sort"

	"github.com/pkg/errors"
)

// Step lifts the listed legs until simulation time Until.
type Step struct {
	Until float64  `yaml:"until"`
	Swing []string `yaml:"swing"`
}

// Schedule is a scripted sequence of contact states. After the last step
// every leg is in stance.
type Schedule struct {
	legs  []string
	steps []Step
}

func NewSchedule(legs []string, steps []Step) (*Schedule, error) {
	known := make(map[string]bool, len(legs))
	for _, leg := range legs {
		known[leg] = true
	}
	for i, st := range steps {
		for _, leg := range st.Swing {
			if !known[leg] {
				return nil, errors.Errorf("gait: step %d references unknown leg %q", i, leg)
			}
		}
		if i > 0 && st.Until <= steps[i-1].Until {
			return nil, errors.Errorf("gait: step %d ends at %.3f, not after step %d", i, st.Until, i-1)
		}
	}
	s := &Schedule{
		legs:  append([]string(nil), legs...),
		steps: append([]Step(nil), steps...),
	}
	return s, nil
}

// At returns the contact map in effect at time t. Phase is the fraction of
// the current step elapsed.
func (s *Schedule) At(t float64) Map {
	m := AllStance(s.legs)
	i := sort.Search(len(s.steps), func(i int) bool { return t < s.steps[i].Until })
	if i == len(s.steps) {
		return m
	}
	start := 0.0
	if i > 0 {
		start = s.steps[i-1].Until
	}
	phase := 0.0
	if span := s.steps[i].Until - start; span > 0 {
		phase = (t - start) / span
	}
	for _, leg := range s.legs {
		m[leg] = Contact{State: Stance, Phase: phase}
	}
	for _, leg := range s.steps[i].Swing {
		m[leg] = Contact{State: Swing, Phase: phase}
	}
	return m
}

func (s *Schedule) Legs() []string { return s.legs }
