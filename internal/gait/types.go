package gait

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrMissingLeg is returned when a contact map has no entry for a configured leg.
var ErrMissingLeg = errors.New("gait: contact map missing leg")

type LegState int

const (
	Swing LegState = iota
	Stance
)

func (s LegState) String() string {
	switch s {
	case Swing:
		return "swing"
	case Stance:
		return "stance"
	default:
		return fmt.Sprintf("LegState(%d)", int(s))
	}
}

func (s LegState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *LegState) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "swing":
		*s = Swing
	case "stance":
		*s = Stance
	default:
		return errors.Errorf("gait: unknown leg state %q", string(text))
	}
	return nil
}

// Contact is the scheduler's view of one leg. Phase is carried through
// untouched.
type Contact struct {
	State LegState `yaml:"state"`
	Phase float64  `yaml:"phase"`
}

// Map is keyed by leg identifier.
type Map map[string]Contact

// AllStance returns a map with every leg in stance.
func AllStance(legs []string) Map {
	m := make(Map, len(legs))
	for _, leg := range legs {
		m[leg] = Contact{State: Stance}
	}
	return m
}

// Validate checks that every leg has an entry.
func (m Map) Validate(legs []string) error {
	var missing []string
	for _, leg := range legs {
		if _, ok := m[leg]; !ok {
			missing = append(missing, leg)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrMissingLeg, "%s", strings.Join(missing, ","))
	}
	return nil
}

// StanceCount counts legs in stance among legs.
func (m Map) StanceCount(legs []string) int {
	n := 0
	for _, leg := range legs {
		if m[leg].State == Stance {
			n++
		}
	}
	return n
}

// String renders the map in a stable order, e.g. "FL:stance FR:swing".
func (m Map) String() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + m[k].State.String()
	}
	return strings.Join(parts, " ")
}
