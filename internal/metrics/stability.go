package metrics

import (
	"math"

	"github.com/san-kum/grfbalance/internal/models"
	"github.com/san-kum/grfbalance/internal/sim"
)

// Stability is the fraction of steps on which the trunk stays within
// HeightTol of the nominal height and tilts less than MaxTilt radians.
type Stability struct {
	name      string
	Height    float64
	HeightTol float64
	MaxTilt   float64

	violations int
	samples    int
}

func NewStability(height, heightTol, maxTilt float64) *Stability {
	return &Stability{
		name:      "stability",
		Height:    height,
		HeightTol: heightTol,
		MaxTilt:   maxTilt,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x sim.State, u sim.Control, t float64) {
	s.samples++
	if len(x) != models.BodyDim {
		s.violations++
		return
	}
	if math.Abs(models.Height(x)-s.Height) > s.HeightTol || models.Tilt(x) > s.MaxTilt {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
