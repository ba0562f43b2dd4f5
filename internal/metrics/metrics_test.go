package metrics

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/san-kum/grfbalance/internal/balance"
	"github.com/san-kum/grfbalance/internal/models"
	"github.com/san-kum/grfbalance/internal/rigid"
	"github.com/san-kum/grfbalance/internal/sim"
)

func pose(z, roll float64) sim.State {
	return models.Pack(balance.BodyState{Position: r3.Vector{Z: z}, Rotation: rigid.RPY(roll, 0, 0)})
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	u := sim.Control{3, 4, 0, 0, 0, -10}
	m.Observe(nil, u, 0)
	m.Observe(nil, make(sim.Control, 6), 0.1)
	if math.Abs(m.Value()-7.5) > 1e-12 {
		t.Errorf("expected mean effort 7.5, got %f", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero effort after reset")
	}
}

func TestZeroCommand(t *testing.T) {
	m := NewZeroCommand()
	m.Observe(nil, sim.Control{0, 0, 0}, 0)
	m.Observe(nil, sim.Control{0, 0, -1}, 0)
	m.Observe(nil, sim.Control{0, 0, -1}, 0)
	m.Observe(nil, sim.Control{0, 0, -1}, 0)
	if m.Value() != 0.25 {
		t.Errorf("expected 0.25, got %f", m.Value())
	}
}

func TestStability(t *testing.T) {
	tests := []struct {
		name string
		x    sim.State
		ok   bool
	}{
		{"nominal", pose(0.3, 0), true},
		{"sagging", pose(0.25, 0), false},
		{"rolled", pose(0.3, 0.2), false},
		{"wrong size", sim.State{0.3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewStability(0.3, 0.02, 0.05)
			m.Observe(tt.x, nil, 0)
			want := 0.0
			if tt.ok {
				want = 1
			}
			if m.Value() != want {
				t.Errorf("expected %f, got %f", want, m.Value())
			}
		})
	}
}

func TestStabilityEmpty(t *testing.T) {
	if v := NewStability(0.3, 0.02, 0.05).Value(); v != 1 {
		t.Errorf("expected 1 with no samples, got %f", v)
	}
}

func TestEnergyDrift(t *testing.T) {
	cfg := balance.DefaultConfig()
	body, err := models.NewBody(cfg.Physical, cfg.Legs, models.StanceFeet(0.2, 0.15))
	if err != nil {
		t.Fatal(err)
	}
	m := NewEnergyDrift(body)
	m.Observe(pose(0.3, 0), nil, 0)
	m.Observe(pose(0.33, 0), nil, 0.1)
	if math.Abs(m.Value()-0.1) > 1e-9 {
		t.Errorf("expected 10%% drift, got %f", m.Value())
	}
}

func TestStandard(t *testing.T) {
	names := map[string]bool{}
	for _, m := range Standard(nil, 0.3) {
		names[m.Name()] = true
	}
	for _, want := range []string{"control_effort", "zero_command", "stability", "energy_drift"} {
		if !names[want] {
			t.Errorf("missing metric %q", want)
		}
	}
}
