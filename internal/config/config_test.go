package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/san-kum/grfbalance/internal/balance"
	"github.com/san-kum/grfbalance/internal/gait"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Robot.Name != "mini" {
		t.Errorf("expected robot mini, got %s", cfg.Robot.Name)
	}
	if cfg.Simulation.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Simulation.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestBalanceConfig(t *testing.T) {
	bc := DefaultConfig().BalanceConfig()
	def := balance.DefaultConfig()

	if bc.Physical.Mass != def.Physical.Mass || bc.Physical.Mu != def.Physical.Mu {
		t.Errorf("physical parameters differ: %+v", bc.Physical)
	}
	if bc.Physical.Gravity != def.Physical.Gravity {
		t.Errorf("expected gravity %v, got %v", def.Physical.Gravity, bc.Physical.Gravity)
	}
	if bc.Gains.KpRot != def.Gains.KpRot {
		t.Errorf("expected kp_rot %v, got %v", def.Gains.KpRot, bc.Gains.KpRot)
	}
	if r, c := bc.Weights.W.Dims(); r != 12 || c != 12 || bc.Weights.W.At(5, 5) != 1e-4 {
		t.Errorf("unexpected W %dx%d", r, c)
	}
	if bc.Options.Solver.MaxIterations != 200 {
		t.Errorf("expected 200 iterations, got %d", bc.Options.Solver.MaxIterations)
	}
	if _, err := balance.New(bc, nil); err != nil {
		t.Errorf("controller rejected converted config: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("mini", "crouch")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Scenario.Initial.Height != 0.26 {
		t.Errorf("expected initial height 0.26, got %f", cfg.Scenario.Initial.Height)
	}
}

func TestGetPresetFresh(t *testing.T) {
	a := GetPreset("mini", "trot")
	a.Scenario.Gait[1].Swing[0] = "XX"
	b := GetPreset("mini", "trot")
	if b.Scenario.Gait[1].Swing[0] != "FL" {
		t.Error("presets share state between calls")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("mini", "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "stand") != nil {
		t.Error("expected nil for nonexistent robot")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("mini")
	if len(presets) == 0 {
		t.Error("expected presets for mini")
	}
	for i := 1; i < len(presets); i++ {
		if presets[i-1] > presets[i] {
			t.Errorf("presets not sorted: %v", presets)
		}
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent robot")
	}
	if robots := ListRobots(); len(robots) != 2 || robots[0] != "heavy" {
		t.Errorf("unexpected robots %v", robots)
	}
}

func TestPresetsValid(t *testing.T) {
	for _, robot := range ListRobots() {
		for _, name := range ListPresets(robot) {
			t.Run(robot+"/"+name, func(t *testing.T) {
				if err := GetPreset(robot, name).Validate(); err != nil {
					t.Error(err)
				}
			})
		}
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := GetPreset("mini", "tripod")
	cfg.Solver.TimeBudget = 2 * time.Millisecond
	cfg.Solver.SmallAngle = true

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Solver.TimeBudget != 2*time.Millisecond || !got.Solver.SmallAngle {
		t.Errorf("solver options lost: %+v", got.Solver)
	}
	if len(got.Scenario.Gait) != 2 || got.Scenario.Gait[1].Swing[0] != "FL" {
		t.Errorf("gait lost: %+v", got.Scenario.Gait)
	}
}

func TestLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte("robot:\n  mass: 12\nsolver:\n  time_budget: 500us\nscenario:\n  gait:\n    - until: 1\n      swing: [RR]\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Robot.Mass != 12 {
		t.Errorf("expected mass 12, got %f", cfg.Robot.Mass)
	}
	if cfg.Robot.Mu != 0.8 {
		t.Errorf("expected default mu to survive, got %f", cfg.Robot.Mu)
	}
	if cfg.Solver.TimeBudget != 500*time.Microsecond {
		t.Errorf("expected 500us budget, got %v", cfg.Solver.TimeBudget)
	}
	sched, err := cfg.Schedule()
	if err != nil {
		t.Fatal(err)
	}
	if sched.At(0.5)["RR"].State != gait.Swing {
		t.Error("expected RR in swing")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateAggregates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulation.Dt = 0
	cfg.Robot.Gravity = 0
	cfg.Robot.Mass = -1
	cfg.Scenario.Gait = []gait.Step{{Until: 1, Swing: []string{"XX"}}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if n := len(multierr.Errors(err)); n < 4 {
		t.Errorf("expected at least 4 problems, got %d: %v", n, err)
	}
	if !errors.Is(err, ErrInvalid) {
		t.Error("expected ErrInvalid in chain")
	}
	if !errors.Is(err, balance.ErrConfig) {
		t.Error("expected balance.ErrConfig in chain")
	}
}

func TestBody(t *testing.T) {
	cfg := GetPreset("mini", "tripod")
	body, err := cfg.Body()
	if err != nil {
		t.Fatal(err)
	}
	if body.Contacts == nil {
		t.Fatal("expected scripted contacts on the plant")
	}
	if body.Contacts(1)["FL"].State != gait.Swing {
		t.Error("expected FL in swing at t=1")
	}
	if len(body.Feet) != 4 || body.Feet[0].X != cfg.Robot.HalfLength {
		t.Errorf("unexpected feet %v", body.Feet)
	}
}

func TestSetParam(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.SetParam("kp_rot", 500); err != nil {
		t.Fatal(err)
	}
	if cfg.Gains.KpRot != [3]float64{500, 500, 500} {
		t.Errorf("expected kp_rot on all axes, got %v", cfg.Gains.KpRot)
	}
	if err := cfg.SetParam("smoothing", 0.1); err != nil || cfg.Weights.Smoothing != 0.1 {
		t.Errorf("smoothing not set: %v", err)
	}
	if err := cfg.SetParam("bogus", 1); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}
