package experiment

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/san-kum/grfbalance/internal/config"
	"github.com/san-kum/grfbalance/internal/models"
	"github.com/san-kum/grfbalance/internal/sim"
)

func shortConfig(preset string) *config.Config {
	cfg := config.GetPreset("mini", preset)
	cfg.Simulation.Duration = 0.5
	cfg.Solver.TimeBudget = 0
	return cfg
}

func TestExperimentRun(t *testing.T) {
	e, err := New(shortConfig("crouch"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if e.Balance == nil {
		t.Fatal("expected the QP controller to be wired")
	}

	res, err := e.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.StepsTaken != 250 {
		t.Errorf("expected 250 steps, got %d", res.StepsTaken)
	}
	if res.Metrics["zero_command"] != 0 {
		t.Errorf("expected no fail-safe commands, got %f", res.Metrics["zero_command"])
	}
	final := res.States[len(res.States)-1]
	if math.Abs(models.Height(final)-0.3) > 0.01 {
		t.Errorf("expected height near 0.3, got %f", models.Height(final))
	}

	meta := e.Metadata("crouch", res)
	if meta.Solver["cycles"] != 250 || meta.Solver["failures"] != 0 {
		t.Errorf("unexpected solver stats %v", meta.Solver)
	}
	if len(meta.Columns) != 1+models.BodyDim+12 {
		t.Errorf("unexpected columns %v", meta.Columns)
	}
}

func TestExperimentControllers(t *testing.T) {
	for _, name := range NewRegistry().ListControllers() {
		t.Run(name, func(t *testing.T) {
			cfg := shortConfig("stand")
			cfg.Simulation.Controller = name
			e, err := New(cfg, nil)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := e.Run(context.Background()); err != nil {
				t.Fatal(err)
			}
			if (name == "balance") != (e.Balance != nil) {
				t.Errorf("Balance set = %v for %s", e.Balance != nil, name)
			}
		})
	}
}

func TestExperimentUnknownController(t *testing.T) {
	cfg := shortConfig("stand")
	cfg.Simulation.Controller = "mpc"
	if _, err := New(cfg, nil); !errors.Is(err, ErrUnknownController) {
		t.Errorf("expected ErrUnknownController, got %v", err)
	}
}

func TestExperimentInvalidConfig(t *testing.T) {
	cfg := shortConfig("stand")
	cfg.Simulation.Dt = -1
	if _, err := New(cfg, nil); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected config.ErrInvalid, got %v", err)
	}
}

func TestPerturbDeterministic(t *testing.T) {
	x0 := models.Pack(config.DefaultConfig().Scenario.Initial.BodyState())
	a := Perturb(x0, 0.02, rand.New(rand.NewSource(7)))
	b := Perturb(x0, 0.02, rand.New(rand.NewSource(7)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed gave different states: %v vs %v", a, b)
		}
	}
	if a[models.IdxPos+2] == x0[models.IdxPos+2] {
		t.Error("expected height to change")
	}
	if z := Perturb(x0, 0, rand.New(rand.NewSource(7))); z[models.IdxPos+2] != x0[models.IdxPos+2] {
		t.Error("zero scale should leave the state alone")
	}
}

func TestEnsemble(t *testing.T) {
	cfg := shortConfig("stand")
	simCfg := sim.Config{Dt: cfg.Simulation.Dt, Duration: cfg.Simulation.Duration}
	results, err := Ensemble(cfg, zaptest.NewLogger(t), 4, 2).Run(context.Background(), simCfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, res := range results {
		if res == nil || res.StepsTaken != 250 {
			t.Errorf("run %d incomplete", i)
		}
	}
	if results[0].States[0][models.IdxPos+2] == results[1].States[0][models.IdxPos+2] {
		t.Error("expected members to start from different perturbations")
	}
}
