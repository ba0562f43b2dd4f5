package sim

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
)

type testDynamics struct{}

func (t *testDynamics) Derivative(x State, u Control, time float64) State {
	return State{-x[0]}
}

func (t *testDynamics) StateDim() int   { return 1 }
func (t *testDynamics) ControlDim() int { return 0 }

type testIntegrator struct{}

func (t *testIntegrator) Step(dyn Dynamics, x State, u Control, time float64, dt float64) State {
	dx := dyn.Derivative(x, u, time)
	return State{x[0] + dt*dx[0]}
}

type testController struct{}

func (t *testController) Compute(x State, time float64) Control {
	return Control{}
}

func TestSimulatorRun(t *testing.T) {
	dyn := &testDynamics{}
	integ := &testIntegrator{}
	ctrl := &testController{}

	sim := New(dyn, integ, ctrl)

	cfg := Config{
		Dt:       0.1,
		Duration: 1.0,
	}

	x0 := State{1.0}
	result, err := sim.Run(context.Background(), x0, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}

	if len(result.Times) != 11 {
		t.Errorf("expected 11 times, got %d", len(result.Times))
	}

	finalState := result.States[len(result.States)-1][0]
	expected := 1.0 * math.Exp(-1.0)
	if math.Abs(finalState-expected) > 0.2 {
		t.Errorf("expected final state ~%.4f, got %.4f", expected, finalState)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	dyn := &testDynamics{}
	integ := &testIntegrator{}
	ctrl := &testController{}

	sim := New(dyn, integ, ctrl)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"negative duration", Config{Dt: 0.1, Duration: -1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x0 := State{1.0}
			_, err := sim.Run(context.Background(), x0, tt.cfg)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(x State, u Control, time float64) {
	t.count++
	t.sum += x[0]
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

func TestSimulatorMetrics(t *testing.T) {
	dyn := &testDynamics{}
	integ := &testIntegrator{}
	ctrl := &testController{}

	sim := New(dyn, integ, ctrl)

	metric := &testMetric{}
	sim.AddMetric(metric)

	cfg := Config{Dt: 0.1, Duration: 1.0}
	x0 := State{1.0}

	result, err := sim.Run(context.Background(), x0, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}

	if metric.count != 10 {
		t.Errorf("expected 10 observations, got %d", metric.count)
	}
}

type blowUp struct{}

func (b *blowUp) Derivative(x State, u Control, time float64) State {
	if time > 0.25 {
		return State{math.NaN()}
	}
	return State{1}
}

func (b *blowUp) StateDim() int   { return 1 }
func (b *blowUp) ControlDim() int { return 0 }

func TestSimulatorStopsOnInvalidState(t *testing.T) {
	sim := New(&blowUp{}, &testIntegrator{}, &testController{})

	result, err := sim.Run(context.Background(), State{0}, Config{Dt: 0.1, Duration: 1, ValidateState: true})
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Error("expected ErrInvalidState")
	}
	if result == nil || result.StepsTaken != stepErr.Step {
		t.Errorf("expected partial result up to step %d", stepErr.Step)
	}
}

func TestSimulatorDimensionMismatch(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, &testController{})
	_, err := sim.Run(context.Background(), State{1, 2}, Config{Dt: 0.1, Duration: 1})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSimulatorCanceled(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, &testController{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := sim.Run(ctx, State{1}, Config{Dt: 0.1, Duration: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(result.States) != 1 {
		t.Errorf("expected only the initial state, got %d", len(result.States))
	}
}

func TestSimulatorStep(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, &testController{})
	x, u := sim.Step(State{1}, 0, 0.1)
	if math.Abs(x[0]-0.9) > 1e-12 {
		t.Errorf("expected 0.9, got %f", x[0])
	}
	if len(u) != 0 {
		t.Errorf("expected empty control, got %v", u)
	}
}

func TestEnsemble(t *testing.T) {
	var built int32
	factory := func(run int, seed int64) (*Simulator, State, error) {
		atomic.AddInt32(&built, 1)
		return New(&testDynamics{}, &testIntegrator{}, &testController{}), State{float64(run + 1)}, nil
	}

	results, err := NewEnsemble(factory, 4, 100, 2).Run(context.Background(), Config{Dt: 0.1, Duration: 1})
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if built != 4 {
		t.Errorf("expected 4 simulators, got %d", built)
	}
	for i, r := range results {
		if r.States[0][0] != float64(i+1) {
			t.Errorf("member %d started at %v", i, r.States[0][0])
		}
	}
}

func TestEnsembleFactoryError(t *testing.T) {
	boom := errors.New("boom")
	factory := func(run int, seed int64) (*Simulator, State, error) {
		if run == 2 {
			return nil, nil, boom
		}
		return New(&testDynamics{}, &testIntegrator{}, &testController{}), State{1}, nil
	}

	_, err := NewEnsemble(factory, 3, 0, 0).Run(context.Background(), Config{Dt: 0.1, Duration: 1})
	if !errors.Is(err, boom) {
		t.Errorf("expected factory error, got %v", err)
	}
}
