package config

import (
	"sort"

	"github.com/san-kum/grfbalance/internal/gait"
)

// Presets maps robot name to named scenarios. Each entry builds a fresh
// Config so callers may modify what they get.
var Presets = map[string]map[string]func() *Config{
	"mini": {
		"stand": func() *Config { return DefaultConfig() },
		"crouch": func() *Config {
			c := DefaultConfig()
			c.Scenario.Initial.Height = 0.26
			return c
		},
		"push": func() *Config {
			c := DefaultConfig()
			c.Scenario.Initial.Roll = 0.15
			c.Scenario.Initial.Omega = [3]float64{1, 0, 0}
			return c
		},
		"lean": func() *Config {
			c := DefaultConfig()
			c.Scenario.Target.Pitch = 0.1
			c.Scenario.Target.Roll = -0.05
			return c
		},
		"tripod": func() *Config {
			c := DefaultConfig()
			c.Scenario.Gait = []gait.Step{
				{Until: 0.5},
				{Until: 1.5, Swing: []string{"FL"}},
			}
			return c
		},
		"trot": func() *Config {
			c := DefaultConfig()
			c.Scenario.Gait = trot(0.1, 10)
			c.Simulation.Duration = 2.5
			return c
		},
	},
	"heavy": {
		"stand": func() *Config { return heavy() },
		"push": func() *Config {
			c := heavy()
			c.Scenario.Initial.Pitch = 0.1
			c.Scenario.Initial.Vel = [3]float64{0.2, 0, 0}
			return c
		},
		"slippery": func() *Config {
			c := heavy()
			c.Robot.Mu = 0.3
			c.Scenario.Initial.Roll = 0.1
			return c
		},
	},
}

// heavy is a 12 kg robot with a wider stance.
func heavy() *Config {
	c := DefaultConfig()
	c.Robot.Name = "heavy"
	c.Robot.Mass = 12.5
	c.Robot.Inertia = [3]float64{0.0168, 0.0565, 0.0647}
	c.Robot.FzMax = 200
	c.Robot.HalfLength = 0.18
	c.Robot.HalfWidth = 0.13
	c.Scenario.Target.Height = 0.32
	c.Scenario.Initial.Height = 0.32
	return c
}

// trot alternates the diagonal pairs in swing, separated by short
// four-leg stance phases.
func trot(swing float64, cycles int) []gait.Step {
	steps := []gait.Step{{Until: 0.5}}
	t := 0.5
	pairs := [][]string{{"FL", "RR"}, {"FR", "RL"}}
	for i := 0; i < cycles; i++ {
		t += swing
		steps = append(steps, gait.Step{Until: t, Swing: pairs[i%2]})
		t += swing / 2
		steps = append(steps, gait.Step{Until: t})
	}
	return steps
}

func GetPreset(robot, preset string) *Config {
	robotPresets, ok := Presets[robot]
	if !ok {
		return nil
	}
	build, ok := robotPresets[preset]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets(robot string) []string {
	robotPresets, ok := Presets[robot]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(robotPresets))
	for name := range robotPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListRobots() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
