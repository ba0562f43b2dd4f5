package main

import (
	"github.com/pkg/errors"

	"github.com/san-kum/grfbalance/internal/config"
)

// loadConfig returns the config file if one was given, otherwise the preset.
func loadConfig() (*config.Config, string, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, "", err
		}
		return cfg, "custom", nil
	}
	cfg := config.GetPreset(robot, preset)
	if cfg == nil {
		return nil, "", errors.Errorf("unknown preset %s/%s (available: %v)", robot, preset, config.ListPresets(robot))
	}
	return cfg, robot + "-" + preset, nil
}
