package config

import (
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
)

// Init writes a starter configuration file with commented defaults.
func Init(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return ferrors.ConfigError("config file already exists (use --force to overwrite)").
				WithContext("path", path).Build()
		}
	}

	cfg := Default()
	cfg.Settings.CategoryThresholds = map[string]int{
		"dairy":   3,
		"produce": 2,
		"meat":    2,
		"pantry":  14,
	}
	cfg.Settings.ShelfLives = map[string]int{
		"dairy":   7,
		"produce": 5,
		"meat":    4,
		"pantry":  180,
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "marshal default config").Build()
	}

	header := []byte("# larder configuration\n# Durations use Go syntax (500ms, 5m, 1h).\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "write config file").
			WithContext("path", path).Build()
	}
	return nil
}
