// Package config loads the service configuration from a YAML or JSON file
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gridsim/chargealloc/core/controller"
	"github.com/gridsim/chargealloc/core/metrics"
	"github.com/gridsim/chargealloc/infra/mqtt"
	"github.com/gridsim/chargealloc/sim"
)

type Config struct {
	MQTT       mqtt.Config       `json:"mqtt"`
	Controller controller.Config `json:"controller"`
	Metrics    metrics.Config    `json:"metrics"`
	Logging    LoggingConfig     `json:"logging"`
	Simulation sim.Config        `json:"simulation"`
}

// Load reads the configuration file at path. Environment variables prefixed
// with CHARGE_ override file values, with __ separating nested keys.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("CHARGE_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "charge_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Logging.SetDefaults()
	cfg.Simulation.SetDefaults()
	cfg.MQTT.Topics.SetDefaults()
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Controller.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
