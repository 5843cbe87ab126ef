package config

import (
	"fmt"

	"github.com/yndnr/ledgergate-go/internal/infra/confloader"
)

// Load reads the defaults, then path (if set), then LEDGERGATE_* variables,
// then overrides, and verifies the result. The loader is returned for
// reloads.
func Load(path string, overrides map[string]any) (*ServerConfig, *confloader.Loader, error) {
	opts := []confloader.Option{}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	if len(overrides) > 0 {
		opts = append(opts, confloader.WithOverrides(overrides))
	}
	loader := confloader.NewLoader(opts...)

	cfg := Default()
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}
