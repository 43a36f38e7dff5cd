// Package config loads the ambient TOML tuning surface for the sampler
// and elider, the way the teacher's Statsd struct is populated from
// toml-tagged fields, using github.com/BurntSushi/toml as the decoder.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/statsrelay/relaycore/sampler"
)

// ElideConfig is the tuning surface for the Elider's skip offset and GC
// cadence.
type ElideConfig struct {
	Skip               int64 `toml:"skip"`
	GCFrequencySeconds int64 `toml:"gc_frequency_seconds"`
	TTLSeconds         int64 `toml:"ttl_seconds"`
}

// RelayConfig is the top-level configuration document.
type RelayConfig struct {
	Sampler sampler.Config `toml:"sampler"`
	Elide   ElideConfig    `toml:"elide"`
}

// Load decodes a RelayConfig from the TOML file at path.
func Load(path string) (RelayConfig, error) {
	var cfg RelayConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return RelayConfig{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}
