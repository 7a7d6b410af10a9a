// Package chainspec describes the chain a node is about to join: its genesis
// validators and the parameters of the consensus protocol.
package chainspec

import (
	"errors"
	"fmt"
	"time"

	"github.com/mosaicnetworks/joiner/src/crypto/keys"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/spf13/viper"
)

var (
	// ErrNoName is returned when the genesis section has no chain name.
	ErrNoName = errors.New("chainspec: genesis name is empty")
	// ErrNoValidators is returned when the genesis section lists no
	// validator.
	ErrNoValidators = errors.New("chainspec: no genesis validators")
)

// Validator is a genesis validator, identified by its hex-encoded compressed
// secp256k1 public key.
type Validator struct {
	PublicKey string `mapstructure:"public-key"`
	Stake     uint64 `mapstructure:"stake"`
}

// GenesisConfig ...
type GenesisConfig struct {
	Name            string          `mapstructure:"name"`
	Timestamp       types.Timestamp `mapstructure:"timestamp"`
	ProtocolVersion string          `mapstructure:"protocol-version"`
	Validators      []Validator     `mapstructure:"validators"`
}

// HighwayConfig holds the parameters of the consensus protocol.
type HighwayConfig struct {
	EraDuration              time.Duration `mapstructure:"era-duration"`
	MinimumEraHeight         uint64        `mapstructure:"minimum-era-height"`
	MinimumRoundExponent     uint8         `mapstructure:"minimum-round-exponent"`
	FinalityThresholdPercent uint8         `mapstructure:"finality-threshold-percent"`
}

// Chainspec ...
type Chainspec struct {
	Genesis GenesisConfig `mapstructure:"genesis"`
	Highway HighwayConfig `mapstructure:"highway"`
}

// DefaultHighwayConfig returns the consensus parameters used when the
// chainspec does not override them.
func DefaultHighwayConfig() HighwayConfig {
	return HighwayConfig{
		EraDuration:              30 * time.Second,
		MinimumEraHeight:         10,
		MinimumRoundExponent:     12,
		FinalityThresholdPercent: 10,
	}
}

// Load reads and validates the chainspec at path. The format is inferred from
// the file extension; TOML is the usual one.
func Load(path string) (*Chainspec, error) {
	v := viper.New()
	v.SetConfigFile(path)

	d := DefaultHighwayConfig()
	v.SetDefault("highway.era-duration", d.EraDuration)
	v.SetDefault("highway.minimum-era-height", d.MinimumEraHeight)
	v.SetDefault("highway.minimum-round-exponent", d.MinimumRoundExponent)
	v.SetDefault("highway.finality-threshold-percent", d.FinalityThresholdPercent)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading chainspec %s: %v", path, err)
	}

	var spec Chainspec
	if err := v.Unmarshal(&spec); err != nil {
		return nil, fmt.Errorf("decoding chainspec %s: %v", path, err)
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &spec, nil
}

// Validate checks the genesis section.
func (c *Chainspec) Validate() error {
	if c.Genesis.Name == "" {
		return ErrNoName
	}
	if len(c.Genesis.Validators) == 0 {
		return ErrNoValidators
	}

	seen := make(map[string]struct{}, len(c.Genesis.Validators))
	for i, v := range c.Genesis.Validators {
		if _, err := keys.ParsePublicKeyHex(v.PublicKey); err != nil {
			return fmt.Errorf("chainspec: validator %d: %v", i, err)
		}
		if v.Stake == 0 {
			return fmt.Errorf("chainspec: validator %d has no stake", i)
		}
		if _, ok := seen[v.PublicKey]; ok {
			return fmt.Errorf("chainspec: validator %s listed twice", v.PublicKey)
		}
		seen[v.PublicKey] = struct{}{}
	}

	if c.Highway.FinalityThresholdPercent >= 100 {
		return fmt.Errorf("chainspec: finality threshold %d%% out of range", c.Highway.FinalityThresholdPercent)
	}

	return nil
}
