package core

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// RawAddressLength is the byte length of an on-chain account address.
const RawAddressLength = 16

type TimeoutConfig struct {
	Connect time.Duration `koanf:"connect" mapstructure:"connect"`
	Request time.Duration `koanf:"request" mapstructure:"request"`
}

type SyncConfig struct {
	Interval time.Duration `koanf:"interval" mapstructure:"interval"`
}

type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`
	// HRP is the network discriminator under which all actor addresses must
	// decode.
	HRP string `koanf:"hrp" mapstructure:"hrp"`
	// BaseURL is the local compliance endpoint advertised on-chain.
	BaseURL string `koanf:"base_url" mapstructure:"base_url"`
	// ComplianceAddress is the hex-encoded raw address of the local
	// compliance account.
	ComplianceAddress string        `koanf:"compliance_address" mapstructure:"compliance_address"`
	Timeouts          TimeoutConfig `koanf:"timeouts" mapstructure:"timeouts"`
	Sync              SyncConfig    `koanf:"sync" mapstructure:"sync"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "offchain",
		HRP:         "tdm",
		Timeouts: TimeoutConfig{
			Connect: 2 * time.Second,
			Request: 30 * time.Second,
		},
		Sync: SyncConfig{
			Interval: 5 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.HRP) == "" {
		return fmt.Errorf("core: hrp is required")
	}
	if strings.TrimSpace(c.ComplianceAddress) != "" {
		if _, err := c.RawComplianceAddress(); err != nil {
			return err
		}
	}
	if c.Timeouts.Connect < 0 || c.Timeouts.Request < 0 {
		return fmt.Errorf("core: timeouts must not be negative")
	}
	return nil
}

// RawComplianceAddress decodes the configured compliance address into its
// raw on-chain form.
func (c Config) RawComplianceAddress() ([]byte, error) {
	trimmed := strings.TrimSpace(c.ComplianceAddress)
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("core: compliance_address is not valid hex: %w", err)
	}
	if len(raw) != RawAddressLength {
		return nil, fmt.Errorf("core: compliance_address must be %d bytes, got %d", RawAddressLength, len(raw))
	}
	return raw, nil
}
