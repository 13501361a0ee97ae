package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultPort is used when neither the config file nor a flag names one.
	DefaultPort = "/dev/ttyUSB0"

	// MaxMotorSpeedHz is the fastest rotation the Sweep supports.
	MaxMotorSpeedHz = 10
)

// SweepConfig configures a scanning session. Every field is optional; the
// Get* methods supply defaults for fields left out of the JSON file.
type SweepConfig struct {
	Port *string `json:"port,omitempty"`

	// MotorSpeedHz, when set, is applied before scanning starts.
	MotorSpeedHz *int `json:"motor_speed_hz,omitempty"`

	// Scans is the number of sweeps to read; 0 reads until interrupted.
	Scans *int `json:"scans,omitempty"`

	// Summary prints per-sweep statistics instead of every sample.
	Summary *bool `json:"summary,omitempty"`

	RequireABICompatible *bool `json:"require_abi_compatible,omitempty"`

	// WaitMotorReady polls motor readiness before starting to scan.
	WaitMotorReady    *bool   `json:"wait_motor_ready,omitempty"`
	MotorReadyTimeout *string `json:"motor_ready_timeout,omitempty"` // duration string like "10s"
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptySweepConfig returns a SweepConfig with all fields set to nil.
func EmptySweepConfig() *SweepConfig {
	return &SweepConfig{}
}

// LoadSweepConfig loads a SweepConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file keep their defaults.
func LoadSweepConfig(path string) (*SweepConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySweepConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *SweepConfig) Validate() error {
	if c.Port != nil {
		if *c.Port == "" {
			return fmt.Errorf("port must not be empty")
		}
		if strings.IndexByte(*c.Port, 0) >= 0 {
			return fmt.Errorf("port %q contains a NUL byte", *c.Port)
		}
	}

	if c.MotorSpeedHz != nil {
		if *c.MotorSpeedHz < 0 || *c.MotorSpeedHz > MaxMotorSpeedHz {
			return fmt.Errorf("motor_speed_hz must be between 0 and %d, got %d", MaxMotorSpeedHz, *c.MotorSpeedHz)
		}
	}

	if c.Scans != nil && *c.Scans < 0 {
		return fmt.Errorf("scans must be non-negative, got %d", *c.Scans)
	}

	if c.MotorReadyTimeout != nil && *c.MotorReadyTimeout != "" {
		d, err := time.ParseDuration(*c.MotorReadyTimeout)
		if err != nil {
			return fmt.Errorf("invalid motor_ready_timeout '%s': %w", *c.MotorReadyTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("motor_ready_timeout must be positive, got %s", d)
		}
	}

	return nil
}

// GetPort returns the port value or the default.
func (c *SweepConfig) GetPort() string {
	if c.Port == nil || *c.Port == "" {
		return DefaultPort
	}
	return *c.Port
}

// GetMotorSpeedHz returns the requested motor speed and whether one was set.
func (c *SweepConfig) GetMotorSpeedHz() (int32, bool) {
	if c.MotorSpeedHz == nil {
		return 0, false
	}
	return int32(*c.MotorSpeedHz), true
}

// GetScans returns the scans value or the default.
func (c *SweepConfig) GetScans() int {
	if c.Scans == nil {
		return 1 // default: a single sweep, like the driver's examples
	}
	return *c.Scans
}

// GetSummary returns the summary value or the default.
func (c *SweepConfig) GetSummary() bool {
	if c.Summary == nil {
		return false
	}
	return *c.Summary
}

// GetRequireABICompatible returns the require_abi_compatible value or the default.
func (c *SweepConfig) GetRequireABICompatible() bool {
	if c.RequireABICompatible == nil {
		return true
	}
	return *c.RequireABICompatible
}

// GetWaitMotorReady returns the wait_motor_ready value or the default.
func (c *SweepConfig) GetWaitMotorReady() bool {
	if c.WaitMotorReady == nil {
		return true
	}
	return *c.WaitMotorReady
}

// GetMotorReadyTimeout parses and returns the MotorReadyTimeout as a time.Duration.
func (c *SweepConfig) GetMotorReadyTimeout() time.Duration {
	if c.MotorReadyTimeout == nil || *c.MotorReadyTimeout == "" {
		return 10 * time.Second // default
	}
	d, err := time.ParseDuration(*c.MotorReadyTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second // default on parse error
	}
	return d
}

// Override returns a copy of c with every non-nil field of o applied on top.
// Command-line flags are merged this way over the config file.
func (c *SweepConfig) Override(o *SweepConfig) *SweepConfig {
	merged := *c
	if o == nil {
		return &merged
	}
	if o.Port != nil {
		merged.Port = ptrString(*o.Port)
	}
	if o.MotorSpeedHz != nil {
		merged.MotorSpeedHz = ptrInt(*o.MotorSpeedHz)
	}
	if o.Scans != nil {
		merged.Scans = ptrInt(*o.Scans)
	}
	if o.Summary != nil {
		merged.Summary = ptrBool(*o.Summary)
	}
	if o.RequireABICompatible != nil {
		merged.RequireABICompatible = ptrBool(*o.RequireABICompatible)
	}
	if o.WaitMotorReady != nil {
		merged.WaitMotorReady = ptrBool(*o.WaitMotorReady)
	}
	if o.MotorReadyTimeout != nil {
		merged.MotorReadyTimeout = ptrString(*o.MotorReadyTimeout)
	}
	return &merged
}
