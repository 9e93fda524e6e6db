// Package config loads JSON rig configuration with per-field defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/scanrig/internal/acquire"
	"github.com/banshee-data/scanrig/internal/cloud"
	"github.com/banshee-data/scanrig/internal/serialmux"
)

// DefaultConfigPath is the path to the canonical rig defaults file.
const DefaultConfigPath = "config/rig.defaults.json"

const (
	defaultPortPath  = "/dev/ttyUSB0"
	defaultDBPath    = "scanrig.db"
	defaultExportDir = "."
)

// RigConfig describes one rig: its serial link, the shape of a scan and how
// readings become a cloud. Every field is optional; Get* methods supply the
// reference rig's values for anything left unset.
type RigConfig struct {
	// Serial link
	PortPath    *string `json:"port_path,omitempty"`
	BaudRate    *int    `json:"baud_rate,omitempty"`
	DataBits    *int    `json:"data_bits,omitempty"`
	StopBits    *int    `json:"stop_bits,omitempty"`
	Parity      *string `json:"parity,omitempty"`
	Sentinel    *string `json:"sentinel,omitempty"`     // single byte, e.g. "E"
	ReadTimeout *string `json:"read_timeout,omitempty"` // duration string; "0s" waits forever

	// Scan layout
	Positions  *int     `json:"positions,omitempty"`
	Steps      *int     `json:"steps,omitempty"`
	AxisStartM *float64 `json:"axis_start_m,omitempty"`
	AxisStepM  *float64 `json:"axis_step_m,omitempty"`

	// Conversion
	ZeroAngleOffsetDeg *float64 `json:"zero_angle_offset_deg,omitempty"`
	RingMode           *string  `json:"ring_mode,omitempty"`

	// Storage
	DBPath    *string `json:"db_path,omitempty"`
	ExportDir *string `json:"export_dir,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyRigConfig returns a RigConfig with every field unset.
func EmptyRigConfig() *RigConfig {
	return &RigConfig{}
}

// DefaultRigConfig returns the reference rig with every field populated.
func DefaultRigConfig() *RigConfig {
	return &RigConfig{
		PortPath:           ptrString(defaultPortPath),
		BaudRate:           ptrInt(serialmux.DefaultBaudRate),
		DataBits:           ptrInt(8),
		StopBits:           ptrInt(1),
		Parity:             ptrString("N"),
		Sentinel:           ptrString(string(serialmux.DefaultSentinel)),
		ReadTimeout:        ptrString("0s"),
		Positions:          ptrInt(acquire.ReferenceLayout.Positions),
		Steps:              ptrInt(acquire.ReferenceLayout.Steps),
		AxisStartM:         ptrFloat64(acquire.ReferenceLayout.AxisStart),
		AxisStepM:          ptrFloat64(acquire.ReferenceLayout.AxisStep),
		ZeroAngleOffsetDeg: ptrFloat64(cloud.DefaultZeroAngleOffsetDeg),
		RingMode:           ptrString(cloud.RingClosed.String()),
		DBPath:             ptrString(defaultDBPath),
		ExportDir:          ptrString(defaultExportDir),
	}
}

// LoadRigConfig loads a RigConfig from a JSON file with a .json extension no
// larger than 1MB. Omitted fields fall back to defaults through the getters.
func LoadRigConfig(path string) (*RigConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

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

	cfg := EmptyRigConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory or
// one of its parents. Panics if the file cannot be loaded; intended for tests.
func MustLoadDefaultConfig() *RigConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadRigConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the fields that are set.
func (c *RigConfig) Validate() error {
	if _, err := c.PortOptions().Normalize(); err != nil {
		return err
	}
	if c.Sentinel != nil && len(*c.Sentinel) != 1 {
		return fmt.Errorf("sentinel must be a single byte, got %q", *c.Sentinel)
	}
	if c.ReadTimeout != nil && *c.ReadTimeout != "" {
		d, err := time.ParseDuration(*c.ReadTimeout)
		if err != nil {
			return fmt.Errorf("invalid read_timeout '%s': %w", *c.ReadTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("read_timeout must be non-negative, got %s", d)
		}
	}
	if c.Positions != nil && *c.Positions < 1 {
		return fmt.Errorf("positions must be >= 1, got %d", *c.Positions)
	}
	if c.Steps != nil && *c.Steps < 1 {
		return fmt.Errorf("steps must be >= 1, got %d", *c.Steps)
	}
	if c.RingMode != nil {
		if _, err := cloud.ParseRingMode(*c.RingMode); err != nil {
			return err
		}
	}
	return nil
}

// GetPortPath returns the serial device path or the default.
func (c *RigConfig) GetPortPath() string {
	if c.PortPath == nil || *c.PortPath == "" {
		return defaultPortPath
	}
	return *c.PortPath
}

// GetSentinel returns the reading terminator byte or the default.
func (c *RigConfig) GetSentinel() byte {
	if c.Sentinel == nil || len(*c.Sentinel) != 1 {
		return serialmux.DefaultSentinel
	}
	return (*c.Sentinel)[0]
}

// GetReadTimeout returns how long to wait for a single reading; zero means
// no limit.
func (c *RigConfig) GetReadTimeout() time.Duration {
	if c.ReadTimeout == nil || *c.ReadTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.ReadTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

func (c *RigConfig) GetPositions() int {
	if c.Positions == nil {
		return acquire.ReferenceLayout.Positions
	}
	return *c.Positions
}

func (c *RigConfig) GetSteps() int {
	if c.Steps == nil {
		return acquire.ReferenceLayout.Steps
	}
	return *c.Steps
}

func (c *RigConfig) GetAxisStartM() float64 {
	if c.AxisStartM == nil {
		return acquire.ReferenceLayout.AxisStart
	}
	return *c.AxisStartM
}

func (c *RigConfig) GetAxisStepM() float64 {
	if c.AxisStepM == nil {
		return acquire.ReferenceLayout.AxisStep
	}
	return *c.AxisStepM
}

// GetZeroAngleOffsetDeg returns the angle assigned to step 0.
func (c *RigConfig) GetZeroAngleOffsetDeg() float64 {
	if c.ZeroAngleOffsetDeg == nil {
		return cloud.DefaultZeroAngleOffsetDeg
	}
	return *c.ZeroAngleOffsetDeg
}

// GetDBPath returns the sqlite database path or the default.
func (c *RigConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return defaultDBPath
	}
	return *c.DBPath
}

// GetExportDir returns the directory export files are confined to.
func (c *RigConfig) GetExportDir() string {
	if c.ExportDir == nil || *c.ExportDir == "" {
		return defaultExportDir
	}
	return *c.ExportDir
}

// PortOptions returns the serial parameters; unset fields stay zero and are
// filled in by PortOptions.Normalize.
func (c *RigConfig) PortOptions() serialmux.PortOptions {
	var opts serialmux.PortOptions
	if c.BaudRate != nil {
		opts.BaudRate = *c.BaudRate
	}
	if c.DataBits != nil {
		opts.DataBits = *c.DataBits
	}
	if c.StopBits != nil {
		opts.StopBits = *c.StopBits
	}
	if c.Parity != nil {
		opts.Parity = *c.Parity
	}
	return opts
}

// Layout returns the scan layout.
func (c *RigConfig) Layout() acquire.Layout {
	return acquire.Layout{
		Positions: c.GetPositions(),
		Steps:     c.GetSteps(),
		AxisStart: c.GetAxisStartM(),
		AxisStep:  c.GetAxisStepM(),
	}
}

// GetRingMode returns the configured ring mode, RingClosed when unset or invalid.
func (c *RigConfig) GetRingMode() cloud.RingMode {
	if c.RingMode == nil {
		return cloud.RingClosed
	}
	mode, err := cloud.ParseRingMode(*c.RingMode)
	if err != nil {
		return cloud.RingClosed
	}
	return mode
}
