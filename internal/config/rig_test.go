package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/scanrig/internal/acquire"
	"github.com/banshee-data/scanrig/internal/cloud"
	"github.com/banshee-data/scanrig/internal/serialmux"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestDefaultRigConfig(t *testing.T) {
	cfg := DefaultRigConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if got := cfg.Layout(); got != acquire.ReferenceLayout {
		t.Errorf("Layout() = %+v, want %+v", got, acquire.ReferenceLayout)
	}
	if cfg.GetZeroAngleOffsetDeg() != 270 {
		t.Errorf("GetZeroAngleOffsetDeg() = %f, want 270", cfg.GetZeroAngleOffsetDeg())
	}
	if cfg.GetRingMode() != cloud.RingClosed {
		t.Errorf("GetRingMode() = %v, want closed", cfg.GetRingMode())
	}
	if cfg.GetSentinel() != 'E' {
		t.Errorf("GetSentinel() = %q, want 'E'", cfg.GetSentinel())
	}
	opts, err := cfg.PortOptions().Normalize()
	if err != nil {
		t.Fatalf("PortOptions().Normalize() failed: %v", err)
	}
	if opts.String() != "115200 8N1" {
		t.Errorf("PortOptions = %s, want 115200 8N1", opts.String())
	}
}

func TestGetterDefaults(t *testing.T) {
	cfg := EmptyRigConfig()
	def := DefaultRigConfig()

	if cfg.Layout() != def.Layout() {
		t.Errorf("empty Layout() = %+v, want %+v", cfg.Layout(), def.Layout())
	}
	if cfg.GetPortPath() != "/dev/ttyUSB0" {
		t.Errorf("GetPortPath() = %q", cfg.GetPortPath())
	}
	if cfg.GetDBPath() != "scanrig.db" {
		t.Errorf("GetDBPath() = %q", cfg.GetDBPath())
	}
	if cfg.GetExportDir() != "." {
		t.Errorf("GetExportDir() = %q", cfg.GetExportDir())
	}
	if cfg.GetReadTimeout() != 0 {
		t.Errorf("GetReadTimeout() = %s, want 0", cfg.GetReadTimeout())
	}
	if cfg.GetSentinel() != serialmux.DefaultSentinel {
		t.Errorf("GetSentinel() = %q", cfg.GetSentinel())
	}
	if cfg.GetRingMode() != cloud.RingClosed {
		t.Errorf("GetRingMode() = %v", cfg.GetRingMode())
	}
	if (cfg.PortOptions() != serialmux.PortOptions{}) {
		t.Errorf("PortOptions() = %+v, want zero value", cfg.PortOptions())
	}
}

func TestLoadRigConfig(t *testing.T) {
	path := writeConfig(t, "bench.json", `{
  "port_path": "/dev/ttyACM0",
  "baud_rate": 57600,
  "sentinel": "#",
  "read_timeout": "2s",
  "positions": 3,
  "steps": 64,
  "axis_start_m": 1.5,
  "axis_step_m": 0.1,
  "zero_angle_offset_deg": 0,
  "ring_mode": "reference",
  "db_path": "/tmp/bench.db"
}`)

	cfg, err := LoadRigConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	want := acquire.Layout{Positions: 3, Steps: 64, AxisStart: 1.5, AxisStep: 0.1}
	if cfg.Layout() != want {
		t.Errorf("Layout() = %+v, want %+v", cfg.Layout(), want)
	}
	if cfg.GetPortPath() != "/dev/ttyACM0" {
		t.Errorf("GetPortPath() = %q", cfg.GetPortPath())
	}
	if cfg.PortOptions().BaudRate != 57600 {
		t.Errorf("BaudRate = %d, want 57600", cfg.PortOptions().BaudRate)
	}
	if cfg.GetSentinel() != '#' {
		t.Errorf("GetSentinel() = %q, want '#'", cfg.GetSentinel())
	}
	if cfg.GetReadTimeout() != 2*time.Second {
		t.Errorf("GetReadTimeout() = %s, want 2s", cfg.GetReadTimeout())
	}
	if cfg.GetZeroAngleOffsetDeg() != 0 {
		t.Errorf("GetZeroAngleOffsetDeg() = %f, want 0", cfg.GetZeroAngleOffsetDeg())
	}
	if cfg.GetRingMode() != cloud.RingReference {
		t.Errorf("GetRingMode() = %v, want reference", cfg.GetRingMode())
	}
	if cfg.GetDBPath() != "/tmp/bench.db" {
		t.Errorf("GetDBPath() = %q", cfg.GetDBPath())
	}
}

func TestLoadRigConfigPartial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{"steps": 128}`)
	cfg, err := LoadRigConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetSteps() != 128 {
		t.Errorf("GetSteps() = %d, want 128", cfg.GetSteps())
	}
	if cfg.GetPositions() != 20 {
		t.Errorf("expected default positions 20, got %d", cfg.GetPositions())
	}
	if cfg.GetAxisStepM() != -0.2 {
		t.Errorf("expected default axis step -0.2, got %f", cfg.GetAxisStepM())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid empty", `{}`, false},
		{"zero positions", `{"positions": 0}`, true},
		{"negative steps", `{"steps": -4}`, true},
		{"multi byte sentinel", `{"sentinel": "EE"}`, true},
		{"empty sentinel", `{"sentinel": ""}`, true},
		{"bad timeout", `{"read_timeout": "soon"}`, true},
		{"negative timeout", `{"read_timeout": "-1s"}`, true},
		{"bad ring mode", `{"ring_mode": "spiral"}`, true},
		{"bad parity", `{"parity": "X"}`, true},
		{"bad data bits", `{"data_bits": 9}`, true},
		{"reference ring", `{"ring_mode": "reference"}`, false},
		{"odd parity", `{"parity": "odd", "stop_bits": 2}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "cfg.json", tt.body)
			_, err := LoadRigConfig(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadRigConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRigConfigMissing(t *testing.T) {
	if _, err := LoadRigConfig("/nonexistent/path/to/rig.json"); err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadRigConfigInvalidJSON(t *testing.T) {
	path := writeConfig(t, "invalid.json", `{"steps": "many"`)
	if _, err := LoadRigConfig(path); err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestLoadRigConfigRejectsNonJSON(t *testing.T) {
	if _, err := LoadRigConfig("/some/path/rig.yaml"); err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadRigConfigRejectsLargeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large.json")
	if err := os.WriteFile(path, make([]byte, 2*1024*1024), 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}
	if _, err := LoadRigConfig(path); err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	def := DefaultRigConfig()

	if cfg.Layout() != def.Layout() {
		t.Errorf("defaults file Layout() = %+v, want %+v", cfg.Layout(), def.Layout())
	}
	if cfg.PortOptions() != def.PortOptions() {
		t.Errorf("defaults file PortOptions() = %+v, want %+v", cfg.PortOptions(), def.PortOptions())
	}
	if cfg.GetSentinel() != def.GetSentinel() || cfg.GetDBPath() != def.GetDBPath() {
		t.Errorf("defaults file disagrees with DefaultRigConfig")
	}
	if cfg.GetRingMode() != def.GetRingMode() || cfg.GetZeroAngleOffsetDeg() != def.GetZeroAngleOffsetDeg() {
		t.Errorf("defaults file conversion settings disagree with DefaultRigConfig")
	}
}
