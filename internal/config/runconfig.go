package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/floe-data/drift.report/internal/advect"
	"github.com/floe-data/drift.report/internal/field"
	"github.com/floe-data/drift.report/internal/grid"
	"github.com/floe-data/drift.report/internal/units"
)

// RunConfig represents the root configuration for an advection run.
// Fields omitted from the JSON file fall back to the Get* defaults, so
// partial configs are safe.
type RunConfig struct {
	// Integration params
	Integrator *string  `json:"integrator,omitempty"` // "rk4" or "euler"
	DT         *float64 `json:"dt,omitempty"`         // step size in days, negative for backward
	MaxSteps   *int     `json:"max_steps,omitempty"`
	EndTime    *float64 `json:"end_time,omitempty"` // in the config's time units

	// Field sampling params
	Method      *string `json:"method,omitempty"`      // "bilinear" or "nearest"
	TimePolicy  *string `json:"time_policy,omitempty"` // "clamp" or "invalidate"
	Extrapolate *bool   `json:"extrapolate,omitempty"`

	// Batch params
	Workers *int     `json:"workers,omitempty"`
	Aux     []string `json:"aux,omitempty"` // scalar fields sampled along trajectories

	// TimeUnits declares the time base for DT, EndTime and any start
	// times in the points file, e.g. "days since 2000-01-01T12:00:00".
	TimeUnits *string `json:"time_units,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyRunConfig returns a RunConfig with all fields set to nil.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// LoadRunConfig loads a RunConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadRunConfig(path string) (*RunConfig, error) {
	// Validate the config file path.
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

	cfg := EmptyRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *RunConfig) Validate() error {
	if c.Integrator != nil {
		switch *c.Integrator {
		case advect.SchemeEuler, advect.SchemeRK4:
		default:
			return fmt.Errorf("unknown integrator %q (valid: %s, %s)", *c.Integrator, advect.SchemeEuler, advect.SchemeRK4)
		}
	}

	if c.Method != nil {
		switch grid.Method(*c.Method) {
		case grid.Bilinear, grid.Nearest:
		default:
			return fmt.Errorf("unknown method %q (valid: %v)", *c.Method, grid.ValidMethods)
		}
	}

	if c.TimePolicy != nil {
		switch field.RangePolicy(*c.TimePolicy) {
		case field.RangeClamp, field.RangeInvalidate:
		default:
			return fmt.Errorf("unknown time_policy %q (valid: %v)", *c.TimePolicy, field.ValidRangePolicies)
		}
	}

	if c.DT != nil && *c.DT == 0 {
		return fmt.Errorf("dt must be non-zero")
	}

	if c.MaxSteps != nil && *c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative, got %d", *c.MaxSteps)
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	// Validate TimeUnits can be parsed if set
	if c.TimeUnits != nil && *c.TimeUnits != "" {
		if _, err := units.Parse(*c.TimeUnits); err != nil {
			return fmt.Errorf("invalid time_units '%s': %w", *c.TimeUnits, err)
		}
	}

	return nil
}

// GetIntegrator returns the integrator value or the default.
func (c *RunConfig) GetIntegrator() string {
	if c.Integrator == nil || *c.Integrator == "" {
		return advect.SchemeRK4 // default
	}
	return *c.Integrator
}

// GetDT returns the dt value or the default.
func (c *RunConfig) GetDT() float64 {
	if c.DT == nil {
		return 1.0 // default: one day forward
	}
	return *c.DT
}

// GetMaxSteps returns the max_steps value or the default.
func (c *RunConfig) GetMaxSteps() int {
	if c.MaxSteps == nil {
		return 0 // default: bounded by end_time instead
	}
	return *c.MaxSteps
}

// GetMethod returns the method value or the default.
func (c *RunConfig) GetMethod() grid.Method {
	if c.Method == nil || *c.Method == "" {
		return grid.Bilinear // default
	}
	return grid.Method(*c.Method)
}

// GetTimePolicy returns the time_policy value or the default.
func (c *RunConfig) GetTimePolicy() field.RangePolicy {
	if c.TimePolicy == nil || *c.TimePolicy == "" {
		return field.RangeClamp // default
	}
	return field.RangePolicy(*c.TimePolicy)
}

// GetExtrapolate returns the extrapolate value or the default.
func (c *RunConfig) GetExtrapolate() bool {
	if c.Extrapolate == nil {
		return false // default: strict domain
	}
	return *c.Extrapolate
}

// GetWorkers returns the workers value or the default.
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0 // default: one per CPU, capped by batch size
	}
	return *c.Workers
}

// GetTimeBase parses and returns the TimeUnits as a units.TimeBase.
func (c *RunConfig) GetTimeBase() units.TimeBase {
	if c.TimeUnits == nil || *c.TimeUnits == "" {
		return units.TimeBase{Epoch: units.J2000, Scale: units.SecondsPerDay} // default
	}
	b, err := units.Parse(*c.TimeUnits)
	if err != nil {
		return units.TimeBase{Epoch: units.J2000, Scale: units.SecondsPerDay} // default on parse error
	}
	return b
}
