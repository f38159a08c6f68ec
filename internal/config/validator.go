package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	fimerrors "github.com/standardbeagle/fim/internal/errors"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults
// Returns an error if validation fails
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return fimerrors.NewConfigError("project", "", err)
	}

	if err := v.validateMiningConfig(&cfg.Mining); err != nil {
		return fimerrors.NewConfigError("mining", "", err)
	}

	if err := v.validateRuntimeConfig(&cfg.Runtime); err != nil {
		return fimerrors.NewConfigError("runtime", "", err)
	}

	v.setSmartDefaults(cfg)
	return nil
}

// validateProjectConfig validates project configuration
func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return errors.New("artifact root cannot be empty")
	}
	return nil
}

// validateMiningConfig validates mining thresholds and loop bounds
func (v *Validator) validateMiningConfig(mining *Mining) error {
	if mining.MinSupportRatio != 0 {
		if mining.MinSupportRatio < 0 || mining.MinSupportRatio > 1 {
			return fmt.Errorf("MinSupportRatio must be within [0, 1], got %v", mining.MinSupportRatio)
		}
	} else if mining.MinSupport < 1 {
		return fmt.Errorf("MinSupport must be at least 1, got %d", mining.MinSupport)
	}

	if mining.MaxIterations < 1 {
		return fmt.Errorf("MaxIterations must be at least 1, got %d", mining.MaxIterations)
	}
	return nil
}

// validateRuntimeConfig validates runner selection and task parallelism
func (v *Validator) validateRuntimeConfig(rt *Runtime) error {
	switch rt.Runner {
	case RunnerInline, RunnerLocal, RunnerHadoop:
	case "":
		rt.Runner = DefaultRunner
	default:
		return fmt.Errorf("unknown runner %q (expected %s, %s, or %s)",
			rt.Runner, RunnerInline, RunnerLocal, RunnerHadoop)
	}

	if rt.Mappers < 0 {
		return fmt.Errorf("Mappers must be non-negative, got %d", rt.Mappers)
	}
	if rt.Partitions < 0 {
		return fmt.Errorf("Partitions must be non-negative, got %d", rt.Partitions)
	}

	for _, arg := range rt.HadoopArgs {
		if !strings.Contains(arg, "=") {
			return fmt.Errorf("hadoop argument %q is not a KEY=VALUE pair", arg)
		}
	}
	return nil
}

// setSmartDefaults fills in auto-detected values after validation
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Project.Name == "" {
		cfg.Project.Name = "fim"
	}

	if cfg.Runtime.Mappers == 0 {
		cfg.Runtime.Mappers = runtime.NumCPU()
	}
	if cfg.Runtime.Partitions == 0 {
		// The inline runner always uses a single partition; parallel
		// runners default to one reduce partition per core.
		if cfg.Runtime.Runner == RunnerInline {
			cfg.Runtime.Partitions = 1
		} else {
			cfg.Runtime.Partitions = runtime.NumCPU()
		}
	}
}
