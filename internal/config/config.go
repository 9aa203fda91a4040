package config

import (
	"fmt"
	"strings"
	"time"

	"pwmtool/internal/pwm"
	"pwmtool/internal/script"
)

// Defaults, overridable per run from flags or PWM_* environment variables.
const (
	DefaultChip        uint   = 0
	DefaultChannel     uint   = 0
	DefaultFrequencyHz uint32 = 1000
	DefaultDuration           = 250 * time.Millisecond
	DefaultBackend            = BackendSysfs
)

// Backend names accepted by Config.Backend.
const (
	BackendSysfs  = "sysfs"
	BackendGPIO   = "gpio"
	BackendDryRun = "dry-run"
)

var backends = []string{BackendSysfs, BackendGPIO, BackendDryRun}

// Config is one run of the tool, as collected by the front-end.
type Config struct {
	Chip        uint
	Channel     uint
	FrequencyHz uint32
	Duration    time.Duration
	Duty        pwm.DutyValue
	// ScriptText is the -s argument; empty selects a built-in script.
	ScriptText  string
	KeepEnabled bool

	Backend   string
	SysfsRoot string
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		Chip:        DefaultChip,
		Channel:     DefaultChannel,
		FrequencyHz: DefaultFrequencyHz,
		Duration:    DefaultDuration,
		Duty:        pwm.DefaultDuty,
		Backend:     DefaultBackend,
	}
}

// Normalize canonicalizes the backend name. Frequency and duty are never
// defaulted here: an explicit 0 must reach Validate and be rejected.
func (c *Config) Normalize() {
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	c.Backend = strings.ToLower(c.Backend)
}

// Validate reports the first problem as an InvalidArgument error.
//
// The duty is not range-checked here. It is only rejected when a d step
// applies it, after earlier steps have run.
func (c *Config) Validate() error {
	if c.FrequencyHz == 0 {
		return &pwm.Error{C: pwm.InvalidArgument, Op: "config", Err: fmt.Errorf("frequency must be > 0")}
	}
	known := false
	for _, b := range backends {
		if c.Backend == b {
			known = true
			break
		}
	}
	if !known {
		return &pwm.Error{C: pwm.InvalidArgument, Op: "config",
			Err: fmt.Errorf("backend must be one of %s, got %q", strings.Join(backends, ", "), c.Backend)}
	}
	return nil
}

// Script returns the script to run: the explicit one, or fdu / fduk.
func (c *Config) Script() string {
	if c.ScriptText != "" {
		return c.ScriptText
	}
	if c.KeepEnabled {
		return script.DefaultKeepScript
	}
	return script.DefaultScript
}

// LeaveEnabled decides the close mode: the -k flag or a k in the script.
func (c *Config) LeaveEnabled(prog script.Program) bool {
	return c.KeepEnabled || prog.KeepEnabled()
}

// Execution builds the interpreter configuration for this run.
func (c *Config) Execution(stop *script.StopSignal) script.Config {
	return script.Config{
		Script:      c.Script(),
		FrequencyHz: c.FrequencyHz,
		Duration:    c.Duration,
		Duty:        c.Duty,
		Stop:        stop,
	}
}
