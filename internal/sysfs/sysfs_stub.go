//go:build !linux

package sysfs

import (
	"fmt"

	"pwmtool/internal/pwm"
)

// DefaultRoot is where the kernel exposes PWM chips on Linux.
const DefaultRoot = "/sys/class/pwm"

// Backend is unavailable on this platform.
type Backend struct{}

func New(root string, chip, channel uint) (*Backend, error) {
	return nil, &pwm.Error{C: pwm.DeviceNotFound, Op: "open", Err: fmt.Errorf("sysfs pwm unsupported on this platform")}
}

func (b *Backend) Path() string                      { return "" }
func (b *Backend) Export() error                     { return fmt.Errorf("sysfs: pwm unsupported") }
func (b *Backend) Unexport() error                   { return fmt.Errorf("sysfs: pwm unsupported") }
func (b *Backend) Write(attr string, v uint64) error { return fmt.Errorf("sysfs: pwm unsupported") }
func (b *Backend) Read(attr string) (uint64, error)  { return 0, fmt.Errorf("sysfs: pwm unsupported") }
func (b *Backend) Release() error                    { return nil }
