//go:build !linux

package gpio

import (
	"fmt"

	"pwmtool/internal/pwm"
)

// Backend is unavailable on this platform.
type Backend struct{}

func New(chip, offset uint) *Backend { return &Backend{} }

func (b *Backend) Export() error {
	return &pwm.Error{C: pwm.DeviceNotFound, Op: "export", Err: fmt.Errorf("gpio unsupported on this platform")}
}
func (b *Backend) Unexport() error                   { return nil }
func (b *Backend) Write(attr string, v uint64) error { return fmt.Errorf("gpio: unsupported") }
func (b *Backend) Read(attr string) (uint64, error)  { return 0, fmt.Errorf("gpio: unsupported") }
func (b *Backend) Release() error                    { return nil }
