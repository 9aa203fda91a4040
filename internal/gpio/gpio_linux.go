//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"

	"pwmtool/internal/pwm"
)

// Consumer is the label shown for requested lines in gpioinfo.
const Consumer = "pwmtool"

// outputLine is the part of *gpiocdev.Line the backend needs.
type outputLine interface {
	SetValue(int) error
	Close() error
}

// openLineFn requests offset on /dev/gpiochip<chip> as an output driven low.
var openLineFn = func(chip, offset uint) (outputLine, error) {
	c, err := gpiocdev.NewChip(fmt.Sprintf("gpiochip%d", chip), gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, &pwm.Error{C: chipCode(err), Op: "export", Err: err}
	}
	defer c.Close()
	if int(offset) >= c.Lines() {
		return nil, &pwm.Error{C: pwm.DeviceNotFound, Op: "export",
			Err: fmt.Errorf("gpiochip%d has %d lines, no line %d", chip, c.Lines(), offset)}
	}
	l, err := c.RequestLine(int(offset), gpiocdev.AsOutput(0))
	if err != nil {
		return nil, &pwm.Error{C: chipCode(err), Op: "export", Err: err}
	}
	return l, nil
}

// Backend drives a plain GPIO line as an on/off stand-in for a PWM channel,
// for fans and buzzers wired to a pin without a PWM controller. Chip N is
// /dev/gpiochipN and the channel is the line offset.
//
// Period and duty are remembered but not generated: the line is high while
// the channel is enabled with a nonzero duty, low otherwise.
type Backend struct {
	chip, offset uint

	mu    sync.Mutex
	line  outputLine
	attrs map[string]uint64
	level int
}

func New(chip, offset uint) *Backend {
	return &Backend{chip: chip, offset: offset, attrs: make(map[string]uint64)}
}

func (b *Backend) Export() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.line != nil {
		return pwm.ErrAlreadyExported
	}
	l, err := openLineFn(b.chip, b.offset)
	if err != nil {
		return err
	}
	b.line = l
	b.level = 0
	return nil
}

func (b *Backend) Unexport() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.line == nil {
		return nil
	}
	// Leave the pin low when handing it back.
	err := b.line.SetValue(0)
	cerr := b.line.Close()
	b.line = nil
	clear(b.attrs)
	if err != nil {
		return ioError(pwm.AttrUnexport, err)
	}
	if cerr != nil {
		return ioError(pwm.AttrUnexport, cerr)
	}
	return nil
}

func (b *Backend) Write(attr string, value uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.line == nil {
		return ioError(attr, fmt.Errorf("gpiochip%d line %d not requested", b.chip, b.offset))
	}
	switch attr {
	case pwm.AttrPeriod, pwm.AttrDutyCycle, pwm.AttrEnable:
	default:
		return ioError(attr, unix.EINVAL)
	}
	b.attrs[attr] = value

	level := 0
	if b.attrs[pwm.AttrEnable] != 0 && b.attrs[pwm.AttrDutyCycle] > 0 {
		level = 1
	}
	if level == b.level {
		return nil
	}
	if err := b.line.SetValue(level); err != nil {
		return ioError(attr, err)
	}
	b.level = level
	return nil
}

func (b *Backend) Read(attr string) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.attrs[attr]
	if !ok {
		return 0, ioError(attr, fs.ErrNotExist)
	}
	return v, nil
}

// Release closes the line request without driving it first.
func (b *Backend) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.line == nil {
		return nil
	}
	err := b.line.Close()
	b.line = nil
	return err
}

func ioError(attr string, err error) error {
	var errno unix.Errno
	errors.As(err, &errno)
	return &pwm.IOError{Attr: attr, Errno: errno, Err: err}
}

func chipCode(err error) pwm.Code {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENOENT):
		return pwm.DeviceNotFound
	case errors.Is(err, fs.ErrPermission), errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return pwm.PermissionDenied
	}
	return pwm.IOFailure
}
