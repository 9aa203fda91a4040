//go:build linux

package sysfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"pwmtool/internal/pwm"
)

// Backend drives one channel under /sys/class/pwm:
//
//	<root>/pwmchipN/export, unexport
//	<root>/pwmchipN/pwmM/period, duty_cycle, enable
//
// Values are decimal text, times in nanoseconds.
type Backend struct {
	chipPath string // <root>/pwmchipN
	pwmPath  string // <root>/pwmchipN/pwmM
	channel  uint
}

// DefaultRoot is where the kernel exposes PWM chips.
const DefaultRoot = "/sys/class/pwm"

// exportSettle is how long to wait for pwmM to appear after export.
var exportSettle = 500 * time.Millisecond

// New returns a backend for pwmchip<chip>/pwm<channel> under root. It does
// not touch the filesystem; see Export.
func New(root string, chip, channel uint) (*Backend, error) {
	if root == "" {
		root = DefaultRoot
	}
	chipPath := filepath.Join(root, fmt.Sprintf("pwmchip%d", chip))
	return &Backend{
		chipPath: chipPath,
		pwmPath:  filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel)),
		channel:  channel,
	}, nil
}

// Path is the channel directory.
func (b *Backend) Path() string { return b.pwmPath }

func (b *Backend) Export() error {
	// pwmchipN entries are commonly symlinks, so follow them.
	if _, err := os.Stat(b.chipPath); err != nil {
		return &pwm.Error{C: openCode(err), Op: "export", Err: err}
	}
	if npwm, err := readUint(filepath.Join(b.chipPath, "npwm")); err == nil && uint64(b.channel) >= npwm {
		return &pwm.Error{C: pwm.DeviceNotFound, Op: "export",
			Err: fmt.Errorf("%s has %d channels, no pwm%d", b.chipPath, npwm, b.channel)}
	}
	if _, err := os.Stat(b.pwmPath); err == nil {
		return pwm.ErrAlreadyExported
	}

	if err := writeAttr(filepath.Join(b.chipPath, pwm.AttrExport), strconv.FormatUint(uint64(b.channel), 10)); err != nil {
		// Someone else exported it between the stat and the write.
		if errors.Is(err, unix.EBUSY) {
			return pwm.ErrAlreadyExported
		}
		return &pwm.Error{C: exportCode(err), Op: "export", Err: ioError(pwm.AttrExport, err)}
	}

	// udev creates the node asynchronously.
	deadline := time.Now().Add(exportSettle)
	for {
		_, err := os.Stat(b.pwmPath)
		if err == nil {
			return nil
		}
		if !time.Now().Before(deadline) {
			return &pwm.Error{C: pwm.DeviceNotFound, Op: "export",
				Err: fmt.Errorf("%s not created after export: %w", b.pwmPath, err)}
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (b *Backend) Unexport() error {
	err := writeAttr(filepath.Join(b.chipPath, pwm.AttrUnexport), strconv.FormatUint(uint64(b.channel), 10))
	if err != nil {
		return ioError(pwm.AttrUnexport, err)
	}
	return nil
}

func (b *Backend) Write(attr string, value uint64) error {
	if err := writeAttr(filepath.Join(b.pwmPath, attr), strconv.FormatUint(value, 10)); err != nil {
		return ioError(attr, err)
	}
	return nil
}

func (b *Backend) Read(attr string) (uint64, error) {
	v, err := readUint(filepath.Join(b.pwmPath, attr))
	if err != nil {
		return 0, ioError(attr, err)
	}
	return v, nil
}

// Release is a no-op: every access opens and closes its own file.
func (b *Backend) Release() error { return nil }

// writeAttr writes value in one write(2).
//
// O_TRUNC and O_CREATE are left out on purpose: some sysfs attributes reject
// them with EACCES even when the mode bits allow writing.
func writeAttr(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(value)
	cerr := f.Close()
	if werr != nil && cerr != nil {
		return errors.Join(werr, cerr)
	}
	if werr != nil {
		return werr
	}
	return cerr
}

func readUint(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("%s: empty", path)
	}
	return strconv.ParseUint(s, 10, 64)
}

func ioError(attr string, err error) error {
	var errno unix.Errno
	errors.As(err, &errno)
	return &pwm.IOError{Attr: attr, Errno: errno, Err: err}
}

// openCode classifies a failure to reach the chip directory.
func openCode(err error) pwm.Code {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ENODEV):
		return pwm.DeviceNotFound
	case errors.Is(err, fs.ErrPermission):
		return pwm.PermissionDenied
	}
	return pwm.IOFailure
}

// exportCode classifies a failed write to pwmchipN/export. The kernel answers
// EINVAL or ENODEV for a channel index the chip does not have.
func exportCode(err error) pwm.Code {
	switch {
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM), errors.Is(err, unix.EROFS):
		return pwm.PermissionDenied
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.EINVAL), errors.Is(err, unix.ENXIO):
		return pwm.DeviceNotFound
	}
	return pwm.IOFailure
}
