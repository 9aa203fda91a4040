package pwm

import (
	"fmt"
	"log/slog"
)

// DryRun is a Backend that logs writes and remembers values instead of
// touching hardware. Useful on hosts without a PWM controller.
type DryRun struct {
	chip, channel uint
	log           *slog.Logger
	exported      bool
	attrs         map[string]uint64
}

func NewDryRun(chip, channel uint, log *slog.Logger) *DryRun {
	if log == nil {
		log = slog.Default()
	}
	return &DryRun{
		chip:    chip,
		channel: channel,
		log:     log.With("backend", "dry-run"),
		attrs:   make(map[string]uint64),
	}
}

func (d *DryRun) path(attr string) string {
	return fmt.Sprintf("pwmchip%d/pwm%d/%s", d.chip, d.channel, attr)
}

func (d *DryRun) Export() error {
	if d.exported {
		return ErrAlreadyExported
	}
	d.log.Info("export", "path", fmt.Sprintf("pwmchip%d/%s", d.chip, AttrExport), "value", d.channel)
	d.exported = true
	return nil
}

func (d *DryRun) Unexport() error {
	d.log.Info("unexport", "path", fmt.Sprintf("pwmchip%d/%s", d.chip, AttrUnexport), "value", d.channel)
	d.exported = false
	clear(d.attrs)
	return nil
}

func (d *DryRun) Write(attr string, value uint64) error {
	d.log.Info("write", "path", d.path(attr), "value", value)
	d.attrs[attr] = value
	return nil
}

func (d *DryRun) Read(attr string) (uint64, error) {
	v, ok := d.attrs[attr]
	if !ok {
		return 0, &IOError{Attr: attr, Err: fmt.Errorf("%s not written yet", d.path(attr))}
	}
	return v, nil
}

func (d *DryRun) Release() error { return nil }
