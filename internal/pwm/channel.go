package pwm

import (
	"errors"
	"fmt"
	"log/slog"
)

const nsPerSecond = 1_000_000_000

// State is a snapshot of what Channel last wrote.
type State struct {
	Chip     uint   `json:"chip"`
	Channel  uint   `json:"channel"`
	PeriodNS uint64 `json:"period_ns"`
	DutyNS   uint64 `json:"duty_ns"`
	Enabled  bool   `json:"enabled"`
	Exported bool   `json:"exported"`
	Closed   bool   `json:"closed"`
}

// Channel is an opened, exported PWM channel.
//
// Not safe for concurrent use; one owner for its lifetime.
type Channel struct {
	chip, channel uint
	be            Backend
	log           *slog.Logger

	periodNS uint64
	dutyNS   uint64
	enabled  bool
	exported bool
	closed   bool
}

// Options configure Open.
type Options struct {
	Chip    uint
	Channel uint
	// Export requests the channel from the kernel if it is not available yet.
	Export bool
	Logger *slog.Logger
}

// Open takes ownership of be and prepares the channel.
//
// Current period, duty and enable values are read back when the backend can
// report them, so a channel left running by a previous run is changed
// without violating the duty <= period rule.
func Open(be Backend, opts Options) (*Channel, error) {
	if be == nil {
		return nil, errorf(DeviceNotFound, "open", "no backend for pwmchip%d/pwm%d", opts.Chip, opts.Channel)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	c := &Channel{
		chip:    opts.Chip,
		channel: opts.Channel,
		be:      be,
		log:     log.With("chip", opts.Chip, "channel", opts.Channel),
	}

	if opts.Export {
		err := be.Export()
		switch {
		case err == nil:
			c.log.Debug("pwm exported")
		case errors.Is(err, ErrAlreadyExported):
			c.log.Debug("pwm already exported")
		default:
			_ = be.Release()
			return nil, fmt.Errorf("open pwmchip%d/pwm%d: %w", opts.Chip, opts.Channel, err)
		}
		c.exported = true
	}

	if v, err := be.Read(AttrPeriod); err == nil {
		c.periodNS = v
	}
	if v, err := be.Read(AttrDutyCycle); err == nil {
		c.dutyNS = v
	}
	if v, err := be.Read(AttrEnable); err == nil {
		c.enabled = v != 0
	}
	return c, nil
}

// State returns what the channel last applied.
func (c *Channel) State() State {
	return State{
		Chip:     c.chip,
		Channel:  c.channel,
		PeriodNS: c.periodNS,
		DutyNS:   c.dutyNS,
		Enabled:  c.enabled,
		Exported: c.exported,
		Closed:   c.closed,
	}
}

// Period is the current period in nanoseconds, 0 if never set.
func (c *Channel) Period() uint64 { return c.periodNS }

// SetFrequency sets period = 1e9/hz ns.
//
// Any duty already applied keeps its fraction of the period. When the new
// period is shorter the duty is written first, otherwise the period is, so
// the hardware never sees duty > period.
func (c *Channel) SetFrequency(hz uint32) error {
	if err := c.usable("set frequency"); err != nil {
		return err
	}
	if hz == 0 {
		return errorf(InvalidArgument, "set frequency", "frequency must be > 0")
	}
	if hz > nsPerSecond {
		return errorf(InvalidArgument, "set frequency", "frequency %d Hz exceeds 1 ns period", hz)
	}
	period := uint64(nsPerSecond / hz)

	var duty uint64
	if c.dutyNS > 0 && c.periodNS > 0 {
		duty = c.dutyNS * period / c.periodNS
	}
	if duty > period {
		duty = period
	}

	if period < c.periodNS || c.dutyNS > period {
		if c.dutyNS > 0 {
			if err := c.write(AttrDutyCycle, duty); err != nil {
				return err
			}
			c.dutyNS = duty
		}
		if err := c.write(AttrPeriod, period); err != nil {
			return err
		}
		c.periodNS = period
		return nil
	}

	if err := c.write(AttrPeriod, period); err != nil {
		return err
	}
	c.periodNS = period
	if c.dutyNS > 0 && duty != c.dutyNS {
		if err := c.write(AttrDutyCycle, duty); err != nil {
			return err
		}
		c.dutyNS = duty
	}
	return nil
}

// SetDuty writes duty in period units. It must not exceed the period.
func (c *Channel) SetDuty(dutyNS uint64) error {
	if err := c.usable("set duty"); err != nil {
		return err
	}
	if dutyNS > c.periodNS {
		return errorf(InvalidDutyRange, "set duty", "duty %d ns exceeds period %d ns", dutyNS, c.periodNS)
	}
	if err := c.write(AttrDutyCycle, dutyNS); err != nil {
		return err
	}
	c.dutyNS = dutyNS
	return nil
}

// ApplyDuty encodes d against the current period and writes it. The
// period must be known, either set or read back at Open.
func (c *Channel) ApplyDuty(d DutyValue) error {
	if err := c.usable("set duty"); err != nil {
		return err
	}
	if c.periodNS == 0 {
		return errorf(InvalidArgument, "set duty", "period not set, set a frequency first")
	}
	ns, err := Encode(d, c.periodNS)
	if err != nil {
		return err
	}
	return c.SetDuty(ns)
}

func (c *Channel) Enable() error {
	if err := c.usable("enable"); err != nil {
		return err
	}
	if err := c.write(AttrEnable, 1); err != nil {
		return err
	}
	c.enabled = true
	return nil
}

func (c *Channel) Disable() error {
	if err := c.usable("disable"); err != nil {
		return err
	}
	if err := c.write(AttrEnable, 0); err != nil {
		return err
	}
	c.enabled = false
	return nil
}

// Close releases the channel. Unless keepEnabled is set the output is
// disabled and the channel unexported first; with keepEnabled the hardware
// is left as is. Calling Close again is a no-op.
func (c *Channel) Close(keepEnabled bool) error {
	if c == nil || c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if !keepEnabled {
		if err := c.write(AttrEnable, 0); err != nil {
			errs = append(errs, err)
		} else {
			c.enabled = false
		}
		if c.exported {
			if err := c.be.Unexport(); err != nil {
				errs = append(errs, err)
			} else {
				c.exported = false
				c.log.Debug("pwm unexported")
			}
		}
	}
	if err := c.be.Release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Channel) usable(op string) error {
	if c.closed {
		return errorf(InvalidArgument, op, "channel is closed")
	}
	return nil
}

func (c *Channel) write(attr string, v uint64) error {
	c.log.Debug("pwm write", "attr", attr, "value", v)
	return c.be.Write(attr, v)
}
