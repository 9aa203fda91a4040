package pwm

import (
	"fmt"
	"strconv"
	"strings"
)

// DutyKind tells how a DutyValue is scaled.
type DutyKind uint8

const (
	// Raw values scale against 255.
	Raw DutyKind = iota
	// Percent values scale against 100.
	Percent
)

// DutyValue is a duty cycle request, either Raw 1..255 or Percent 1..100.
//
// The value is range-checked by Encode, not by construction, so an out of
// range request can travel to the point where it is applied and be reported
// there.
type DutyValue struct {
	Kind  DutyKind
	Value uint32
}

// DefaultDuty is 50%.
var DefaultDuty = DutyPercent(50)

func DutyRaw(v uint32) DutyValue     { return DutyValue{Kind: Raw, Value: v} }
func DutyPercent(p uint32) DutyValue { return DutyValue{Kind: Percent, Value: p} }

func (d DutyValue) String() string {
	if d.Kind == Percent {
		return fmt.Sprintf("%d%%", d.Value)
	}
	return strconv.FormatUint(uint64(d.Value), 10)
}

// Validate reports InvalidDutyRange for zero or out of range values.
func (d DutyValue) Validate() error {
	switch d.Kind {
	case Raw:
		if d.Value < 1 || d.Value > 255 {
			return errorf(InvalidDutyRange, "duty", "raw duty %d outside 1..255", d.Value)
		}
	case Percent:
		if d.Value < 1 || d.Value > 100 {
			return errorf(InvalidDutyRange, "duty", "duty %d%% outside 1..100", d.Value)
		}
	default:
		return errorf(InvalidDutyRange, "duty", "unknown duty kind %d", d.Kind)
	}
	return nil
}

// Encode converts d into period units (nanoseconds for sysfs), truncating.
func Encode(d DutyValue, period uint64) (uint64, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	if d.Kind == Percent {
		return period * uint64(d.Value) / 100, nil
	}
	return period * uint64(d.Value) / 255, nil
}

// ParseDuty accepts "N" as a raw value (decimal, 0x hex or 0 octal) and "N%"
// as a percentage. Range is not checked here; see Validate.
func ParseDuty(s string) (DutyValue, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DutyValue{}, errorf(InvalidArgument, "duty", "empty duty value")
	}
	if p, ok := strings.CutSuffix(s, "%"); ok {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return DutyValue{}, errorf(InvalidArgument, "duty", "parse %q: %w", s, err)
		}
		return DutyPercent(uint32(n)), nil
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return DutyValue{}, errorf(InvalidArgument, "duty", "parse %q: %w", s, err)
	}
	return DutyRaw(uint32(n)), nil
}
