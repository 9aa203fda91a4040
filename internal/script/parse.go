package script

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"pwmtool/internal/pwm"
)

// Op is one interpreter action.
type Op byte

const (
	OpFrequency Op = 'f'
	OpDuty      Op = 'd'
	OpEnable    Op = 'u'
	OpDisable   Op = 'o'
	OpWait      Op = 'D'
	// OpKeep marks the script as "leave enabled on exit". It does nothing
	// when executed; the caller reads it through Program.KeepEnabled.
	OpKeep Op = 'k'
)

// Built-in scripts selected when no script is given.
const (
	DefaultScript     = "fdu"
	DefaultKeepScript = "fduk"
)

// Step is a parsed command. Without HasArg the run defaults apply.
type Step struct {
	Op     Op
	Offset int
	HasArg bool

	Hz   uint32
	Duty pwm.DutyValue
	Wait time.Duration
}

func (s Step) String() string {
	if !s.HasArg {
		return string(rune(s.Op))
	}
	switch s.Op {
	case OpFrequency:
		return fmt.Sprintf("f%d", s.Hz)
	case OpDuty:
		return "d" + s.Duty.String()
	case OpWait:
		return fmt.Sprintf("D%d", s.Wait.Milliseconds())
	}
	return string(rune(s.Op))
}

// Program is a parsed script: the valid steps in order and, if parsing
// stopped early, the error at the first bad character. Steps before the
// error are still executable.
type Program struct {
	Source string
	Steps  []Step
	Err    error
}

// KeepEnabled reports whether a k marker was parsed.
func (p Program) KeepEnabled() bool {
	for _, s := range p.Steps {
		if s.Op == OpKeep {
			return true
		}
	}
	return false
}

// Parse reads a command-letter script.
//
// Grammar, one command after another with no separators:
//
//	f[hz]       set frequency
//	d[n] d[n]%  set duty, raw 1..255 or percent 1..100
//	u           enable output
//	o           disable output
//	D[ms]       wait
//	k           keep enabled on exit
//
// Parsing stops at the first unknown letter or malformed argument.
func Parse(src string) Program {
	prog := Program{Source: src}
	i := 0
	for i < len(src) {
		off := i
		c := src[i]
		i++
		step := Step{Op: Op(c), Offset: off}

		switch Op(c) {
		case OpEnable, OpDisable, OpKeep:
		case OpFrequency, OpWait:
			digits := scanDigits(src, i)
			i += len(digits)
			if digits == "" {
				break
			}
			n, err := strconv.ParseUint(digits, 10, 32)
			if err != nil {
				prog.Err = &pwm.ArgumentError{Letter: rune(c), Offset: off, Text: digits, Err: err}
				return prog
			}
			step.HasArg = true
			if Op(c) == OpFrequency {
				step.Hz = uint32(n)
			} else {
				step.Wait = time.Duration(n) * time.Millisecond
			}
		case OpDuty:
			digits := scanDigits(src, i)
			i += len(digits)
			percent := i < len(src) && src[i] == '%'
			if percent {
				i++
			}
			if digits == "" {
				if percent {
					prog.Err = &pwm.ArgumentError{Letter: rune(c), Offset: off, Text: "%", Err: fmt.Errorf("missing value")}
					return prog
				}
				break
			}
			n, err := strconv.ParseUint(digits, 10, 32)
			if err != nil {
				prog.Err = &pwm.ArgumentError{Letter: rune(c), Offset: off, Text: digits, Err: err}
				return prog
			}
			step.HasArg = true
			if percent {
				step.Duty = pwm.DutyPercent(uint32(n))
			} else {
				step.Duty = pwm.DutyRaw(uint32(n))
			}
		default:
			prog.Err = &pwm.UnknownCommandError{Letter: decodeLetter(src, off), Offset: off}
			return prog
		}
		prog.Steps = append(prog.Steps, step)
	}
	return prog
}

func scanDigits(s string, i int) string {
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	return s[i:j]
}

// decodeLetter returns the full rune at off so non-ASCII input is reported
// as typed.
func decodeLetter(s string, off int) rune {
	r, _ := utf8.DecodeRuneInString(s[off:])
	return r
}
