package script

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pwmtool/internal/pwm"
)

// DefaultPollInterval bounds how long a wait step can miss a stop request.
const DefaultPollInterval = 10 * time.Millisecond

// Device is what the interpreter drives. *pwm.Channel implements it.
type Device interface {
	SetFrequency(hz uint32) error
	ApplyDuty(d pwm.DutyValue) error
	Enable() error
	Disable() error
}

var _ Device = (*pwm.Channel)(nil)

// Config holds the per-run parameters. It is not modified by Run.
type Config struct {
	Script      string
	FrequencyHz uint32
	Duration    time.Duration
	Duty        pwm.DutyValue
	Stop        *StopSignal

	// PollInterval is the wait-step tick; zero means DefaultPollInterval.
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Outcome tells how a run ended.
type Outcome int

const (
	Completed Outcome = iota
	Interrupted
	// Failed goes with a non-nil error from Run.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result summarizes a run.
type Result struct {
	Outcome Outcome
	// Executed counts steps that finished, k markers included.
	Executed int
}

// ErrStepFailed wraps device failures with the step that triggered them.
var ErrStepFailed = errors.New("script step failed")

// sleepFn is swapped in tests.
var sleepFn = time.Sleep

// Run parses cfg.Script and executes it against dev.
//
// The stop signal is checked before the run, before each step, on every poll
// tick of a wait and once more before a parse error is reported. A stop is not an error: Run
// returns Interrupted with a nil error. The first failure aborts the run with
// Outcome Failed; state already applied is left in place.
func Run(dev Device, cfg Config) (Result, error) {
	return Exec(dev, Parse(cfg.Script), cfg)
}

// Exec runs an already parsed program. If prog carries a parse error the
// valid steps before it run first and the parse error is returned after.
func Exec(dev Device, prog Program, cfg Config) (Result, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	tick := cfg.PollInterval
	if tick <= 0 {
		tick = DefaultPollInterval
	}

	var res Result
	if cfg.Stop.Stopped() {
		log.Debug("script interrupted before start")
		res.Outcome = Interrupted
		return res, nil
	}
	for _, step := range prog.Steps {
		if cfg.Stop.Stopped() {
			log.Debug("script interrupted", "before", step.String(), "offset", step.Offset)
			res.Outcome = Interrupted
			return res, nil
		}
		log.Debug("script step", "cmd", step.String(), "offset", step.Offset)

		var err error
		switch step.Op {
		case OpFrequency:
			hz := cfg.FrequencyHz
			if step.HasArg {
				hz = step.Hz
			}
			err = dev.SetFrequency(hz)
		case OpDuty:
			d := cfg.Duty
			if step.HasArg {
				d = step.Duty
			}
			err = dev.ApplyDuty(d)
		case OpEnable:
			err = dev.Enable()
		case OpDisable:
			err = dev.Disable()
		case OpWait:
			wait := cfg.Duration
			if step.HasArg {
				wait = step.Wait
			}
			if !waitOrStop(wait, tick, cfg.Stop) {
				log.Debug("script interrupted", "during", step.String(), "offset", step.Offset)
				res.Outcome = Interrupted
				return res, nil
			}
		case OpKeep:
		default:
			err = &pwm.UnknownCommandError{Letter: rune(step.Op), Offset: step.Offset}
		}
		if err != nil {
			res.Outcome = Failed
			return res, fmt.Errorf("%w: %q at offset %d: %w", ErrStepFailed, step.String(), step.Offset, err)
		}
		res.Executed++
	}

	if prog.Err != nil {
		// A stop wins over a parse error.
		if cfg.Stop.Stopped() {
			log.Debug("script interrupted", "steps", res.Executed)
			res.Outcome = Interrupted
			return res, nil
		}
		res.Outcome = Failed
		return res, prog.Err
	}
	res.Outcome = Completed
	return res, nil
}

// waitOrStop sleeps for d in slices of at most tick. It returns false if the
// stop signal was seen.
func waitOrStop(d, tick time.Duration, stop *StopSignal) bool {
	deadline := time.Now().Add(d)
	for {
		if stop.Stopped() {
			return false
		}
		left := time.Until(deadline)
		if left <= 0 {
			return true
		}
		sleepFn(min(left, tick))
	}
}
