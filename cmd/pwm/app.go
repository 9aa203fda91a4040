package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sys/unix"

	"pwmtool/internal/config"
	"pwmtool/internal/gpio"
	"pwmtool/internal/logging"
	"pwmtool/internal/pwm"
	"pwmtool/internal/script"
	"pwmtool/internal/sysfs"
)

// usageExitCode is returned for bad flags, as getopt-style tools do.
const usageExitCode = int(unix.EINVAL)

const scriptHelp = `Script commands run left to right; an optional number overrides the default:
  f[hz]        set frequency
  d[n] d[n]%   set duty (1-255 raw, or 1-100 percent)
  u            enable output
  o            disable output
  D[ms]        wait, interruptible with Ctrl-C
  k            keep enabled on exit
Without -s the script is "fdu", or "fduk" with -k.`

func newCommand(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "pwm",
		Version:     Version,
		Usage:       "Drive a sysfs PWM channel",
		Description: scriptHelp,
		Writer:      stdout,
		ErrWriter:   stderr,
		// Exit codes are decided by run; never os.Exit from inside cli.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:    "chip",
				Aliases: []string{"p"},
				Usage:   "PWM chip number",
				Value:   config.DefaultChip,
				Sources: cli.EnvVars("PWM_CHIP"),
			},
			&cli.UintFlag{
				Name:    "channel",
				Aliases: []string{"c"},
				Usage:   "PWM chip channel number",
				Value:   config.DefaultChannel,
				Sources: cli.EnvVars("PWM_CHANNEL"),
			},
			&cli.UintFlag{
				Name:    "frequency",
				Aliases: []string{"f"},
				Usage:   "PWM frequency in Hz",
				Value:   uint(config.DefaultFrequencyHz),
				Sources: cli.EnvVars("PWM_FREQUENCY"),
			},
			&cli.UintFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Usage:   "duration of a D step in milliseconds",
				Value:   uint(config.DefaultDuration / time.Millisecond),
				Sources: cli.EnvVars("PWM_DURATION"),
			},
			&cli.StringFlag{
				Name:    "duty",
				Aliases: []string{"D"},
				Usage:   "duty cycle: 1-255 raw (duty = period * value / 255) or 1-100 followed by '%'",
				Value:   pwm.DefaultDuty.String(),
				Sources: cli.EnvVars("PWM_DUTY"),
			},
			&cli.StringFlag{
				Name:    "script",
				Aliases: []string{"s"},
				Usage:   "run PWM commands script",
				Sources: cli.EnvVars("PWM_SCRIPT"),
			},
			&cli.BoolFlag{
				Name:    "keep-enabled",
				Aliases: []string{"k"},
				Usage:   "leave the PWM enabled on exit",
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "channel backend: sysfs, gpio or dry-run",
				Value:   config.DefaultBackend,
				Sources: cli.EnvVars("PWM_BACKEND"),
			},
			&cli.StringFlag{
				Name:    "sysfs-root",
				Usage:   "sysfs PWM class directory",
				Value:   sysfs.DefaultRoot,
				Sources: cli.EnvVars("PWM_SYSFS_ROOT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "trace, debug, info, warn or error",
				Value:   "warn",
				Sources: cli.EnvVars("PWM_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text or json",
				Value: "text",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := configFromCommand(cmd)
			if err != nil {
				return cli.Exit("ERROR: "+err.Error(), usageExitCode)
			}
			logger, err := logging.New(cmd.String("log-level"), cmd.String("log-format"), cmd.Root().ErrWriter)
			if err != nil {
				return cli.Exit("ERROR: "+err.Error(), usageExitCode)
			}
			return execute(ctx, cfg, logger)
		},
	}
}

func configFromCommand(cmd *cli.Command) (config.Config, error) {
	cfg := config.Defaults()
	cfg.Chip = cmd.Uint("chip")
	cfg.Channel = cmd.Uint("channel")

	hz := cmd.Uint("frequency")
	if hz > math.MaxUint32 {
		return cfg, fmt.Errorf("frequency %d out of range", hz)
	}
	cfg.FrequencyHz = uint32(hz)

	ms := cmd.Uint("duration")
	if uint64(ms) > uint64(math.MaxInt64/int64(time.Millisecond)) {
		return cfg, fmt.Errorf("duration %d ms out of range", ms)
	}
	cfg.Duration = time.Duration(ms) * time.Millisecond

	duty, err := pwm.ParseDuty(cmd.String("duty"))
	if err != nil {
		return cfg, err
	}
	cfg.Duty = duty
	cfg.ScriptText = cmd.String("script")
	cfg.KeepEnabled = cmd.Bool("keep-enabled")
	cfg.Backend = cmd.String("backend")
	cfg.SysfsRoot = cmd.String("sysfs-root")

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// execute opens the channel, runs the script and closes the channel. Signals
// are caught from before the open so an interrupt during export still ends in
// a close; the close always happens, also after a failed step.
func execute(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	stop := &script.StopSignal{}
	detach := stop.StopOnDone(sigCtx)
	defer detach()

	prog := script.Parse(cfg.Script())

	be, err := newBackend(cfg, logger)
	if err == nil {
		var ch *pwm.Channel
		ch, err = pwm.Open(be, pwm.Options{
			Chip:    cfg.Chip,
			Channel: cfg.Channel,
			Export:  true,
			Logger:  logger,
		})
		if err == nil {
			return runScript(cfg, prog, ch, stop, logger)
		}
	}
	return cli.Exit(
		fmt.Sprintf("ERROR: Can't open PWM channel %d of chip %d: %v", cfg.Channel, cfg.Chip, err),
		int(pwm.CodeOf(err)),
	)
}

func runScript(cfg config.Config, prog script.Program, ch *pwm.Channel, stop *script.StopSignal, logger *slog.Logger) error {
	exec := cfg.Execution(stop)
	exec.Logger = logger
	logger.Info("running script", "script", prog.Source, "chip", cfg.Chip, "channel", cfg.Channel)
	res, runErr := script.Exec(ch, prog, exec)

	keep := cfg.LeaveEnabled(prog)
	if err := ch.Close(keep); err != nil {
		logger.Error("close failed", "error", err)
	}
	st := ch.State()
	logger.Info("pwm closed",
		"outcome", res.Outcome.String(),
		"steps", res.Executed,
		"keep_enabled", keep,
		"period_ns", st.PeriodNS,
		"duty_ns", st.DutyNS,
		"enabled", st.Enabled,
	)

	if runErr != nil {
		return cli.Exit("ERROR: "+runErr.Error(), int(pwm.CodeOf(runErr)))
	}
	if res.Outcome == script.Interrupted {
		logger.Warn("script interrupted", "steps", res.Executed)
	}
	return nil
}

func newBackend(cfg config.Config, logger *slog.Logger) (pwm.Backend, error) {
	switch cfg.Backend {
	case config.BackendGPIO:
		return gpio.New(cfg.Chip, cfg.Channel), nil
	case config.BackendDryRun:
		return pwm.NewDryRun(cfg.Chip, cfg.Channel, logger), nil
	}
	b, err := sysfs.New(cfg.SysfsRoot, cfg.Chip, cfg.Channel)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := newCommand(stdout, stderr).Run(ctx, args)
	if err == nil {
		return 0
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(stderr, msg)
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return usageExitCode
}
