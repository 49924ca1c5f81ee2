package launcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrSourceMissing = errors.New("source dataset directory not found")
	ErrNoSceneData   = errors.New("source dataset has neither sparse/ nor images/")
	ErrScriptMissing = errors.New("renderer script not found")
)

// Result describes a finished launch.
type Result struct {
	Command  Command
	Started  time.Time
	Duration time.Duration
	ExitCode int
}

// Launcher starts renderer jobs.
type Launcher struct {
	env    Environment
	runner Runner
	logger *slog.Logger
}

// New creates a launcher. A nil runner uses an ExecRunner and a nil logger uses slog.Default.
func New(env Environment, runner Runner, logger *slog.Logger) *Launcher {
	if runner == nil {
		runner = NewExecRunner()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Launcher{env: env, runner: runner, logger: logger}
}

// Environment returns the environment jobs run under.
func (l *Launcher) Environment() Environment {
	return l.env
}

// Launch runs job and waits for it. A non-zero exit returns an *ExitError and the
// same code in Result.ExitCode.
func (l *Launcher) Launch(ctx context.Context, job Job) (Result, error) {
	cmd, err := Build(l.env, job)
	if err != nil {
		return Result{}, errors.Wrap(err, "unable to build renderer command")
	}

	res := Result{Command: cmd, Started: time.Now()}

	l.logger.Info("launching renderer",
		"script", valueOr(job.Script, DefaultScript),
		"conda_env", l.env.CondaEnv,
		"activation", valueOr(string(l.env.Activation), string(ActivationShell)),
		"dir", cmd.Dir,
	)
	l.logger.Debug("renderer command", "cmd", cmd.String())

	err = l.runner.Run(ctx, cmd)
	res.Duration = time.Since(res.Started)
	res.ExitCode = ExitCode(err)

	if err != nil {
		l.logger.Error("renderer failed", "exit_code", res.ExitCode, "duration", res.Duration, "error", err)

		return res, err
	}

	l.logger.Info("renderer finished", "duration", res.Duration)

	return res, nil
}

// Validate checks that the dataset and the renderer script exist before launching.
func Validate(job Job) error {
	if job.SourcePath != "" {
		info, err := os.Stat(job.SourcePath)
		if err != nil || !info.IsDir() {
			return errors.Wrap(ErrSourceMissing, job.SourcePath)
		}

		if !isDir(filepath.Join(job.SourcePath, "sparse")) && !isDir(filepath.Join(job.SourcePath, "images")) {
			return errors.Wrap(ErrNoSceneData, job.SourcePath)
		}
	}

	script := valueOr(job.Script, DefaultScript)
	if !filepath.IsAbs(script) {
		script = filepath.Join(job.WorkDir, script)
	}

	if _, err := os.Stat(script); err != nil {
		return errors.Wrap(ErrScriptMissing, script)
	}

	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
