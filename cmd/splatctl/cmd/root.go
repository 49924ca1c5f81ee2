// Package cmd holds the splatctl commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/askiada/splatctl/internal/config"
	"github.com/askiada/splatctl/internal/jobs"
	"github.com/askiada/splatctl/internal/logging"
	"github.com/askiada/splatctl/internal/telemetry"
	"github.com/askiada/splatctl/pkg/launcher"
	"github.com/askiada/splatctl/pkg/pipeline/model"
)

// Options wire the commands to their surroundings.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	// Runner runs the renderer and ffmpeg. Nil uses a launcher.ExecRunner on Stdout and Stderr.
	Runner launcher.Runner
	// WorkDir is where the config file and .env are looked up. Defaults to the current directory.
	WorkDir string
}

type app struct {
	opts Options

	configPath  string
	envFile     string
	logFile     string
	graph       string
	verbose     bool
	concurrency int

	cfg      *config.Config
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	closeLog func() error
}

func (a *app) runner() launcher.Runner {
	if a.opts.Runner != nil {
		return a.opts.Runner
	}

	runner := launcher.NewExecRunner()
	runner.Stdout = a.opts.Stdout
	runner.Stderr = a.opts.Stderr

	return runner
}

// setup resolves the configuration and installs the logger. It runs before every command.
func (a *app) setup(*cobra.Command, []string) error {
	workDir := a.opts.WorkDir
	if workDir == "" {
		workDir = "."
	}

	cfg, path, err := config.Resolve(config.Options{Path: a.configPath, EnvFile: a.envFile, WorkDir: workDir})
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.Setup(logging.Options{Verbose: a.verbose, File: a.logFile, Stderr: a.opts.Stderr})
	if err != nil {
		return err
	}

	metrics, err := telemetry.New()
	if err != nil {
		closeLog()

		return err
	}

	a.cfg, a.logger, a.closeLog, a.metrics = cfg, logger, closeLog, metrics

	if path != "" {
		logger.Debug("configuration loaded", "path", path)
	}

	return nil
}

// finish flushes metrics and closes the log file once the command returned, whatever its outcome.
func (a *app) finish() {
	if a.cfg != nil && a.cfg.MetricsFile != "" && a.metrics != nil {
		err := a.metrics.WriteTextfile(config.ExpandHome(a.cfg.MetricsFile))
		if err != nil {
			a.logger.Warn("unable to write metrics", "error", err)
		}
	}

	if a.closeLog != nil {
		a.closeLog()
	}
}

func (a *app) jobOptions(job string) jobs.Options {
	concurrency := a.cfg.Jobs.Concurrency
	if a.concurrency > 0 {
		concurrency = a.concurrency
	}

	graph := a.cfg.Jobs.Graph
	if a.graph != "" {
		graph = a.graph
	}

	return jobs.Options{
		Concurrency: concurrency,
		Graph:       graph,
		Logger:      a.logger,
		Extra:       []model.PipelineOption{a.metrics.PipelineOption(job)},
	}
}

// report prints a job summary and fails when any item failed.
func (a *app) report(report *jobs.Report) error {
	a.metrics.ObserveReport(report)

	fmt.Fprintf(a.opts.Stdout, "%s: %d processed, %d failed, %s in %s\n",
		report.Job, report.Processed, report.Failed,
		units.HumanSize(float64(report.Bytes)), report.Duration.Round(time.Millisecond))

	return report.Err()
}

// NewRootCommand builds the splatctl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	a := &app{opts: opts}

	return a.rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "splatctl",
		Short:             "Launch Gaussian-splatting renders and prepare their datasets",
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		PersistentPreRunE: a.setup,
	}

	root.SetOut(a.opts.Stdout)
	root.SetErr(a.opts.Stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: "+config.FileName+" found from the current directory up to the git root)")
	flags.StringVar(&a.envFile, "env-file", "", "dotenv file loaded before reading SPLATCTL_ variables (default: ./.env when present)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	flags.StringVar(&a.logFile, "log-file", "", "also write logs to this file")
	flags.StringVar(&a.graph, "graph", "", "write the DOT graph of dataset jobs to this file")
	flags.IntVarP(&a.concurrency, "concurrency", "j", 0, "workers per dataset job (default from config)")

	root.AddCommand(
		a.renderCommand(),
		a.sampleCommand(),
		a.mergePanoCommand(),
		a.colmapCommand(),
		a.prepareCommand(),
		a.convertCommand(),
		a.videoCommand(),
		a.publishCommand(),
		a.historyCommand(),
	)

	return root
}

// Execute runs splatctl with args and returns the process exit code: the renderer's own
// status for a failed render, 1 for any other error.
func Execute(ctx context.Context, args []string, opts Options) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	a := &app{opts: opts}
	root := a.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	a.finish()

	if err != nil {
		fmt.Fprintf(opts.Stderr, "splatctl: %v\n", err)

		return launcher.ExitCode(err)
	}

	return 0
}
