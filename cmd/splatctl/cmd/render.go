package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/splatctl/internal/config"
	"github.com/askiada/splatctl/internal/history"
	"github.com/askiada/splatctl/pkg/launcher"
)

var errPositionalArgs = errors.New("renderer arguments must follow --")

type renderFlags struct {
	source       string
	modelPath    string
	batchSize    int
	script       string
	workDir      string
	condaEnv     string
	condaProfile string
	activation   string
	python       string
	check        bool
}

func (a *app) renderCommand() *cobra.Command {
	f := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render [flags] [-- renderer args...]",
		Short: "Activate the conda environment and run render.py",
		Long: "Activate the conda environment and run the renderer with -s, --model_path and --bsz.\n" +
			"Arguments after -- are passed to the renderer unchanged. splatctl exits with the renderer's status.",
		Example: "  splatctl render -s /data/720_process -m /results/720 --workdir ~/Grendel-GS -- --skip_train",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dash := cmd.ArgsLenAtDash()
			if (dash == -1 && len(args) > 0) || dash > 0 {
				return errPositionalArgs
			}

			return a.render(cmd, f, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.source, "source", "s", "", "dataset directory passed as -s")
	flags.StringVarP(&f.modelPath, "model_path", "m", "", "trained model directory passed as --model_path")
	flags.IntVar(&f.batchSize, "bsz", launcher.DefaultBatchSize, "batch size passed as --bsz")
	flags.StringVar(&f.script, "script", launcher.DefaultScript, "renderer entry point, relative to --workdir")
	flags.StringVar(&f.workDir, "workdir", "", "renderer checkout the script runs from")
	flags.StringVar(&f.condaEnv, "conda-env", launcher.DefaultCondaEnv, "conda environment to activate")
	flags.StringVar(&f.condaProfile, "conda-profile", "", "conda profile script sourced before activation")
	flags.StringVar(&f.activation, "activation", string(launcher.ActivationShell), "activation mode: shell, conda-run or none")
	flags.StringVar(&f.python, "python", "", "python interpreter inside the environment")
	flags.BoolVar(&f.check, "check", false, "check the dataset and script exist before launching")

	return cmd
}

// resolve merges the configuration with the flags set on the command line.
func (f *renderFlags) resolve(cmd *cobra.Command, cfg *config.Config) (launcher.Environment, launcher.Job, error) {
	env := cfg.Environment()
	job := launcher.Job{
		Script:     cfg.Renderer.Script,
		WorkDir:    cfg.Renderer.WorkDir,
		BatchSize:  cfg.Renderer.BatchSize,
		SourcePath: f.source,
		ModelPath:  f.modelPath,
	}

	changed := cmd.Flags().Changed

	if changed("bsz") {
		if f.batchSize <= 0 {
			return env, job, errors.Wrapf(launcher.ErrInvalidBatchSize, "got %d", f.batchSize)
		}

		job.BatchSize = f.batchSize
	}

	if changed("script") {
		job.Script = f.script
	}

	if changed("workdir") {
		job.WorkDir = config.ExpandHome(f.workDir)
	}

	if changed("conda-env") {
		env.CondaEnv = f.condaEnv
	}

	if changed("conda-profile") {
		env.CondaProfile = config.ExpandHome(f.condaProfile)
	}

	if changed("activation") {
		env.Activation = launcher.Activation(f.activation)
	}

	if changed("python") {
		env.Python = f.python
	}

	return env, job, nil
}

func (a *app) render(cmd *cobra.Command, f *renderFlags, extra []string) error {
	env, job, err := f.resolve(cmd, a.cfg)
	if err != nil {
		return err
	}

	job.ExtraArgs = extra

	if f.check {
		err := launcher.Validate(job)
		if err != nil {
			return errors.Wrap(err, "pre-flight check")
		}
	}

	var run *history.Run

	store := a.openHistory()
	if store != nil {
		defer store.Close()

		built, err := launcher.Build(env, job)
		if err == nil {
			run = &history.Run{
				Script:  job.Script,
				Command: built.String(),
				WorkDir: job.WorkDir,
				Source:  job.SourcePath,
				Model:   job.ModelPath,
			}

			err = store.Start(run)
			if err != nil {
				a.logger.Warn("unable to record run", "error", err)

				run = nil
			}
		}
	}

	res, err := launcher.New(env, a.runner(), a.logger).Launch(cmd.Context(), job)

	if run != nil {
		finishErr := store.Finish(run.Id, res.ExitCode, err)
		if finishErr != nil {
			a.logger.Warn("unable to record run outcome", "error", finishErr)
		}
	}

	if res.Duration > 0 {
		a.metrics.ObserveLaunch(job.Script, res.Duration, res.ExitCode)
	}

	return err
}

// openHistory returns nil when the ledger is disabled or cannot be opened.
func (a *app) openHistory() *history.Store {
	if a.cfg.History.Disabled {
		return nil
	}

	store, err := history.Open(a.cfg.History.Path)
	if err != nil {
		a.logger.Warn("run history unavailable", "error", err)

		return nil
	}

	return store
}
