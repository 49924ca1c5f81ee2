package launcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Activation selects how the conda environment is entered before the script runs.
type Activation string

const (
	// ActivationShell sources the conda profile and runs `conda activate` in a shell.
	ActivationShell Activation = "shell"
	// ActivationCondaRun uses `conda run -n <env>`.
	ActivationCondaRun Activation = "conda-run"
	// ActivationNone runs the interpreter found on PATH.
	ActivationNone Activation = "none"
)

const (
	DefaultScript    = "render.py"
	DefaultCondaEnv  = "gaussian_splatting"
	DefaultBatchSize = 128
)

var (
	ErrInvalidBatchSize     = errors.New("batch size must be greater than 0")
	ErrUnknownActivation    = errors.New("unknown activation mode")
	ErrCondaProfileRequired = errors.New("conda profile is required for shell activation")
	ErrCondaEnvRequired     = errors.New("conda environment name is required")
)

// Environment describes the interpreter the renderer runs under.
type Environment struct {
	Activation   Activation
	CondaProfile string
	CondaEnv     string
	CondaBin     string
	Python       string
	Shell        string
}

// DefaultEnvironment activates gaussian_splatting through the profile shipped with a
// miniconda install in the home directory.
func DefaultEnvironment() Environment {
	return Environment{
		Activation:   ActivationShell,
		CondaProfile: "~/miniconda3/etc/profile.d/conda.sh",
		CondaEnv:     DefaultCondaEnv,
		CondaBin:     "conda",
		Python:       "python",
		Shell:        "bash",
	}
}

// Job is a single renderer invocation.
type Job struct {
	Script     string
	WorkDir    string
	SourcePath string
	ModelPath  string
	BatchSize  int
	ExtraArgs  []string
	Env        []string
}

// Command is a fully resolved process invocation.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// String renders the command as a shell line.
func (c Command) String() string {
	return Join(append([]string{c.Path}, c.Args...))
}

// Args returns the renderer arguments: -s, --model_path and --bsz followed by the extra arguments.
// Empty paths drop their flag. --bsz is always present.
func Args(job Job) []string {
	batchSize := job.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}

	args := make([]string, 0, 6+len(job.ExtraArgs))
	if job.SourcePath != "" {
		args = append(args, "-s", job.SourcePath)
	}

	if job.ModelPath != "" {
		args = append(args, "--model_path", job.ModelPath)
	}

	args = append(args, "--bsz", strconv.Itoa(batchSize))

	return append(args, job.ExtraArgs...)
}

// Build resolves job into the command to execute under env.
func Build(env Environment, job Job) (Command, error) {
	if job.BatchSize < 0 {
		return Command{}, errors.Wrapf(ErrInvalidBatchSize, "got %d", job.BatchSize)
	}

	script := job.Script
	if script == "" {
		script = DefaultScript
	}

	python := valueOr(env.Python, "python")
	program := append([]string{python, script}, Args(job)...)

	cmd := Command{Dir: job.WorkDir, Env: job.Env}

	switch env.Activation {
	case ActivationShell, "":
		if env.CondaProfile == "" {
			return Command{}, ErrCondaProfileRequired
		}

		if env.CondaEnv == "" {
			return Command{}, ErrCondaEnvRequired
		}

		line := "source " + quoteProfile(env.CondaProfile) +
			" && conda activate " + Quote(env.CondaEnv) +
			" && exec " + Join(program)
		cmd.Path = valueOr(env.Shell, "bash")
		cmd.Args = []string{"-c", line}
	case ActivationCondaRun:
		if env.CondaEnv == "" {
			return Command{}, ErrCondaEnvRequired
		}

		cmd.Path = valueOr(env.CondaBin, "conda")
		cmd.Args = append([]string{"run", "--no-capture-output", "-n", env.CondaEnv}, program...)
	case ActivationNone:
		cmd.Path = program[0]
		cmd.Args = program[1:]
	default:
		return Command{}, errors.Wrapf(ErrUnknownActivation, "%q", env.Activation)
	}

	return cmd, nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

var safeWord = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// Quote returns word in a form a POSIX shell reads back unchanged.
func Quote(word string) string {
	if word == "" {
		return "''"
	}

	if safeWord.MatchString(word) {
		return word
	}

	return "'" + strings.ReplaceAll(word, "'", `'\''`) + "'"
}

// quoteProfile keeps a leading ~/ outside the quotes so the shell expands the home directory.
func quoteProfile(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return Quote(path)
	}

	if rest == "" {
		return "~/"
	}

	return "~/" + Quote(rest)
}

// Join quotes every word and joins them with spaces.
func Join(words []string) string {
	quoted := make([]string, len(words))
	for i, word := range words {
		quoted[i] = Quote(word)
	}

	return strings.Join(quoted, " ")
}
