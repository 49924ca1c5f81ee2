package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/splatctl/internal/jobs"
	"github.com/askiada/splatctl/pkg/launcher"
)

// DefaultFPS is the frame rate of the generated videos.
const DefaultFPS = 10

// ErrNoFrames is returned when no pano_camera frame was found.
var ErrNoFrames = errors.New("no pano_camera{i}_frame_{n} images found")

// VideoOptions configure Videos.
type VideoOptions struct {
	Dirs   []string
	Out    string
	FPS    int
	FFmpeg string
	Runner launcher.Runner
	jobs.Options
}

// Videos encodes one <camera>.mp4 per camera from the frames found in Dirs.
func Videos(ctx context.Context, opts VideoOptions) (*jobs.Report, error) {
	if opts.Runner == nil {
		return nil, errors.New("a runner is required")
	}

	fps := opts.FPS
	if fps < 1 {
		fps = DefaultFPS
	}

	ffmpeg := opts.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}

	groups, err := GroupFrames(ctx, opts.Options.Logger, opts.Dirs...)
	if err != nil {
		return nil, err
	}

	cameras := Cameras(groups)
	if len(cameras) == 0 {
		return nil, ErrNoFrames
	}

	err = os.MkdirAll(opts.Out, 0o755)
	if err != nil {
		return nil, errors.Wrap(err, "creating output directory")
	}

	tasks := make([]jobs.Task, 0, len(cameras))
	for _, camera := range cameras {
		frames := groups[camera]
		tasks = append(tasks, jobs.Task{Name: camera, Do: func(ctx context.Context) (int64, error) {
			return encodeVideo(ctx, opts.Runner, ffmpeg, opts.Out, camera, frames, fps)
		}})
	}

	return jobs.Run(ctx, "video", tasks, opts.Options)
}

// ConcatList renders an ffmpeg concat demuxer script showing each frame for 1/fps seconds.
func ConcatList(frames []Frame, fps int) string {
	var b strings.Builder

	b.WriteString("ffconcat version 1.0\n")

	duration := strconv.FormatFloat(1/float64(fps), 'f', -1, 64)
	for _, frame := range frames {
		fmt.Fprintf(&b, "file %s\nduration %s\n", concatQuote(frame.Path), duration)
	}

	// The demuxer ignores the duration of the last entry unless the file is repeated.
	if len(frames) > 0 {
		fmt.Fprintf(&b, "file %s\n", concatQuote(frames[len(frames)-1].Path))
	}

	return b.String()
}

func concatQuote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// VideoCommand is the ffmpeg invocation encoding list into out.
func VideoCommand(ffmpeg, list, out string, fps int) launcher.Command {
	return launcher.Command{
		Path: ffmpeg,
		Args: []string{
			"-y", "-loglevel", "error",
			"-f", "concat", "-safe", "0", "-i", list,
			"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
			"-r", strconv.Itoa(fps),
			"-c:v", "libx264", "-pix_fmt", "yuv420p",
			out,
		},
	}
}

func encodeVideo(
	ctx context.Context, runner launcher.Runner, ffmpeg, outDir, camera string, frames []Frame, fps int,
) (int64, error) {
	absFrames := make([]Frame, len(frames))
	for i, frame := range frames {
		abs, err := filepath.Abs(frame.Path)
		if err != nil {
			return 0, errors.Wrap(err, "resolving frame path")
		}

		absFrames[i] = frame
		absFrames[i].Path = abs
	}

	list := filepath.Join(outDir, camera+".ffconcat")

	err := os.WriteFile(list, []byte(ConcatList(absFrames, fps)), 0o644)
	if err != nil {
		return 0, errors.Wrap(err, "writing concat list")
	}
	defer os.Remove(list)

	out := filepath.Join(outDir, camera+".mp4")

	err = runner.Run(ctx, VideoCommand(ffmpeg, list, out, fps))
	if err != nil {
		return 0, errors.Wrapf(err, "encoding %s", camera)
	}

	if info, err := os.Stat(out); err == nil {
		return info.Size(), nil
	}

	return 0, nil
}
