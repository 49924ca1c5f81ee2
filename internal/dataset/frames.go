package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/askiada/splatctl/pkg/pipeline"
	"github.com/askiada/splatctl/pkg/pipeline/model"
)

var frameName = regexp.MustCompile(`(pano_camera\d+)_frame_(\d+)`)

// Frame is a rendered image of one camera.
type Frame struct {
	Camera string
	Number int
	Path   string
}

// ParseFrame extracts the camera id and frame number from a file name such as
// pano_camera0_frame_00001.png.
func ParseFrame(name string) (string, int, bool) {
	match := frameName.FindStringSubmatch(name)
	if match == nil {
		return "", 0, false
	}

	number, err := strconv.Atoi(match[2])
	if err != nil {
		return "", 0, false
	}

	return match[1], number, true
}

// GroupFrames collects the frames found in dirs per camera, each camera sorted by frame number.
// Every directory is scanned by its own root step and the scans are merged before parsing.
// Missing directories are skipped with a warning.
func GroupFrames(ctx context.Context, logger *slog.Logger, dirs ...string) (map[string][]Frame, error) {
	if logger == nil {
		logger = slog.Default()
	}

	groups := map[string][]Frame{}

	pipe, err := pipeline.New(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create pipeline")
	}

	scans := []*model.Step[string]{}

	for i, dir := range dirs {
		if !isDir(dir) {
			logger.Warn("frame directory not found", "dir", dir)

			continue
		}

		scan, err := pipeline.AddRootStep(pipe, fmt.Sprintf("scan-%d", i), func(ctx context.Context, rootChan chan<- string) error {
			names, err := listFiles(dir, frameImages)
			if err != nil {
				return err
			}

			for _, name := range names {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case rootChan <- filepath.Join(dir, name):
				}
			}

			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "unable to add scan step for %s", dir)
		}

		scans = append(scans, scan)
	}

	if len(scans) == 0 {
		return groups, nil
	}

	merged, err := pipeline.AddMerger(pipe, "merge", scans...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to add merge step")
	}

	frames, err := pipeline.AddStepOneToOneOrZero(pipe, "parse", merged, func(_ context.Context, path string) (Frame, error) {
		camera, number, ok := ParseFrame(filepath.Base(path))
		if !ok {
			return Frame{}, nil
		}

		return Frame{Camera: camera, Number: number, Path: path}, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add parse step")
	}

	err = pipeline.AddSink(pipe, "group", frames, func(_ context.Context, frame Frame) error {
		groups[frame.Camera] = append(groups[frame.Camera], frame)

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add group sink")
	}

	err = pipe.Run()
	if err != nil {
		return nil, errors.Wrap(err, "scanning frames")
	}

	for _, frames := range groups {
		sort.Slice(frames, func(i, j int) bool {
			if frames[i].Number != frames[j].Number {
				return frames[i].Number < frames[j].Number
			}

			return frames[i].Path < frames[j].Path
		})
	}

	return groups, nil
}

// Cameras returns the camera ids of groups in sorted order.
func Cameras(groups map[string][]Frame) []string {
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}
