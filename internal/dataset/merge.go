package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/splatctl/internal/jobs"
)

// DefaultCameras is the number of pano_camera folders of a panorama rig.
const DefaultCameras = 12

// MergeOptions configure MergePano.
type MergeOptions struct {
	Source  string
	Target  string
	Cameras int
	// Keep leaves the pano_camera folders in place after merging.
	Keep bool
	jobs.Options
}

// CameraDir is the folder name of camera i.
func CameraDir(i int) string {
	return fmt.Sprintf("pano_camera%d", i)
}

// MergePano flattens Source/pano_camera{i}/<name> into Target/pano_camera{i}_<name>.
// Missing camera folders are skipped. The merged folders are removed once every copy succeeded.
func MergePano(ctx context.Context, opts MergeOptions) (*jobs.Report, error) {
	logger := opts.Options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cameras := opts.Cameras
	if cameras == 0 {
		cameras = DefaultCameras
	}

	err := os.MkdirAll(opts.Target, 0o755)
	if err != nil {
		return nil, errors.Wrap(err, "creating target directory")
	}

	tasks := []jobs.Task{}
	processed := []string{}

	for i := range cameras {
		dir := filepath.Join(opts.Source, CameraDir(i))
		if !isDir(dir) {
			logger.Warn("camera folder not found", "dir", dir)

			continue
		}

		names, err := listFiles(dir, nil)
		if err != nil {
			return nil, err
		}

		for _, name := range names {
			src := filepath.Join(dir, name)
			dst := filepath.Join(opts.Target, CameraDir(i)+"_"+name)
			tasks = append(tasks, jobs.Task{Name: src, Do: func(ctx context.Context) (int64, error) {
				return copyFile(ctx, src, dst)
			}})
		}

		processed = append(processed, dir)
	}

	report, err := jobs.Run(ctx, "merge-pano", tasks, opts.Options)
	if err != nil {
		return nil, err
	}

	if opts.Keep || report.Failed > 0 {
		return report, nil
	}

	for _, dir := range processed {
		err := os.RemoveAll(dir)
		if err != nil {
			logger.Warn("unable to remove camera folder", "dir", dir, "error", err)

			continue
		}

		logger.Debug("removed camera folder", "dir", dir)
	}

	return report, nil
}
