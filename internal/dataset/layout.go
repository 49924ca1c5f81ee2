package dataset

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/splatctl/internal/jobs"
)

// Layout holds the well-known paths of a processed dataset root.
type Layout struct {
	Root       string
	Images     string
	Masks      string
	Depths     string
	ImagesTxt  string
	CamerasTxt string
}

// NewLayout returns the layout of root.
func NewLayout(root string) Layout {
	sparse := filepath.Join(root, "sparse", "0")

	return Layout{
		Root:       root,
		Images:     filepath.Join(root, "images"),
		Masks:      filepath.Join(root, "masks"),
		Depths:     filepath.Join(root, "depths"),
		ImagesTxt:  filepath.Join(sparse, "images.txt"),
		CamerasTxt: filepath.Join(sparse, "cameras.txt"),
	}
}

// PrepareLayout recreates root/masks, makes sure root/depths exists and rewrites
// root/sparse/0/images.txt.
func PrepareLayout(root string) error {
	layout := NewLayout(root)

	err := os.RemoveAll(layout.Masks)
	if err != nil {
		return errors.Wrap(err, "removing old masks")
	}

	err = os.MkdirAll(layout.Masks, 0o755)
	if err != nil {
		return errors.Wrap(err, "creating masks")
	}

	err = os.MkdirAll(layout.Depths, 0o755)
	if err != nil {
		return errors.Wrap(err, "creating depths")
	}

	return RewriteImagesTxt(layout.ImagesTxt)
}

// PrepareOptions configure Prepare. The boolean steps are off by default.
type PrepareOptions struct {
	Root            string
	ConvertPNG      bool
	KeepFirstCamera bool
	MergePano       bool
	Cameras         int
	jobs.Options
}

// Prepare runs the selected steps on a COLMAP dataset root in this order: png conversion,
// camera trimming, panorama merge, then PrepareLayout. It returns the reports of the file jobs.
func Prepare(ctx context.Context, opts PrepareOptions) ([]*jobs.Report, error) {
	logger := opts.Options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	layout := NewLayout(opts.Root)
	if !isDir(layout.Root) {
		return nil, errors.Wrap(ErrSourceNotDir, layout.Root)
	}

	reports := []*jobs.Report{}

	if opts.ConvertPNG {
		report, err := ConvertToPNG(ctx, ConvertOptions{Dir: layout.Images, Options: opts.Options.ForJob("convert")})
		if err != nil {
			return reports, errors.Wrap(err, "converting images")
		}

		reports = append(reports, report)
	}

	if opts.KeepFirstCamera {
		err := KeepFirstCamera(layout.CamerasTxt)
		if err != nil {
			return reports, err
		}

		logger.Info("cameras.txt trimmed to the first camera", "path", layout.CamerasTxt)
	}

	if opts.MergePano {
		report, err := MergePano(ctx, MergeOptions{
			Source:  layout.Images,
			Target:  layout.Images,
			Cameras: opts.Cameras,
			Options: opts.Options.ForJob("merge-pano"),
		})
		if err != nil {
			return reports, errors.Wrap(err, "merging panorama folders")
		}

		reports = append(reports, report)
	}

	err := PrepareLayout(layout.Root)
	if err != nil {
		return reports, err
	}

	logger.Info("dataset layout ready", "root", layout.Root)

	return reports, nil
}
