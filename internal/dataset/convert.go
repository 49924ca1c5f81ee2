package dataset

import (
	"context"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/splatctl/internal/jobs"
)

// ConvertOptions configure ConvertToPNG.
type ConvertOptions struct {
	Dir string
	jobs.Options
}

// ConvertToPNG replaces every .jpg and .jpeg file of Dir with a .png of the same stem.
// The original is deleted only when the png was written.
func ConvertToPNG(ctx context.Context, opts ConvertOptions) (*jobs.Report, error) {
	names, err := listFiles(opts.Dir, jpegImages)
	if err != nil {
		return nil, err
	}

	tasks := make([]jobs.Task, 0, len(names))
	for _, name := range names {
		src := filepath.Join(opts.Dir, name)
		dst := filepath.Join(opts.Dir, stem(name)+".png")
		tasks = append(tasks, jobs.Task{Name: name, Do: func(ctx context.Context) (int64, error) {
			return convertFile(ctx, src, dst)
		}})
	}

	return jobs.Run(ctx, "convert", tasks, opts.Options)
}

func convertFile(ctx context.Context, src, dst string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, errors.Wrap(err, "opening image")
	}

	img, _, err := image.Decode(in)
	in.Close()

	if err != nil {
		return 0, errors.Wrapf(err, "decoding %s", src)
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, errors.Wrap(err, "creating png")
	}

	err = png.Encode(out, img)
	if err != nil {
		out.Close()
		os.Remove(dst)

		return 0, errors.Wrapf(err, "encoding %s", dst)
	}

	err = out.Close()
	if err != nil {
		return 0, errors.Wrapf(err, "closing %s", dst)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return 0, errors.Wrap(err, "reading png info")
	}

	err = os.Remove(src)
	if err != nil {
		return info.Size(), errors.Wrap(err, "removing original")
	}

	return info.Size(), nil
}
