package dataset

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

var (
	// sampleImages matches the images Sample picks from, on lower-cased names.
	sampleImages = glob.MustCompile("*.{jpg,jpeg,png,bmp,webp,tiff,gif}")
	// frameImages matches rendered frames GroupFrames picks from, on lower-cased names.
	frameImages = glob.MustCompile("*.{png,jpg,jpeg,bmp,tif,tiff}")
	jpegImages  = glob.MustCompile("*.{jpg,jpeg}")
)

func matchName(g glob.Glob, name string) bool {
	return g.Match(strings.ToLower(name))
}

// listFiles returns the sorted names of the regular files in dir accepted by g.
func listFiles(dir string, g glob.Glob) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", dir)
	}

	names := []string{}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		if g != nil && !matchName(g, entry.Name()) {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	return names, nil
}

// copyFile copies src to dst, keeping the permission bits and modification time.
func copyFile(ctx context.Context, src, dst string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, errors.Wrap(err, "opening source")
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "reading source info")
	}

	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(info, dstInfo) {
		return 0, errors.Wrap(ErrSameFile, dst)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, errors.Wrap(err, "creating destination")
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()

		return n, errors.Wrapf(err, "copying to %s", dst)
	}

	err = out.Close()
	if err != nil {
		return n, errors.Wrapf(err, "closing %s", dst)
	}

	err = os.Chmod(dst, info.Mode().Perm())
	if err != nil {
		return n, errors.Wrap(err, "setting permissions")
	}

	err = os.Chtimes(dst, info.ModTime(), info.ModTime())
	if err != nil {
		return n, errors.Wrap(err, "setting modification time")
	}

	return n, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
