package dataset

import (
	"bufio"
	"bytes"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedCameras is returned when cameras.txt is shorter than its header plus one camera.
var ErrMalformedCameras = errors.New("cameras.txt needs 3 header lines and at least one camera")

var panoID = regexp.MustCompile(`\s(\d+)\s+pano`)

// FixImagesText rewrites the content of a COLMAP images.txt produced from merged panorama folders:
// image extensions become .png, camera ids before a pano name become 1 and path separators become
// underscores, so pano_camera3/frame_0001.jpg reads pano_camera3_frame_0001.png.
func FixImagesText(content string) string {
	content = strings.ReplaceAll(content, ".jpg", ".png")
	content = strings.ReplaceAll(content, ".JPG", ".png")
	content = panoID.ReplaceAllString(content, " 1 pano")

	return strings.ReplaceAll(content, "/", "_")
}

// RewriteImagesTxt applies FixImagesText to the file at path in place.
func RewriteImagesTxt(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "reading images.txt")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading images.txt")
	}

	err = os.WriteFile(path, []byte(FixImagesText(string(data))), info.Mode().Perm())
	if err != nil {
		return errors.Wrap(err, "writing images.txt")
	}

	return nil
}

// KeepFirstCamera trims a COLMAP cameras.txt down to its first camera.
func KeepFirstCamera(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "reading cameras.txt")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading cameras.txt")
	}

	lines := []string{}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() && len(lines) < 4 {
		lines = append(lines, scanner.Text())
	}

	err = scanner.Err()
	if err != nil {
		return errors.Wrap(err, "scanning cameras.txt")
	}

	if len(lines) < 4 {
		return errors.Wrapf(ErrMalformedCameras, "%s has %d lines", path, len(lines))
	}

	lines[2] = "# Number of cameras: 1"

	err = os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), info.Mode().Perm())
	if err != nil {
		return errors.Wrap(err, "writing cameras.txt")
	}

	return nil
}
