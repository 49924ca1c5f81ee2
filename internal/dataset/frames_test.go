package dataset_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/splatctl/internal/dataset"
)

func TestParseFrame(t *testing.T) {
	t.Parallel()

	camera, number, ok := dataset.ParseFrame("pano_camera11_frame_00042.png")
	require.True(t, ok)
	assert.Equal(t, "pano_camera11", camera)
	assert.Equal(t, 42, number)

	_, _, ok = dataset.ParseFrame("frame_00042.png")
	assert.False(t, ok)
}

func TestGroupFrames(t *testing.T) {
	t.Parallel()

	train := t.TempDir()
	test := t.TempDir()

	writeFile(t, filepath.Join(train, "pano_camera0_frame_00003.png"), "")
	writeFile(t, filepath.Join(train, "pano_camera0_frame_00001.png"), "")
	writeFile(t, filepath.Join(train, "pano_camera1_frame_00001.JPG"), "")
	writeFile(t, filepath.Join(train, "pano_camera1_frame_00002.txt"), "")
	writeFile(t, filepath.Join(test, "pano_camera0_frame_00002.png"), "")
	writeFile(t, filepath.Join(test, "other.png"), "")

	groups, err := dataset.GroupFrames(t.Context(), quietJobs().Logger, train, test, filepath.Join(test, "missing"))
	require.NoError(t, err)
	assert.Equal(t, []string{"pano_camera0", "pano_camera1"}, dataset.Cameras(groups))

	numbers := []int{}
	for _, frame := range groups["pano_camera0"] {
		numbers = append(numbers, frame.Number)
	}

	assert.Equal(t, []int{1, 2, 3}, numbers)
	assert.Equal(t, filepath.Join(test, "pano_camera0_frame_00002.png"), groups["pano_camera0"][1].Path)
	assert.Len(t, groups["pano_camera1"], 1)
}
