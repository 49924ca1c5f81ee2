package publish_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/splatctl/internal/jobs"
	"github.com/askiada/splatctl/internal/publish"
)

type fakeStore struct {
	mu      sync.Mutex
	exists  bool
	made    []string
	objects map[string]string
	putErr  error
}

func (f *fakeStore) BucketExists(context.Context, string) (bool, error) {
	return f.exists, nil
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)

	return nil
}

func (f *fakeStore) FPutObject(_ context.Context, _, object, filePath string, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}

	if f.objects == nil {
		f.objects = map[string]string{}
	}

	f.objects[object] = filePath

	info, err := os.Stat(filePath)
	if err != nil {
		return minio.UploadInfo{}, err
	}

	return minio.UploadInfo{Key: object, Size: info.Size()}, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func modelDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cfg_args"), "args")
	writeFile(t, filepath.Join(dir, "point_cloud", "iteration_7000", "point_cloud.ply"), "ply7000")
	writeFile(t, filepath.Join(dir, "point_cloud", "iteration_30000", "point_cloud.ply"), "ply30000")
	writeFile(t, filepath.Join(dir, "test", "renders", "00000.png"), "png")

	return dir
}

func quiet() jobs.Options {
	return jobs.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	dir := modelDir(t)

	tcs := map[string]struct {
		patterns []string
		expected []string
	}{
		"default": {
			expected: []string{
				"cfg_args",
				"point_cloud/iteration_30000/point_cloud.ply",
				"point_cloud/iteration_7000/point_cloud.ply",
				"test/renders/00000.png",
			},
		},
		"ply only": {
			patterns: []string{"**/*.ply"},
			expected: []string{
				"point_cloud/iteration_30000/point_cloud.ply",
				"point_cloud/iteration_7000/point_cloud.ply",
			},
		},
		"deduplicated": {
			patterns: []string{"cfg_args", "*"},
			expected: []string{"cfg_args"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := publish.Select(dir, tc.patterns)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestSelectBadPattern(t *testing.T) {
	t.Parallel()

	_, err := publish.Select(t.TempDir(), []string{"[unclosed"})
	require.ErrorIs(t, err, publish.ErrBadPattern)
}

func TestObjectKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "runs/720/cfg_args", publish.ObjectKey("runs/720", "cfg_args"))
	assert.Equal(t, "cfg_args", publish.ObjectKey("", "cfg_args"))
}

func TestPublish(t *testing.T) {
	t.Parallel()

	dir := modelDir(t)
	store := &fakeStore{}

	report, err := publish.Publish(t.Context(), store, publish.Options{
		Dir:     dir,
		Bucket:  "splats",
		Prefix:  "720",
		Include: []string{"point_cloud/**/*.ply"},
		Options: quiet(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"splats"}, store.made)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, int64(len("ply7000")+len("ply30000")), report.Bytes)

	keys := []string{}
	for key := range store.objects {
		keys = append(keys, key)
	}

	sort.Strings(keys)
	assert.Equal(t, []string{
		"720/point_cloud/iteration_30000/point_cloud.ply",
		"720/point_cloud/iteration_7000/point_cloud.ply",
	}, keys)
}

func TestPublishErrors(t *testing.T) {
	t.Parallel()

	_, err := publish.Publish(t.Context(), &fakeStore{}, publish.Options{Dir: t.TempDir(), Options: quiet()})
	require.ErrorIs(t, err, publish.ErrBucketRequired)

	_, err = publish.Publish(t.Context(), &fakeStore{}, publish.Options{Dir: t.TempDir(), Bucket: "b", Options: quiet()})
	require.ErrorIs(t, err, publish.ErrNothingToPublish)

	store := &fakeStore{exists: true, putErr: errors.New("denied")}

	report, err := publish.Publish(t.Context(), store, publish.Options{Dir: modelDir(t), Bucket: "b", Options: quiet()})
	require.NoError(t, err)
	assert.Empty(t, store.made)
	assert.Equal(t, 4, report.Failed)
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	_, err := publish.NewClient(publish.ClientConfig{})
	require.ErrorIs(t, err, publish.ErrEndpointRequired)

	client, err := publish.NewClient(publish.ClientConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", client.EndpointURL().Host)
}
