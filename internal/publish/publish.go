// Package publish uploads renderer outputs to S3-compatible object storage.
package publish

import (
	"context"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/docker/go-units"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/askiada/splatctl/internal/jobs"
)

var (
	ErrBucketRequired   = errors.New("bucket is required")
	ErrEndpointRequired = errors.New("endpoint is required")
	ErrBadPattern       = errors.New("invalid include pattern")
	ErrNothingToPublish = errors.New("no file matches the include patterns")
)

// ObjectStore is the part of *minio.Client publishing needs.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

var _ ObjectStore = (*minio.Client)(nil)

// ClientConfig locates the object storage service.
type ClientConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Secure    bool
}

// NewClient returns a minio client for cfg.
func NewClient(cfg ClientConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, ErrEndpointRequired
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating minio client")
	}

	return client, nil
}

// Options configure Publish.
type Options struct {
	Dir     string
	Bucket  string
	Region  string
	Prefix  string
	Include []string
	jobs.Options
}

// Select returns the regular files under dir matching any pattern, as sorted slash-separated
// paths relative to dir.
func Select(dir string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"**/*"}
	}

	fsys := os.DirFS(dir)
	seen := map[string]bool{}
	res := []string{}

	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Wrap(ErrBadPattern, pattern)
		}

		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Wrapf(err, "matching %s", pattern)
		}

		for _, match := range matches {
			if seen[match] {
				continue
			}

			seen[match] = true
			res = append(res, match)
		}
	}

	sort.Strings(res)

	return res, nil
}

// ObjectKey is the key a file at rel is stored under.
func ObjectKey(prefix, rel string) string {
	return path.Join(prefix, filepath.ToSlash(rel))
}

func ensureBucket(ctx context.Context, store ObjectStore, bucket, region string, logger *slog.Logger) error {
	exists, err := store.BucketExists(ctx, bucket)
	if err != nil {
		return errors.Wrapf(err, "checking bucket %s", bucket)
	}

	if exists {
		return nil
	}

	err = store.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
	if err != nil {
		return errors.Wrapf(err, "creating bucket %s", bucket)
	}

	logger.Info("bucket created", "bucket", bucket)

	return nil
}

// Publish uploads the files of opts.Dir selected by opts.Include to opts.Bucket under opts.Prefix.
// The bucket is created when it does not exist.
func Publish(ctx context.Context, store ObjectStore, opts Options) (*jobs.Report, error) {
	logger := opts.Options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Bucket == "" {
		return nil, ErrBucketRequired
	}

	files, err := Select(opts.Dir, opts.Include)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, errors.Wrap(ErrNothingToPublish, opts.Dir)
	}

	var total int64

	for _, rel := range files {
		info, err := os.Stat(filepath.Join(opts.Dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, errors.Wrap(err, "reading file info")
		}

		total += info.Size()
	}

	logger.Info("publishing", "files", len(files), "size", units.HumanSize(float64(total)), "bucket", opts.Bucket)

	err = ensureBucket(ctx, store, opts.Bucket, opts.Region, logger)
	if err != nil {
		return nil, err
	}

	tasks := make([]jobs.Task, 0, len(files))
	for _, rel := range files {
		key := ObjectKey(opts.Prefix, rel)
		local := filepath.Join(opts.Dir, filepath.FromSlash(rel))
		tasks = append(tasks, jobs.Task{Name: key, Do: func(ctx context.Context) (int64, error) {
			info, err := store.FPutObject(ctx, opts.Bucket, key, local, minio.PutObjectOptions{
				ContentType: contentType(rel),
			})
			if err != nil {
				return 0, errors.Wrapf(err, "uploading %s", key)
			}

			return info.Size, nil
		}})
	}

	report, err := jobs.Run(ctx, "publish", tasks, opts.Options)
	if err != nil {
		return nil, err
	}

	logger.Info("published", "uploaded", units.HumanSize(float64(report.Bytes)), "failed", report.Failed)

	return report, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}

	return "application/octet-stream"
}
