// Package publish uploads finished clips to an S3-compatible object store.
//
// Like the download pipeline, an object that already exists is treated as
// done and is not uploaded again.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/audioset/internal/layout"
)

// DefaultWorkers is the number of concurrent uploads.
const DefaultWorkers = 4

const contentType = "audio/wav"

// NoSuchKeyCode is the S3 error code for a missing object.
const NoSuchKeyCode = "NoSuchKey"

// Failure records one file that could not be uploaded.
type Failure struct {
	Path string
	Err  error
}

// Summary describes an upload batch.
type Summary struct {
	Uploaded int
	Skipped  int
	Bytes    int64
	Failures []Failure
}

// Uploader copies local files into a bucket under a prefix.
type Uploader struct {
	store   ObjectStore
	bucket  string
	prefix  string
	workers int
	out     io.Writer
	mu      sync.Mutex // guards out
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithPrefix sets the object name prefix.
func WithPrefix(prefix string) Option {
	return func(u *Uploader) { u.prefix = prefix }
}

// WithWorkers sets the number of concurrent uploads.
func WithWorkers(n int) Option {
	return func(u *Uploader) { u.workers = n }
}

// WithOutput sets the writer for progress messages.
func WithOutput(w io.Writer) Option {
	return func(u *Uploader) { u.out = w }
}

// NewUploader creates an Uploader for bucket.
func NewUploader(store ObjectStore, bucket string, opts ...Option) (*Uploader, error) {
	if store == nil {
		return nil, fmt.Errorf("object store cannot be nil")
	}
	if bucket == "" {
		return nil, ErrNoBucket
	}
	u := &Uploader{
		store:   store,
		bucket:  bucket,
		workers: DefaultWorkers,
		out:     io.Discard,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.workers < 1 {
		u.workers = 1
	}
	return u, nil
}

// ObjectName returns the object name for a local file.
func (u *Uploader) ObjectName(file string) string {
	return path.Join(u.prefix, filepath.Base(file))
}

// EnsureBucket creates the bucket if it does not exist.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.store.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("%w: checking bucket %s: %v", ErrUnreachable, u.bucket, err)
	}
	if exists {
		return nil
	}
	u.printf("Creating bucket %s...\n", u.bucket)
	if err := u.store.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", u.bucket, err)
	}
	return nil
}

// PublishDataset uploads every clip of the dataset's segmented directory.
func (u *Uploader) PublishDataset(ctx context.Context, ds layout.Dataset) (Summary, error) {
	files, err := ds.Clips()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list clips: %w", err)
	}

	if err := u.EnsureBucket(ctx); err != nil {
		return Summary{}, err
	}
	return u.Upload(ctx, files)
}

// Upload sends files concurrently. Per-file failures are collected in the
// summary and never stop the other uploads; the returned error wraps
// ErrUploadFailed when any occurred, or is the context error on cancellation.
func (u *Uploader) Upload(ctx context.Context, files []string) (Summary, error) {
	var (
		mu  sync.Mutex
		sum Summary
	)

	var g errgroup.Group
	g.SetLimit(u.workers)
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			uploaded, size, err := u.uploadOne(ctx, file)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				sum.Failures = append(sum.Failures, Failure{Path: file, Err: err})
			case uploaded:
				sum.Uploaded++
				sum.Bytes += size
			default:
				sum.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(sum.Failures, func(i, j int) bool { return sum.Failures[i].Path < sum.Failures[j].Path })

	if err := ctx.Err(); err != nil {
		return sum, err
	}
	if len(sum.Failures) > 0 {
		return sum, fmt.Errorf("%w: %d of %d", ErrUploadFailed, len(sum.Failures), len(files))
	}
	return sum, nil
}

// uploadOne uploads file unless its object exists.
func (u *Uploader) uploadOne(ctx context.Context, file string) (bool, int64, error) {
	name := u.ObjectName(file)

	exists, err := u.objectExists(ctx, name)
	if err != nil {
		return false, 0, err
	}
	if exists {
		u.printf("Object %s already exists.\n", name)
		return false, 0, nil
	}

	info, err := u.store.FPutObject(ctx, u.bucket, name, file, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	u.printf("Uploaded %s (%s)\n", name, humanize.IBytes(uint64(max(info.Size, 0))))
	return true, info.Size, nil
}

func (u *Uploader) objectExists(ctx context.Context, name string) (bool, error) {
	_, err := u.store.StatObject(ctx, u.bucket, name, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == NoSuchKeyCode {
		return false, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, err
	}
	return false, fmt.Errorf("failed to stat %s: %w", name, err)
}

func (u *Uploader) printf(format string, args ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, _ = fmt.Fprintf(u.out, format, args...)
}
