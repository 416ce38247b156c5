package publish_test

// Notes:
// - mockStore implements ObjectStore in memory; no network is used.
// - Local clips are real files under t.TempDir() so FPutObject sizes are real.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"

	"github.com/alnah/audioset/internal/layout"
	"github.com/alnah/audioset/internal/publish"
)

// ---------------------------------------------------------------------------
// mockStore
// ---------------------------------------------------------------------------

type mockStore struct {
	mu        sync.Mutex
	buckets   map[string]bool
	objects   map[string]int64
	madeCount int
	puts      []string

	existsErr error
	statErr   error            // Returned for every StatObject when set.
	putErr    map[string]error // Keyed by object name.
}

func newMockStore() *mockStore {
	return &mockStore{buckets: map[string]bool{}, objects: map[string]int64{}, putErr: map[string]error{}}
}

func (m *mockStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.buckets[bucket], nil
}

func (m *mockStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.madeCount++
	m.buckets[bucket] = true
	return nil
}

func (m *mockStore) StatObject(_ context.Context, bucket, object string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statErr != nil {
		return minio.ObjectInfo{}, m.statErr
	}
	size, ok := m.objects[bucket+"/"+object]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: publish.NoSuchKeyCode, Key: object}
	}
	return minio.ObjectInfo{Key: object, Size: size}, nil
}

func (m *mockStore) FPutObject(_ context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.putErr[object]; err != nil {
		return minio.UploadInfo{}, err
	}
	if opts.ContentType != "audio/wav" {
		return minio.UploadInfo{}, errors.New("unexpected content type " + opts.ContentType)
	}
	fi, err := os.Stat(filePath)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	m.objects[bucket+"/"+object] = fi.Size()
	m.puts = append(m.puts, object)
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: fi.Size()}, nil
}

func (m *mockStore) Puts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.puts)
	slices.Sort(out)
	return out
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func newClipDataset(t *testing.T, keys ...string) layout.Dataset {
	t.Helper()
	ds := layout.Dataset{Name: "train", Root: t.TempDir()}
	if err := ds.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	for _, k := range keys {
		p := filepath.Join(ds.SegmentedDir(), k+layout.AudioExt)
		if err := os.WriteFile(p, make([]byte, 2048), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return ds
}

func newTestUploader(t *testing.T, store publish.ObjectStore, opts ...publish.Option) *publish.Uploader {
	t.Helper()
	u, err := publish.NewUploader(store, "clips", opts...)
	if err != nil {
		t.Fatalf("NewUploader() unexpected error: %v", err)
	}
	return u
}

// ---------------------------------------------------------------------------
// NewUploader
// ---------------------------------------------------------------------------

func TestNewUploader_Validation(t *testing.T) {
	t.Parallel()

	if _, err := publish.NewUploader(nil, "clips"); err == nil {
		t.Error("NewUploader(nil store) expected error, got nil")
	}
	if _, err := publish.NewUploader(newMockStore(), ""); !errors.Is(err, publish.ErrNoBucket) {
		t.Errorf("NewUploader(empty bucket) error = %v, want ErrNoBucket", err)
	}
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, file, want string
	}{
		{"", "/data/train_segmented/abc_0.wav", "abc_0.wav"},
		{"audioset/train", "/data/train_segmented/abc_0.wav", "audioset/train/abc_0.wav"},
		{"audioset/", "abc_0.wav", "audioset/abc_0.wav"},
	}
	for _, tt := range tests {
		u := newTestUploader(t, newMockStore(), publish.WithPrefix(tt.prefix))
		if got := u.ObjectName(tt.file); got != tt.want {
			t.Errorf("ObjectName(%q) with prefix %q = %q, want %q", tt.file, tt.prefix, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// EnsureBucket
// ---------------------------------------------------------------------------

func TestEnsureBucket(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	u := newTestUploader(t, store)

	for range 2 {
		if err := u.EnsureBucket(context.Background()); err != nil {
			t.Fatalf("EnsureBucket() unexpected error: %v", err)
		}
	}
	if store.madeCount != 1 {
		t.Errorf("MakeBucket called %d times, want 1", store.madeCount)
	}
}

func TestEnsureBucket_Unreachable(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.existsErr = errors.New("connection refused")
	u := newTestUploader(t, store)

	err := u.EnsureBucket(context.Background())
	if !errors.Is(err, publish.ErrUnreachable) {
		t.Errorf("EnsureBucket() error = %v, want ErrUnreachable", err)
	}
}

// ---------------------------------------------------------------------------
// PublishDataset / Upload
// ---------------------------------------------------------------------------

func TestPublishDataset_UploadsAndSkipsExisting(t *testing.T) {
	t.Parallel()

	ds := newClipDataset(t, "a_0", "b_0", "c_0")
	store := newMockStore()
	store.objects["clips/train/b_0.wav"] = 2048
	var out strings.Builder
	u := newTestUploader(t, store, publish.WithPrefix("train"), publish.WithWorkers(2), publish.WithOutput(&out))

	sum, err := u.PublishDataset(context.Background(), ds)
	if err != nil {
		t.Fatalf("PublishDataset() unexpected error: %v", err)
	}
	if sum.Uploaded != 2 || sum.Skipped != 1 {
		t.Errorf("Uploaded = %d, Skipped = %d, want 2 and 1", sum.Uploaded, sum.Skipped)
	}
	if sum.Bytes != 4096 {
		t.Errorf("Bytes = %d, want 4096", sum.Bytes)
	}
	if got := store.Puts(); !slices.Equal(got, []string{"train/a_0.wav", "train/c_0.wav"}) {
		t.Errorf("puts = %v", got)
	}
	if !store.buckets["clips"] {
		t.Error("bucket not created")
	}
	if !strings.Contains(out.String(), "Uploaded train/a_0.wav (2.0 KiB)") {
		t.Errorf("output = %q, want humanized size", out.String())
	}

	// Second run uploads nothing.
	sum, err = u.PublishDataset(context.Background(), ds)
	if err != nil {
		t.Fatalf("second PublishDataset() unexpected error: %v", err)
	}
	if sum.Uploaded != 0 || sum.Skipped != 3 {
		t.Errorf("second run Uploaded = %d, Skipped = %d, want 0 and 3", sum.Uploaded, sum.Skipped)
	}
}

func TestPublishDataset_SkipsTempOutputs(t *testing.T) {
	t.Parallel()

	ds := newClipDataset(t, "a_0")
	tmp := filepath.Join(ds.SegmentedDir(), ".a_1000.31415.wav")
	if err := os.WriteFile(tmp, []byte("partial"), 0644); err != nil {
		t.Fatal(err)
	}
	store := newMockStore()
	u := newTestUploader(t, store, publish.WithPrefix("train"))

	sum, err := u.PublishDataset(context.Background(), ds)
	if err != nil {
		t.Fatalf("PublishDataset() unexpected error: %v", err)
	}
	if sum.Uploaded != 1 {
		t.Errorf("Uploaded = %d, want 1", sum.Uploaded)
	}
	if got := store.Puts(); !slices.Equal(got, []string{"train/a_0.wav"}) {
		t.Errorf("puts = %v, want only the finished clip", got)
	}
}

func TestUpload_FailuresDoNotStopSiblings(t *testing.T) {
	t.Parallel()

	ds := newClipDataset(t, "a_0", "b_0", "c_0")
	store := newMockStore()
	store.putErr["b_0.wav"] = errors.New("quota exceeded")
	u := newTestUploader(t, store)

	files, _ := filepath.Glob(filepath.Join(ds.SegmentedDir(), "*.wav"))
	sum, err := u.Upload(context.Background(), files)

	if !errors.Is(err, publish.ErrUploadFailed) {
		t.Fatalf("Upload() error = %v, want ErrUploadFailed", err)
	}
	if sum.Uploaded != 2 || len(sum.Failures) != 1 {
		t.Fatalf("Uploaded = %d, Failures = %v", sum.Uploaded, sum.Failures)
	}
	if filepath.Base(sum.Failures[0].Path) != "b_0.wav" {
		t.Errorf("failure path = %s", sum.Failures[0].Path)
	}
}

func TestUpload_StatErrorIsFailure(t *testing.T) {
	t.Parallel()

	ds := newClipDataset(t, "a_0")
	store := newMockStore()
	store.statErr = minio.ErrorResponse{Code: "AccessDenied"}
	u := newTestUploader(t, store)

	sum, err := u.Upload(context.Background(), []string{filepath.Join(ds.SegmentedDir(), "a_0.wav")})

	if !errors.Is(err, publish.ErrUploadFailed) {
		t.Fatalf("Upload() error = %v, want ErrUploadFailed", err)
	}
	if len(store.Puts()) != 0 || len(sum.Failures) != 1 {
		t.Errorf("puts = %v, failures = %v", store.Puts(), sum.Failures)
	}
}

func TestUpload_CanceledContext(t *testing.T) {
	t.Parallel()

	ds := newClipDataset(t, "a_0", "b_0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	u := newTestUploader(t, newMockStore())

	files, _ := filepath.Glob(filepath.Join(ds.SegmentedDir(), "*.wav"))
	if _, err := u.Upload(ctx, files); !errors.Is(err, context.Canceled) {
		t.Errorf("Upload() error = %v, want context.Canceled", err)
	}
}

// ---------------------------------------------------------------------------
// Connection
// ---------------------------------------------------------------------------

func TestConnectionFromEnv(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     map[string]string
		want    publish.Connection
		wantErr error
	}{
		{
			name:    "missing endpoint",
			env:     map[string]string{},
			wantErr: publish.ErrNoEndpoint,
		},
		{
			name: "full",
			env: map[string]string{
				"MINIO_ENDPOINT":   "localhost:9000",
				"MINIO_ACCESS_KEY": "ak",
				"MINIO_SECRET_KEY": "sk",
				"MINIO_SECURE":     "true",
			},
			want: publish.Connection{Endpoint: "localhost:9000", AccessKey: "ak", SecretKey: "sk", Secure: true},
		},
		{
			name: "insecure by default",
			env:  map[string]string{"MINIO_ENDPOINT": "minio:9000"},
			want: publish.Connection{Endpoint: "minio:9000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := publish.ConnectionFromEnv(func(k string) string { return tt.env[k] })
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConnectionFromEnv_InvalidSecure(t *testing.T) {
	t.Parallel()

	env := map[string]string{"MINIO_ENDPOINT": "x:9000", "MINIO_SECURE": "maybe"}
	if _, err := publish.ConnectionFromEnv(func(k string) string { return env[k] }); err == nil {
		t.Error("expected error for invalid MINIO_SECURE")
	}
}

func TestNewMinioStore(t *testing.T) {
	t.Parallel()

	client, err := publish.NewMinioStore(publish.Connection{Endpoint: "localhost:9000", AccessKey: "ak", SecretKey: "sk"})
	if err != nil {
		t.Fatalf("NewMinioStore() unexpected error: %v", err)
	}
	if client.EndpointURL().Host != "localhost:9000" {
		t.Errorf("endpoint = %s", client.EndpointURL())
	}
}
