package cli

import (
	"context"
	"io"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/alnah/audioset/internal/config"
	"github.com/alnah/audioset/internal/pipeline"
	"github.com/alnah/audioset/internal/publish"
	"github.com/alnah/audioset/internal/tool"
)

// ---------------------------------------------------------------------------
// Mock ToolResolver
// ---------------------------------------------------------------------------

type mockToolResolver struct {
	ResolveFunc       func(ctx context.Context) (tool.Binaries, error)
	CheckVersionsFunc func(ctx context.Context, bins tool.Binaries, w io.Writer)

	mu           sync.Mutex
	resolveCalls int
}

func (m *mockToolResolver) Resolve(ctx context.Context) (tool.Binaries, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return testBinaries(), nil
}

func (m *mockToolResolver) CheckVersions(ctx context.Context, bins tool.Binaries, w io.Writer) {
	if m.CheckVersionsFunc != nil {
		m.CheckVersionsFunc(ctx, bins, w)
	}
}

func (m *mockToolResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Defaults(), nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock InvokerFactory + Invoker
// ---------------------------------------------------------------------------

type mockInvokerFactory struct {
	NewInvokerFunc func(bins tool.Binaries, timeout time.Duration) (pipeline.Invoker, error)
	mockInvoker    *mockInvoker

	mu       sync.Mutex
	timeouts []time.Duration
}

func (m *mockInvokerFactory) NewInvoker(bins tool.Binaries, timeout time.Duration) (pipeline.Invoker, error) {
	m.mu.Lock()
	m.timeouts = append(m.timeouts, timeout)
	m.mu.Unlock()

	if m.NewInvokerFunc != nil {
		return m.NewInvokerFunc(bins, timeout)
	}
	if m.mockInvoker != nil {
		return m.mockInvoker, nil
	}
	return &mockInvoker{}, nil
}

func (m *mockInvokerFactory) Timeouts() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.timeouts...)
}

// mockInvoker writes every destination file so that existence checks see
// the work as done. FetchFunc, when set, replaces the default fetch.
type mockInvoker struct {
	FetchFunc func(ctx context.Context, sourceID, url, dest string) (tool.Result, error)

	mu      sync.Mutex
	fetches int
	formats []tool.Format
	windows []tool.Window
}

func (m *mockInvoker) Fetch(ctx context.Context, sourceID, url, dest string) (tool.Result, error) {
	m.mu.Lock()
	m.fetches++
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, sourceID, url, dest)
	}
	return tool.Result{Tool: tool.NameYtDlp}, touchFile(dest)
}

func (m *mockInvoker) Reformat(_ context.Context, _, dest string, f tool.Format) (tool.Result, error) {
	m.mu.Lock()
	m.formats = append(m.formats, f)
	m.mu.Unlock()
	return tool.Result{Tool: tool.NameSox}, touchFile(dest)
}

func (m *mockInvoker) Trim(_ context.Context, _, dest string, w tool.Window) (tool.Result, error) {
	m.mu.Lock()
	m.windows = append(m.windows, w)
	m.mu.Unlock()
	return tool.Result{Tool: tool.NameSox}, touchFile(dest)
}

func (m *mockInvoker) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

func (m *mockInvoker) Windows() []tool.Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tool.Window(nil), m.windows...)
}

func (m *mockInvoker) Formats() []tool.Format {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tool.Format(nil), m.formats...)
}

func touchFile(path string) error {
	return os.WriteFile(path, []byte("audio"), 0644)
}

// ---------------------------------------------------------------------------
// Mock StoreFactory + ObjectStore
// ---------------------------------------------------------------------------

type mockStoreFactory struct {
	NewStoreFunc func(getenv func(string) string) (publish.ObjectStore, error)
	store        *mockStore
}

func (m *mockStoreFactory) NewStore(getenv func(string) string) (publish.ObjectStore, error) {
	if m.NewStoreFunc != nil {
		return m.NewStoreFunc(getenv)
	}
	if m.store == nil {
		m.store = newMockStore()
	}
	return m.store, nil
}

type mockStore struct {
	mu        sync.Mutex
	buckets   map[string]bool
	objects   map[string]int64
	existsErr error
}

func newMockStore() *mockStore {
	return &mockStore{buckets: map[string]bool{}, objects: map[string]int64{}}
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
	m.buckets[bucket] = true
	return nil
}

func (m *mockStore) StatObject(_ context.Context, bucket, object string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	size, ok := m.objects[bucket+"/"+object]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: publish.NoSuchKeyCode, Key: object}
	}
	return minio.ObjectInfo{Key: object, Size: size}, nil
}

func (m *mockStore) FPutObject(_ context.Context, bucket, object, filePath string, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	fi, err := os.Stat(filePath)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+object] = fi.Size()
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: fi.Size()}, nil
}

func (m *mockStore) Objects() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.objects)
}
