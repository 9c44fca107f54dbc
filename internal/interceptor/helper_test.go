package interceptor_test

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/asset-interceptor/internal/cachestorage"
	"github.com/rohmanhakim/asset-interceptor/internal/fetcher"
	"github.com/rohmanhakim/asset-interceptor/internal/interceptor"
	"github.com/rohmanhakim/asset-interceptor/internal/manifest"
	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
	"github.com/rohmanhakim/asset-interceptor/pkg/failure"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testOrigin = "https://chimes.example"

func originURL(t *testing.T) url.URL {
	t.Helper()
	u, err := url.Parse(testOrigin)
	require.NoError(t, err)
	return *u
}

func originKey(t *testing.T, path string) cachestorage.RequestKey {
	t.Helper()
	u, err := url.Parse(testOrigin + path)
	require.NoError(t, err)
	return cachestorage.NewRequestKey(http.MethodGet, *u)
}

func newManagerForTest(
	t *testing.T,
	storage cachestorage.Storage,
	assetFetcher fetcher.Fetcher,
	staticPartition string,
	staticPaths []string,
	mediaPartition string,
	mediaPaths []string,
) *interceptor.Manager {
	t.Helper()
	m, err := interceptor.NewManager(&metadata.NoopSink{}, storage, assetFetcher, interceptor.ManagerParam{
		Origin:              originURL(t),
		StaticManifest:      manifest.New(staticPartition, staticPaths),
		MediaManifest:       manifest.New(mediaPartition, mediaPaths),
		PrecacheConcurrency: 4,
	})
	require.NoError(t, err)
	return m
}

// fetcherMock is a testify mock for the Fetcher
type fetcherMock struct {
	mock.Mock
}

func (f *fetcherMock) Fetch(
	ctx context.Context,
	fetchParam fetcher.FetchParam,
) (fetcher.FetchResult, failure.ClassifiedError) {
	args := f.Called(ctx, fetchParam)
	result := args.Get(0).(fetcher.FetchResult)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return result, err
}

// stubResponse is what stubFetcher answers for one absolute URL.
type stubResponse struct {
	status int
	body   string
	header http.Header
	err    failure.ClassifiedError
}

// stubFetcher is an in-memory origin. Unknown URLs answer 404.
type stubFetcher struct {
	mu          sync.Mutex
	responses   map[string]stubResponse
	calls       map[string]int
	delay       time.Duration
	inFlight    int
	maxInFlight int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		responses: make(map[string]stubResponse),
		calls:     make(map[string]int),
	}
}

func (s *stubFetcher) serve(path string, body string) *stubFetcher {
	return s.serveResponse(path, stubResponse{status: http.StatusOK, body: body})
}

func (s *stubFetcher) serveResponse(path string, resp stubResponse) *stubFetcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[testOrigin+path] = resp
	return s
}

func (s *stubFetcher) Fetch(
	ctx context.Context,
	fetchParam fetcher.FetchParam,
) (fetcher.FetchResult, failure.ClassifiedError) {
	target := fetchParam.URL()
	key := target.String()

	s.mu.Lock()
	s.calls[key]++
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	resp, ok := s.responses[key]
	delay := s.delay
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fetcher.FetchResult{}, &fetcher.FetchError{Message: ctx.Err().Error(), Cause: fetcher.ErrCauseCanceled}
		}
	}

	if !ok {
		return fetcher.NewFetchResultForTest(target, []byte("not found"), http.StatusNotFound, nil), nil
	}
	if resp.err != nil {
		return fetcher.FetchResult{}, resp.err
	}
	header := resp.header
	if header == nil {
		header = http.Header{"Content-Type": []string{"application/octet-stream"}}
	}
	return fetcher.NewFetchResultForTest(target, []byte(resp.body), resp.status, header.Clone()), nil
}

func (s *stubFetcher) callsTo(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[testOrigin+path]
}

func (s *stubFetcher) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// faultyStorage wraps a Storage and injects failures per operation.
type faultyStorage struct {
	cachestorage.Storage
	openErr   error
	keysErr   error
	deleteErr map[string]error
	putErr    error
	matchErr  error
}

func (f *faultyStorage) Open(ctx context.Context, name string) (cachestorage.Partition, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	p, err := f.Storage.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &faultyPartition{Partition: p, storage: f}, nil
}

func (f *faultyStorage) Keys(ctx context.Context) ([]string, error) {
	if f.keysErr != nil {
		return nil, f.keysErr
	}
	return f.Storage.Keys(ctx)
}

func (f *faultyStorage) Delete(ctx context.Context, name string) (bool, error) {
	if err, ok := f.deleteErr[name]; ok {
		return false, err
	}
	return f.Storage.Delete(ctx, name)
}

type faultyPartition struct {
	cachestorage.Partition
	storage *faultyStorage
}

func (p *faultyPartition) Match(ctx context.Context, key cachestorage.RequestKey) (cachestorage.Response, bool, error) {
	if p.storage.matchErr != nil {
		return cachestorage.Response{}, false, p.storage.matchErr
	}
	return p.Partition.Match(ctx, key)
}

func (p *faultyPartition) Put(ctx context.Context, key cachestorage.RequestKey, resp cachestorage.Response) error {
	if p.storage.putErr != nil {
		return p.storage.putErr
	}
	return p.Partition.Put(ctx, key, resp)
}

func (p *faultyPartition) PutAll(ctx context.Context, entries []cachestorage.Entry) error {
	if p.storage.putErr != nil {
		return p.storage.putErr
	}
	return p.Partition.PutAll(ctx, entries)
}

func partitionKeys(t *testing.T, storage cachestorage.Storage, name string) []cachestorage.RequestKey {
	t.Helper()
	p, err := storage.Open(context.Background(), name)
	require.NoError(t, err)
	keys, err := p.Keys(context.Background())
	require.NoError(t, err)
	return keys
}

func storedEntry(t *testing.T, storage cachestorage.Storage, name string, path string) (cachestorage.Response, bool) {
	t.Helper()
	p, err := storage.Open(context.Background(), name)
	require.NoError(t, err)
	resp, found, err := p.Match(context.Background(), originKey(t, path))
	require.NoError(t, err)
	return resp, found
}
