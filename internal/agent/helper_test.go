package agent_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rohmanhakim/asset-interceptor/internal/cachestorage"
	"github.com/rohmanhakim/asset-interceptor/internal/fetcher"
	"github.com/rohmanhakim/asset-interceptor/internal/interceptor"
	"github.com/rohmanhakim/asset-interceptor/internal/manifest"
	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
	"github.com/stretchr/testify/require"
)

// testOrigin is an httptest origin serving chime assets and counting hits per path.
type testOrigin struct {
	server *httptest.Server
	mu     sync.Mutex
	hits   map[string]int
	assets map[string]string
}

func newTestOrigin(t *testing.T, assets map[string]string) *testOrigin {
	t.Helper()
	o := &testOrigin{hits: make(map[string]int), assets: assets}
	o.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		o.hits[r.URL.EscapedPath()]++
		body, ok := o.assets[r.URL.EscapedPath()]
		o.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte(body))
	}))
	t.Cleanup(o.server.Close)
	return o
}

func (o *testOrigin) URL(t *testing.T) url.URL {
	t.Helper()
	u, err := url.Parse(o.server.URL)
	require.NoError(t, err)
	return *u
}

func mustParseURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func (o *testOrigin) hitsTo(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hits[path]
}

func newAgentForTest(
	t *testing.T,
	storage cachestorage.Storage,
	origin url.URL,
	staticPartition string,
	staticPaths []string,
	mediaPartition string,
	mediaPaths []string,
) *interceptor.Dispatcher {
	t.Helper()
	sink := &metadata.NoopSink{}
	m, err := interceptor.NewManager(sink, storage, fetcher.NewHTTPFetcher(sink, nil, "agent-test"), interceptor.ManagerParam{
		Origin:         origin,
		StaticManifest: manifest.New(staticPartition, staticPaths),
		MediaManifest:  manifest.New(mediaPartition, mediaPaths),
	})
	require.NoError(t, err)
	return interceptor.Bind(m)
}

// scriptedAgent builds a dispatcher whose lifecycle handlers are scripted.
type scriptedAgent struct {
	installErr  error
	activateErr error
	skipWaiting bool
	activated   atomic.Int32
	body        string
	// when set, the activate handler closes activating and waits for gate
	activating chan struct{}
	gate       chan struct{}
}

func (s *scriptedAgent) dispatcher(version string) *interceptor.Dispatcher {
	d := interceptor.NewDispatcher(version)
	d.Register(interceptor.EventInstall, func(ctx context.Context, event *interceptor.Event) error {
		if s.installErr != nil {
			return s.installErr
		}
		if s.skipWaiting {
			event.SkipWaiting()
		}
		return nil
	})
	d.Register(interceptor.EventActivate, func(ctx context.Context, event *interceptor.Event) error {
		s.activated.Add(1)
		if s.gate != nil {
			close(s.activating)
			<-s.gate
		}
		return s.activateErr
	})
	d.Register(interceptor.EventFetch, func(ctx context.Context, event *interceptor.Event) error {
		event.RespondWith(interceptor.Outcome{
			Handled: true,
			Source:  interceptor.SourceCache,
			Response: cachestorage.Response{
				Status: http.StatusOK,
				Header: http.Header{"Content-Type": []string{"text/plain"}},
				Body:   []byte(s.body),
			},
		}, nil)
		return nil
	})
	return d
}

var errInstall = errors.New("precache failed")

// forwardRecorder stands in for the origin proxy.
type forwardRecorder struct {
	calls atomic.Int32
}

func (f *forwardRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	w.Header().Set("X-Forwarded-By-Test", "1")
	w.WriteHeader(http.StatusTeapot)
}
