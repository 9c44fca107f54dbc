package interceptor_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rohmanhakim/asset-interceptor/internal/cachestorage"
	"github.com/rohmanhakim/asset-interceptor/internal/interceptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_UnregisteredEventIsNoop(t *testing.T) {
	d := interceptor.NewDispatcher("v1")
	event := interceptor.NewFetchEvent(httptest.NewRequest(http.MethodGet, "/", nil))

	require.NoError(t, d.Dispatch(context.Background(), event))
	assert.False(t, event.Responded())
	assert.Equal(t, "v1", d.Version())
}

func TestDispatcher_RegisterReplacesHandler(t *testing.T) {
	d := interceptor.NewDispatcher("v1")
	d.Register(interceptor.EventInstall, func(ctx context.Context, event *interceptor.Event) error {
		return errors.New("first")
	})
	d.Register(interceptor.EventInstall, func(ctx context.Context, event *interceptor.Event) error {
		return errors.New("second")
	})

	err := d.Dispatch(context.Background(), interceptor.NewEvent(interceptor.EventInstall))
	assert.EqualError(t, err, "second")
}

func TestEvent_RespondWithFirstCallWins(t *testing.T) {
	event := interceptor.NewFetchEvent(httptest.NewRequest(http.MethodGet, "/audio/C5.wav", nil))

	event.RespondWith(interceptor.Outcome{Handled: true, Source: interceptor.SourceCache}, nil)
	event.RespondWith(interceptor.Outcome{Handled: true, Source: interceptor.SourceNetwork}, errors.New("late"))

	outcome, err := event.Outcome()
	assert.NoError(t, err)
	assert.Equal(t, interceptor.SourceCache, outcome.Source)
}

func TestBind_InstallRequestsSkipWaiting(t *testing.T) {
	storage := cachestorage.NewMemoryStorage()
	origin := newStubFetcher().serve("/favicons/a.png", "X")
	m := newManagerForTest(t, storage, origin, "static-v1", []string{"/favicons/a.png"}, "media-v1", nil)
	d := interceptor.Bind(m)
	assert.Equal(t, "static-v1+media-v1", d.Version())

	install := interceptor.NewEvent(interceptor.EventInstall)
	require.NoError(t, d.Dispatch(context.Background(), install))
	assert.True(t, install.SkipWaitingRequested())
}

func TestBind_FailedInstallDoesNotSkipWaiting(t *testing.T) {
	storage := cachestorage.NewMemoryStorage()
	m := newManagerForTest(t, storage, newStubFetcher(), "static-v1", []string{"/favicons/missing.png"}, "media-v1", nil)
	d := interceptor.Bind(m)

	install := interceptor.NewEvent(interceptor.EventInstall)
	require.Error(t, d.Dispatch(context.Background(), install))
	assert.False(t, install.SkipWaitingRequested())
}

func TestBind_ActivateReconciles(t *testing.T) {
	storage := cachestorage.NewMemoryStorage()
	seedPartitions(t, storage, "static-v0", "static-v1")
	m := newManagerForTest(t, storage, newStubFetcher(), "static-v1", nil, "media-v1", nil)

	require.NoError(t, interceptor.Bind(m).Dispatch(context.Background(), interceptor.NewEvent(interceptor.EventActivate)))

	has, err := storage.Has(context.Background(), "static-v0")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestBind_FetchRespondsOnlyForInterceptedRequests(t *testing.T) {
	storage := cachestorage.NewMemoryStorage()
	origin := newStubFetcher().serve("/audio/C5.wav", "C5")
	d := interceptor.Bind(newManagerForTest(t, storage, origin, "static-v1", nil, "media-v1", nil))

	passThrough := interceptor.NewFetchEvent(httptest.NewRequest(http.MethodGet, "/index.html", nil))
	require.NoError(t, d.Dispatch(context.Background(), passThrough))
	assert.False(t, passThrough.Responded())

	media := interceptor.NewFetchEvent(httptest.NewRequest(http.MethodGet, "/audio/C5.wav", nil))
	require.NoError(t, d.Dispatch(context.Background(), media))
	require.True(t, media.Responded())
	outcome, err := media.Outcome()
	require.NoError(t, err)
	assert.Equal(t, "C5", string(outcome.Response.Body))
}

func TestBind_FetchFailureIsCarriedByTheEvent(t *testing.T) {
	storage := cachestorage.NewMemoryStorage()
	d := interceptor.Bind(newManagerForTest(t, storage, newStubFetcher().serveResponse("/audio/C5.wav", stubResponse{
		err: &networkDown{},
	}), "static-v1", nil, "media-v1", nil))

	event := interceptor.NewFetchEvent(httptest.NewRequest(http.MethodGet, "/audio/C5.wav", nil))
	require.NoError(t, d.Dispatch(context.Background(), event))
	require.True(t, event.Responded())
	_, err := event.Outcome()
	assert.Error(t, err)
}
