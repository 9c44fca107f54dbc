package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rohmanhakim/asset-interceptor/internal/interceptor"
	"github.com/rohmanhakim/asset-interceptor/internal/metadata"
)

/*
 Registration hosts versions of the interception agent.

 Lifecycle:
 - Update installs a new version while the current one keeps serving.
 - A failed install is discarded; the current version stays in control.
 - An installed version that asked to skip waiting is activated at once and
   claims every request that arrives afterwards. Otherwise it waits until
   ActivateWaiting is called, unless nothing is in control yet.
 - A version takes control only after its activate handler returns. Until
   then the previous version keeps answering requests.
 - The lock is never held while a fetch event or the activate handler runs,
   so a slow request cannot stall activation or any other request.

 Requests are forwarded untouched when no version is active or when the
 active version does not respond to the fetch event.
*/
type Registration struct {
	metadataSink metadata.MetadataSink
	forward      http.Handler

	updateMu sync.Mutex
	// guards active and waiting only
	mu      sync.RWMutex
	active  *interceptor.Dispatcher
	waiting *interceptor.Dispatcher
}

var ErrNothingWaiting = errors.New("no installed version is waiting")

// NewRegistration returns an empty registration. forward handles every
// request the active version does not answer.
func NewRegistration(metadataSink metadata.MetadataSink, forward http.Handler) *Registration {
	return &Registration{
		metadataSink: metadataSink,
		forward:      forward,
	}
}

// Update installs agent. On install failure the error is returned and the
// current version, if any, stays active.
func (r *Registration) Update(ctx context.Context, agent *interceptor.Dispatcher) error {
	r.updateMu.Lock()
	defer r.updateMu.Unlock()

	install := interceptor.NewEvent(interceptor.EventInstall)
	if err := agent.Dispatch(ctx, install); err != nil {
		r.metadataSink.RecordLifecycle(metadata.PhaseInstallFailed, agent.Version())
		return fmt.Errorf("install %s: %w", agent.Version(), err)
	}
	r.metadataSink.RecordLifecycle(metadata.PhaseInstalled, agent.Version())

	r.mu.RLock()
	controlled := r.active != nil
	r.mu.RUnlock()

	if controlled && !install.SkipWaitingRequested() {
		r.mu.Lock()
		r.waiting = agent
		r.mu.Unlock()
		r.metadataSink.RecordLifecycle(metadata.PhaseWaiting, agent.Version())
		return nil
	}

	r.activate(ctx, agent)
	return nil
}

// ActivateWaiting activates the version left waiting by Update.
func (r *Registration) ActivateWaiting(ctx context.Context) error {
	r.updateMu.Lock()
	defer r.updateMu.Unlock()

	r.mu.RLock()
	agent := r.waiting
	r.mu.RUnlock()
	if agent == nil {
		return ErrNothingWaiting
	}

	r.activate(ctx, agent)
	return nil
}

// activate requires r.updateMu held.
func (r *Registration) activate(ctx context.Context, agent *interceptor.Dispatcher) {
	// cleanup is best-effort; the version takes control either way
	if err := agent.Dispatch(ctx, interceptor.NewEvent(interceptor.EventActivate)); err != nil {
		r.metadataSink.RecordError(
			time.Now(),
			"agent",
			"Registration.activate",
			metadata.CauseUnknown,
			err.Error(),
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrVersion, agent.Version())},
		)
	}

	r.mu.Lock()
	r.active = agent
	r.waiting = nil
	r.mu.Unlock()

	r.metadataSink.RecordLifecycle(metadata.PhaseActivated, agent.Version())
}

// Active returns the version in control, or "" when there is none.
func (r *Registration) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return ""
	}
	return r.active.Version()
}

// Waiting returns the installed version waiting for activation, or "".
func (r *Registration) Waiting() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.waiting == nil {
		return ""
	}
	return r.waiting.Version()
}

func (r *Registration) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	event, err := r.dispatchFetch(req)
	if err != nil {
		r.metadataSink.RecordError(
			time.Now(),
			"agent",
			"Registration.ServeHTTP",
			metadata.CauseUnknown,
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrMethod, req.Method),
				metadata.NewAttr(metadata.AttrURL, req.URL.String()),
			},
		)
	}
	if event == nil || !event.Responded() {
		r.forward.ServeHTTP(w, req)
		return
	}

	outcome, err := event.Outcome()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	writeOutcome(w, req, outcome)
}

func (r *Registration) dispatchFetch(req *http.Request) (*interceptor.Event, error) {
	r.mu.RLock()
	active := r.active
	r.mu.RUnlock()

	if active == nil {
		return nil, nil
	}
	event := interceptor.NewFetchEvent(req)
	if err := active.Dispatch(req.Context(), event); err != nil {
		return nil, err
	}
	return event, nil
}
