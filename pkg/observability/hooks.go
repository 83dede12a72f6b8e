// Package observability lets a binary watch the engine without the engine
// depending on a metrics or tracing backend.
//
// There is one hook interface per event source: expansion, layout and
// rendering, storage, and document-service HTTP calls. Each starts out as a
// no-op. A binary swaps in its own implementation at startup, before any
// document is loaded:
//
//	observability.SetExpandHooks(promExpandHooks{})
//
// and library code reports through the accessor:
//
//	observability.Expand().OnFetchComplete(ctx, nodeID, len(children), time.Since(start), err)
//
// Libraries never register hooks themselves.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Expand Hooks
// =============================================================================

// ExpandHooks receives events from the expansion controller.
type ExpandHooks interface {
	// Fetch events, emitted around every children request.
	OnFetchStart(ctx context.Context, nodeID string)
	OnFetchComplete(ctx context.Context, nodeID string, children int, duration time.Duration, err error)

	// OnToggle records the outcome of a toggle ("expanded", "suppressed", ...).
	OnToggle(ctx context.Context, nodeID, outcome string)
}

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from layout and rendering.
type LayoutHooks interface {
	// OnLayoutComplete records one full layout pass over the visible nodes.
	OnLayoutComplete(ctx context.Context, visible int, duration time.Duration)

	// OnRenderComplete records an export to the given format.
	OnRenderComplete(ctx context.Context, format string, duration time.Duration, err error)
}

// =============================================================================
// Storage Hooks
// =============================================================================

// StorageHooks receives events from persistence backends.
type StorageHooks interface {
	// OnStorageOp records one operation ("save", "load", "list", ...) against a backend.
	OnStorageOp(ctx context.Context, backend, op string, duration time.Duration, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopExpandHooks is a no-op implementation of ExpandHooks.
type NoopExpandHooks struct{}

func (NoopExpandHooks) OnFetchStart(context.Context, string) {}

func (NoopExpandHooks) OnFetchComplete(context.Context, string, int, time.Duration, error) {}

func (NoopExpandHooks) OnToggle(context.Context, string, string) {}

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnLayoutComplete(context.Context, int, time.Duration)           {}
func (NoopLayoutHooks) OnRenderComplete(context.Context, string, time.Duration, error) {}

// NoopStorageHooks is a no-op implementation of StorageHooks.
type NoopStorageHooks struct{}

func (NoopStorageHooks) OnStorageOp(context.Context, string, string, time.Duration, error) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Registry
// =============================================================================

// slot holds one registered hook implementation.
type slot[T any] struct {
	mu   sync.RWMutex
	h    T
	noop T
}

func newSlot[T any](noop T) *slot[T] { return &slot[T]{h: noop, noop: noop} }

func (s *slot[T]) get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h
}

// set installs h; a nil h is ignored.
func (s *slot[T]) set(h T) {
	if any(h) == nil {
		return
	}
	s.mu.Lock()
	s.h = h
	s.mu.Unlock()
}

func (s *slot[T]) reset() {
	s.mu.Lock()
	s.h = s.noop
	s.mu.Unlock()
}

var (
	expandSlot  = newSlot[ExpandHooks](NoopExpandHooks{})
	layoutSlot  = newSlot[LayoutHooks](NoopLayoutHooks{})
	storageSlot = newSlot[StorageHooks](NoopStorageHooks{})
	httpSlot    = newSlot[HTTPHooks](NoopHTTPHooks{})
)

// SetExpandHooks registers the expansion hooks.
func SetExpandHooks(h ExpandHooks) { expandSlot.set(h) }

// SetLayoutHooks registers the layout and render hooks.
func SetLayoutHooks(h LayoutHooks) { layoutSlot.set(h) }

// SetStorageHooks registers the storage hooks.
func SetStorageHooks(h StorageHooks) { storageSlot.set(h) }

// SetHTTPHooks registers the document-service client hooks.
func SetHTTPHooks(h HTTPHooks) { httpSlot.set(h) }

// Expand returns the registered expansion hooks.
func Expand() ExpandHooks { return expandSlot.get() }

// Layout returns the registered layout and render hooks.
func Layout() LayoutHooks { return layoutSlot.get() }

// Storage returns the registered storage hooks.
func Storage() StorageHooks { return storageSlot.get() }

// HTTP returns the registered document-service client hooks.
func HTTP() HTTPHooks { return httpSlot.get() }

// Reset restores every hook to its no-op. Tests call it in cleanup.
func Reset() {
	expandSlot.reset()
	layoutSlot.reset()
	storageSlot.reset()
	httpSlot.reset()
}
