package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docmap/pkg/observability"
)

// logHooks reports observability events to a charm logger at debug level.
// It is registered for every hook category when --verbose is set.
type logHooks struct {
	logger *log.Logger
}

func registerLogHooks(l *log.Logger) {
	h := &logHooks{logger: l.WithPrefix("hooks")}
	observability.SetExpandHooks(h)
	observability.SetLayoutHooks(h)
	observability.SetStorageHooks(h)
	observability.SetHTTPHooks(h)
}

func (h *logHooks) OnFetchStart(_ context.Context, nodeID string) {
	h.logger.Debug("fetch start", "node", nodeID)
}

func (h *logHooks) OnFetchComplete(_ context.Context, nodeID string, children int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("fetch failed", "node", nodeID, "duration", d, "err", err)
		return
	}
	h.logger.Debug("fetch complete", "node", nodeID, "children", children, "duration", d)
}

func (h *logHooks) OnToggle(_ context.Context, nodeID, outcome string) {
	h.logger.Debug("toggle", "node", nodeID, "outcome", outcome)
}

func (h *logHooks) OnLayoutComplete(_ context.Context, visible int, d time.Duration) {
	h.logger.Debug("layout", "visible", visible, "duration", d)
}

func (h *logHooks) OnRenderComplete(_ context.Context, format string, d time.Duration, err error) {
	h.logger.Debug("render", "format", format, "duration", d, "err", err)
}

func (h *logHooks) OnStorageOp(_ context.Context, backend, op string, d time.Duration, err error) {
	h.logger.Debug("storage", "backend", backend, "op", op, "duration", d, "err", err)
}

func (h *logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("request", "method", method, "host", host, "path", path)
}

func (h *logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h *logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("request failed", "method", method, "host", host, "path", path, "err", err)
}
