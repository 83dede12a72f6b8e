package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func quietSpinner(ctx context.Context, msg string) (*spinner, *syncBuffer) {
	var buf syncBuffer
	s := newSpinner(ctx, msg)
	s.w = &buf
	return s, &buf
}

func TestSpinnerShowsMessage(t *testing.T) {
	s, buf := quietSpinner(context.Background(), "expanding")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.SetMessage("level %d", 2)
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "expanding") || !strings.Contains(out, "level 2") {
		t.Errorf("output = %q", out)
	}
	if s.Cancelled() {
		t.Error("Stop should not count as cancellation")
	}
}

func TestSpinnerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, _ := quietSpinner(ctx, "waiting")
	s.Start()
	cancel()
	s.Stop()

	if !s.Cancelled() {
		t.Error("spinner should report cancellation")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s, _ := quietSpinner(context.Background(), "x")
	s.Start()
	s.Stop()
	s.Stop()
}
