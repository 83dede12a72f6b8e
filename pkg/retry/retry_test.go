package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errDown = errors.New("connection refused")

func fast(attempts int) Policy {
	return Policy{Attempts: attempts, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDo(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		failUntil int // fn fails on attempts below this
		permanent bool
		wantCalls int
		wantErr   bool
	}{
		{name: "first try", attempts: 3, failUntil: 1, wantCalls: 1},
		{name: "recovers", attempts: 3, failUntil: 3, wantCalls: 3},
		{name: "exhausted", attempts: 3, failUntil: 10, wantCalls: 3, wantErr: true},
		{name: "permanent", attempts: 3, failUntil: 10, permanent: true, wantCalls: 1, wantErr: true},
		{name: "zero attempts", attempts: 0, failUntil: 10, wantCalls: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := fast(tt.attempts).Do(context.Background(), func(attempt int) error {
				calls++
				if attempt != calls {
					t.Errorf("attempt = %d, want %d", attempt, calls)
				}
				if attempt >= tt.failUntil {
					return nil
				}
				if tt.permanent {
					return errDown
				}
				return Transient(errDown)
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errDown) {
				t.Errorf("err = %v, want it to wrap errDown", err)
			}
			if IsTransient(err) {
				t.Error("returned error should not carry the transient mark")
			}
		})
	}
}

func TestDoCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 5, Delay: time.Hour}
	calls := 0
	err := p.Do(ctx, func(int) error {
		calls++
		cancel()
		return Transient(errDown)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestTransient(t *testing.T) {
	if Transient(nil) != nil {
		t.Error("Transient(nil) should be nil")
	}
	if !IsTransient(Transient(errDown)) {
		t.Error("marked error not transient")
	}
	if IsTransient(errDown) {
		t.Error("plain error reported transient")
	}
}
