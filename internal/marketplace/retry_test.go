package marketplace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusmarket/campusmarket/internal/model"
)

var errRefused = model.TransportError("reach marketplace", errors.New("connection refused"))

// failing returns an fn that fails with errs in turn, then succeeds, and
// a pointer to its call count.
func failing(errs ...error) (func() error, *int) {
	calls := 0
	return func() error {
		calls++
		if calls <= len(errs) {
			return errs[calls-1]
		}
		return nil
	}, &calls
}

func TestRetry_Outcomes(t *testing.T) {
	maintenance := model.ApplicationError("reach marketplace", "maintenance")

	tests := []struct {
		name      string
		attempts  int
		errs      []error
		wantCalls int
		wantKind  model.ErrorKind
	}{
		{name: "healthy", attempts: 3, wantCalls: 1},
		{name: "recovers after refusal", attempts: 3, errs: []error{errRefused}, wantCalls: 2},
		{name: "stays down", attempts: 2, errs: []error{errRefused, errRefused}, wantCalls: 2, wantKind: model.KindTransport},
		{name: "declined by server", attempts: 3, errs: []error{maintenance}, wantCalls: 1, wantKind: model.KindApplication},
		{name: "single attempt", attempts: 1, errs: []error{errRefused}, wantCalls: 1, wantKind: model.KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, calls := failing(tt.errs...)
			err := Retry(context.Background(), tt.attempts, fn)

			if *calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", *calls, tt.wantCalls)
			}
			if tt.wantKind == 0 {
				if err != nil {
					t.Errorf("Retry = %v, want nil", err)
				}
				return
			}
			if got := model.KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %v, want %v (err %v)", got, tt.wantKind, err)
			}
		})
	}
}

func TestRetry_KeepsLastCause(t *testing.T) {
	fn, _ := failing(errRefused, errRefused)
	err := Retry(context.Background(), 2, fn)
	if !errors.Is(err, errRefused) {
		t.Errorf("Retry = %v, want it to wrap the last attempt's error", err)
	}
}

func TestRetry_CancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fn, calls := failing()
	err := Retry(ctx, 3, fn)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry = %v, want context.Canceled", err)
	}
	if *calls != 0 {
		t.Errorf("calls = %d, want 0", *calls)
	}
}

func TestRetry_DeadlineCutsBackoffShort(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	refusals := make([]error, 10)
	for i := range refusals {
		refusals[i] = errRefused
	}
	fn, calls := failing(refusals...)
	if err := Retry(ctx, 10, fn); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Retry = %v, want context.DeadlineExceeded", err)
	}
	if *calls < 1 || *calls >= 10 {
		t.Errorf("calls = %d, want between 1 and 9", *calls)
	}
}

func TestBackoffDelay_Window(t *testing.T) {
	tests := []struct {
		attempt int
		lo, hi  time.Duration
	}{
		{0, 250 * time.Millisecond, 500 * time.Millisecond},
		{1, 500 * time.Millisecond, time.Second},
		{2, time.Second, 2 * time.Second},
		{10, maxDelay / 2, maxDelay},
	}
	for _, tt := range tests {
		for range 20 {
			if d := backoffDelay(tt.attempt); d < tt.lo || d >= tt.hi {
				t.Errorf("backoffDelay(%d) = %v, want in [%v, %v)", tt.attempt, d, tt.lo, tt.hi)
				break
			}
		}
	}
}
