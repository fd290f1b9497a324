package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func TestDo_RetriesServerErrorsWithLinearBackoff(t *testing.T) {
	rec := &sleepRecorder{}
	p := Policy{Retries: 2, Backoff: time.Second, Sleep: rec.Sleep}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 2 {
			return &StatusError{Op: "upload", Code: 503}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if len(rec.waits) != 2 || rec.waits[0] != time.Second || rec.waits[1] != 2*time.Second {
		t.Errorf("Expected waits [1s 2s], got %v", rec.waits)
	}
}

func TestDo_ExhaustsBudget(t *testing.T) {
	rec := &sleepRecorder{}
	p := Policy{Retries: 2, Backoff: time.Second, Sleep: rec.Sleep}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return &StatusError{Op: "upload", Code: 500}
	})

	if StatusCode(err) != 500 {
		t.Fatalf("Expected last status error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestDo_ClientErrorIsNotRetried(t *testing.T) {
	rec := &sleepRecorder{}
	p := Policy{Retries: 2, Backoff: time.Second, Sleep: rec.Sleep}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return &StatusError{Op: "upload", Code: 400, Body: "bad path"}
	})

	if err == nil || calls != 1 {
		t.Fatalf("Expected single failed call, got calls=%d err=%v", calls, err)
	}
	if len(rec.waits) != 0 {
		t.Errorf("Expected no backoff, got %v", rec.waits)
	}
}

func TestDo_StopsWhenParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Retries: 2, Backoff: time.Hour}

	calls := 0
	err := p.Do(ctx, func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return &StatusError{Op: "save", Code: 502}
	})

	if err == nil || calls != 1 {
		t.Fatalf("Expected one call after cancel, got calls=%d err=%v", calls, err)
	}
}

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"5xx", &StatusError{Code: 502}, true},
		{"4xx", &StatusError{Code: 404}, false},
		{"wrapped 5xx", fmt.Errorf("put: %w", &StatusError{Code: 500}), true},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"temporary", Temporary(errors.New("database is locked")), true},
		{"plain", errors.New("malformed response"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetriable(tt.err); got != tt.want {
				t.Errorf("IsRetriable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
