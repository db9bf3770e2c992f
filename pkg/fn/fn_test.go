package fn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResultBasics(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("Ok result misreported")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatalf("Unwrap = (%d, %v)", v, err)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() {
		t.Fatal("Err result misreported")
	}
	if got := e.UnwrapOr(7); got != 7 {
		t.Fatalf("UnwrapOr = %d, want 7", got)
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair(1, nil); r.IsErr() {
		t.Fatal("FromPair with nil error should be ok")
	}
	if r := FromPair(0, errors.New("x")); r.IsOk() {
		t.Fatal("FromPair with error should be err")
	}
}

func TestThenShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	first := func(_ context.Context, n int) Result[int] { return Err[int](boom) }
	called := false
	second := func(_ context.Context, n int) Result[string] {
		called = true
		return Ok("never")
	}
	r := Then(first, second)(context.Background(), 1)
	if r.IsOk() {
		t.Fatal("expected error result")
	}
	if called {
		t.Fatal("second stage must not run after a failure")
	}
	_, err := r.Unwrap()
	if !errors.Is(err, boom) {
		t.Fatalf("error not propagated: %v", err)
	}
}

func TestPipelineOrder(t *testing.T) {
	add := func(n int) Stage[int, int] {
		return MapStage(func(v int) int { return v + n })
	}
	double := MapStage(func(v int) int { return v * 2 })
	r := Pipeline(add(1), double, add(3))(context.Background(), 4)
	v, err := r.Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if v != 13 {
		t.Fatalf("pipeline result = %d, want 13", v)
	}
}

func TestTapStage(t *testing.T) {
	seen := 0
	tap := TapStage(func(_ context.Context, v int) { seen = v })
	r := tap(context.Background(), 9)
	if v, _ := r.Unwrap(); v != 9 || seen != 9 {
		t.Fatalf("tap altered value or skipped side effect: v=%d seen=%d", v, seen)
	}
}

func TestTracedStagePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	st := TracedStage("test", func(_ context.Context, _ int) Result[int] {
		return Err[int](boom)
	})
	r := st(context.Background(), 0)
	if _, err := r.Unwrap(); !errors.Is(err, boom) {
		t.Fatalf("traced stage swallowed error: %v", err)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	attempts := 0
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(context.Background(), opts, func(_ context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Errf[int]("attempt %d", attempts)
		}
		return Ok(attempts)
	})
	v, err := r.Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if v != 3 {
		t.Fatalf("succeeded after %d attempts", v)
	}
}

func TestRetryGivesUp(t *testing.T) {
	opts := RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(context.Background(), opts, func(_ context.Context) Result[int] {
		return Errf[int]("always fails")
	})
	if r.IsOk() {
		t.Fatal("expected failure after max attempts")
	}
}

func TestSliceHelpers(t *testing.T) {
	nums := []int{1, 2, 3, 2, 1}

	doubled := Map(nums, func(n int) int { return n * 2 })
	if len(doubled) != 5 || doubled[2] != 6 {
		t.Fatalf("Map = %v", doubled)
	}

	even := Filter(nums, func(n int) bool { return n%2 == 0 })
	if len(even) != 2 {
		t.Fatalf("Filter = %v", even)
	}

	uniq := Unique(nums)
	if len(uniq) != 3 || uniq[0] != 1 || uniq[2] != 3 {
		t.Fatalf("Unique = %v", uniq)
	}
}
