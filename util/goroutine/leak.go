package goroutine

import (
	"runtime"
	"testing"
	"time"
)

// AssertNoLeaks records the current goroutine count and fails the test at
// cleanup if the count has not dropped back to it within a few seconds.
// Tests using it must not run in parallel.
func AssertNoLeaks(t testing.TB) {
	t.Helper()
	baseline := runtime.NumGoroutine()

	t.Cleanup(func() {
		if settle(baseline, 5*time.Second) {
			return
		}
		buf := make([]byte, 1<<20)
		buf = buf[:runtime.Stack(buf, true)]
		t.Errorf("goroutine leak: %d running, expected at most %d", runtime.NumGoroutine(), baseline)
		t.Logf("goroutines:\n%s", buf)
	})
}

// settle polls until at most target goroutines are running.
func settle(target int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if runtime.NumGoroutine() <= target {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(20 * time.Millisecond)
	}
}
