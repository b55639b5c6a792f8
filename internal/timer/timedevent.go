// Package timer provides the cancellable countdown used for ready-up and
// round deadlines.
package timer

import (
	"sync"
	"time"
)

// TimedEvent counts down a fixed number of seconds and then invokes its
// completion callback exactly once. An optional tick callback fires once per
// second with the remaining time, for client-side countdown display.
//
// Cancel is idempotent and safe from any goroutine. A cancel that races an
// in-flight firing either fully suppresses it or lets it complete; the firing
// decision is claimed under the mutex so there is no partial interleaving.
type TimedEvent struct {
	mu     sync.Mutex
	onTick func(remaining int)
	done   bool // fired or cancelled; no further callbacks
	stop   chan struct{}
}

// New starts a countdown of the given number of seconds. onDone runs on the
// timer's own goroutine when the countdown reaches zero, unless cancelled.
func New(seconds int, onDone func()) *TimedEvent {
	t := &TimedEvent{stop: make(chan struct{})}
	go t.run(seconds, onDone)
	return t
}

// SetTickCallback registers fn to receive the remaining seconds after each
// elapsed second. Safe to call after the countdown has started.
func (t *TimedEvent) SetTickCallback(fn func(remaining int)) {
	t.mu.Lock()
	t.onTick = fn
	t.mu.Unlock()
}

// Cancel stops future ticks and suppresses the completion callback if it has
// not yet been claimed. Calling Cancel more than once is a no-op.
func (t *TimedEvent) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	close(t.stop)
}

func (t *TimedEvent) run(seconds int, onDone func()) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	remaining := seconds
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			remaining--
			if remaining <= 0 {
				if t.claimFire() {
					onDone()
				}
				return
			}
			t.tick(remaining)
		}
	}
}

// claimFire atomically decides whether this countdown still owns its
// completion. Exactly one of {claimFire true, Cancel-before-fire} wins.
func (t *TimedEvent) claimFire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

func (t *TimedEvent) tick(remaining int) {
	t.mu.Lock()
	fn := t.onTick
	cancelled := t.done
	t.mu.Unlock()
	if fn != nil && !cancelled {
		fn(remaining)
	}
}
