package timer

import (
	"testing"
	"time"
)

func TestTimedEventFires(t *testing.T) {
	done := make(chan struct{}, 1)
	New(1, func() { done <- struct{}{} })

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("countdown never completed")
	}

	// No second firing.
	select {
	case <-done:
		t.Fatal("completion callback fired twice")
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestTimedEventCancelSuppressesFire(t *testing.T) {
	done := make(chan struct{}, 1)
	ev := New(1, func() { done <- struct{}{} })
	ev.Cancel()

	select {
	case <-done:
		t.Fatal("cancelled countdown still fired")
	case <-time.After(2 * time.Second):
	}
}

func TestTimedEventCancelIdempotent(t *testing.T) {
	ev := New(5, func() {})
	ev.Cancel()
	ev.Cancel() // must not panic on the closed stop channel
	ev.Cancel()
}

func TestTimedEventTicksCountDown(t *testing.T) {
	ticks := make(chan int, 8)
	done := make(chan struct{}, 1)
	ev := New(3, func() { done <- struct{}{} })
	ev.SetTickCallback(func(remaining int) { ticks <- remaining })

	want := []int{2, 1}
	for _, expect := range want {
		select {
		case got := <-ticks:
			if got != expect {
				t.Fatalf("tick reported %d remaining, want %d", got, expect)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("never saw tick with %d remaining", expect)
		}
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("countdown never completed after final tick")
	}
}
