package ratelimit

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSlidingWindow_BlocksSixthAttempt(t *testing.T) {
	clock := &fakeClock{now: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewSlidingWindowWithClock(5, time.Minute, clock.Now)

	for i := 1; i <= 5; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("attempt %d rejected, want allowed", i)
		}
		clock.Advance(time.Second)
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("6th attempt allowed, want rejected")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("other address rejected, want allowed")
	}
}

func TestSlidingWindow_AllowsAfterWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewSlidingWindowWithClock(5, time.Minute, clock.Now)

	for i := 0; i < 5; i++ {
		l.Allow("ip")
	}
	if l.Allow("ip") {
		t.Fatal("expected throttling inside the window")
	}

	clock.Advance(59 * time.Second)
	if l.Allow("ip") {
		t.Fatal("expected throttling before the window elapsed")
	}

	clock.Advance(2 * time.Second)
	if !l.Allow("ip") {
		t.Fatal("expected attempts to be accepted after the window elapsed")
	}
}

func TestSlidingWindow_WindowSlides(t *testing.T) {
	clock := &fakeClock{now: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewSlidingWindowWithClock(2, time.Minute, clock.Now)

	l.Allow("ip") // t=0
	clock.Advance(40 * time.Second)
	l.Allow("ip") // t=40
	clock.Advance(30 * time.Second)
	// t=70: the first attempt has left the window, the second has not.
	if !l.Allow("ip") {
		t.Fatal("expected one slot to free up")
	}
	if l.Allow("ip") {
		t.Fatal("expected the window to be full again")
	}
}

func TestSlidingWindow_SweepDropsStaleKeys(t *testing.T) {
	clock := &fakeClock{now: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewSlidingWindowWithClock(5, time.Minute, clock.Now)

	for _, key := range []string{"a", "b", "c"} {
		l.Allow(key)
	}
	clock.Advance(2 * time.Minute)
	l.Allow("d")

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.attempts) != 1 {
		t.Fatalf("tracked keys = %d, want 1", len(l.attempts))
	}
}

func TestSlidingWindow_Concurrent(t *testing.T) {
	l := NewSlidingWindow(50, time.Minute)
	var wg sync.WaitGroup
	allowed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Allow("shared")
		}()
	}
	wg.Wait()
	close(allowed)

	n := 0
	for ok := range allowed {
		if ok {
			n++
		}
	}
	if n != 50 {
		t.Fatalf("allowed = %d, want 50", n)
	}
}
