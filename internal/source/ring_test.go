// SPDX-License-Identifier: MIT
package source

import (
	"sync"
	"testing"
)

func sequence(start, n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(start + i)
	}
	return out
}

func TestRingTailBeforeFill(t *testing.T) {
	r := NewRing(100)

	if got := r.Tail(10); got != nil {
		t.Errorf("empty ring Tail should be nil, got %v", got)
	}

	r.Append(sequence(0, 5))
	if got := r.Tail(10); got != nil {
		t.Errorf("underfilled ring Tail should be nil, got %v", got)
	}
	if got := r.Tail(5); got == nil {
		t.Error("Tail(5) should succeed with 5 samples buffered")
	}
}

func TestRingTailOrdering(t *testing.T) {
	r := NewRing(8)
	r.Append(sequence(0, 6)) // 0..5

	tail := r.Tail(4)
	for i, want := range []float64{2, 3, 4, 5} {
		if tail[i] != want {
			t.Errorf("tail[%d]: got %g, want %g", i, tail[i], want)
		}
	}
}

func TestRingTrimsOldest(t *testing.T) {
	r := NewRing(8)
	r.Append(sequence(0, 8))  // fills: 0..7
	r.Append(sequence(8, 4))  // trims to: 4..11

	if r.Len() != 8 {
		t.Fatalf("ring size: got %d, want 8", r.Len())
	}

	tail := r.Tail(8)
	for i := range tail {
		if want := float64(4 + i); tail[i] != want {
			t.Errorf("tail[%d]: got %g, want %g", i, tail[i], want)
		}
	}
}

func TestRingAppendLargerThanCapacity(t *testing.T) {
	r := NewRing(4)
	r.Append(sequence(0, 10)) // only 6..9 survive

	tail := r.Tail(4)
	for i, want := range []float64{6, 7, 8, 9} {
		if tail[i] != want {
			t.Errorf("tail[%d]: got %g, want %g", i, tail[i], want)
		}
	}
}

func TestRingTailReturnsCopy(t *testing.T) {
	r := NewRing(4)
	r.Append(sequence(0, 4))

	tail := r.Tail(4)
	tail[0] = 999

	again := r.Tail(4)
	if again[0] == 999 {
		t.Error("Tail returned a view into the ring instead of a copy")
	}
}

// TestRingConcurrentAppendTail exercises the producer/consumer discipline
// under the race detector: a callback-style appender against tail readers.
func TestRingConcurrentAppendTail(t *testing.T) {
	r := NewRing(1024)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			r.Append(sequence(i, 64))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if tail := r.Tail(256); tail != nil && len(tail) != 256 {
				t.Errorf("tail length: got %d, want 256", len(tail))
				return
			}
		}
	}()

	wg.Wait()
}
