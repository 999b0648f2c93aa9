package jit

import "testing"

func TestCompileQueue_DedupsUntilDrained(t *testing.T) {
	// GIVEN a queue receiving duplicate requests
	q := NewCompileQueue()
	q.RequestCompile(0x1000)
	q.RequestCompile(0x2000)
	q.RequestCompile(0x1000)

	// WHEN the queue is drained
	got := q.Drain()

	// THEN each address appears once, in arrival order
	want := []uint64{0x1000, 0x2000}
	if len(got) != len(want) {
		t.Fatalf("Drain: got %d addresses, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Drain[%d]: got %#x, want %#x", i, got[i], want[i])
		}
	}

	// AND draining resets the pending set so the address can re-queue
	q.RequestCompile(0x1000)
	if q.Len() != 1 {
		t.Errorf("re-request after drain: Len got %d, want 1", q.Len())
	}
}

func TestCompileQueue_DrainEmpty(t *testing.T) {
	q := NewCompileQueue()
	if got := q.Drain(); len(got) != 0 {
		t.Errorf("Drain on empty queue: got %v, want empty", got)
	}
}

func TestCompileQueue_Clear(t *testing.T) {
	q := NewCompileQueue()
	q.RequestCompile(0x1000)
	q.Clear()

	if q.Len() != 0 {
		t.Errorf("Len after Clear: got %d, want 0", q.Len())
	}
	// Clear also resets dedup state
	q.RequestCompile(0x1000)
	if q.Len() != 1 {
		t.Errorf("re-request after Clear: Len got %d, want 1", q.Len())
	}
}
