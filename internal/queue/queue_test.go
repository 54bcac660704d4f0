package queue

import (
	"sync"
	"testing"
)

type testItem struct {
	ID   int
	Name string
}

func TestQueue_New(t *testing.T) {
	q := New[testItem]()
	if q == nil {
		t.Fatal("expected non-nil queue")
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
}

func TestQueue_Push(t *testing.T) {
	q := New[testItem]()

	q.Push(testItem{ID: 1, Name: "first"})
	if q.Len() != 1 {
		t.Errorf("expected length 1, got %d", q.Len())
	}

	q.Push(testItem{ID: 2}, testItem{ID: 3})
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}
}

func TestQueue_TakeAll(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	got := q.Take(0)
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("expected [1 2 3], got %v", got)
	}
	if !q.Empty() {
		t.Error("expected empty queue after Take(0)")
	}

	if got := q.Take(0); len(got) != 0 {
		t.Errorf("expected nothing from an empty queue, got %v", got)
	}
}

func TestQueue_TakeBatch(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3, 4, 5)

	first := q.Take(2)
	if len(first) != 2 || first[0] != 1 || first[1] != 2 {
		t.Errorf("expected [1 2], got %v", first)
	}
	if q.Len() != 3 {
		t.Errorf("expected 3 left, got %d", q.Len())
	}

	// The returned batch must not alias the queue's storage.
	q.Push(6)
	first[0] = 99
	rest := q.Take(10)
	if len(rest) != 4 || rest[0] != 3 || rest[3] != 6 {
		t.Errorf("expected [3 4 5 6], got %v", rest)
	}
}

func TestQueue_Requeue(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	batch := q.Take(0)
	q.Push(4)
	q.Requeue(batch...)

	got := q.Take(0)
	want := []int{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	q.Requeue()
	if !q.Empty() {
		t.Error("requeueing nothing should leave the queue empty")
	}
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup

	numGoroutines := 10
	itemsPerGoroutine := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for j := 0; j < itemsPerGoroutine; j++ {
				q.Push(start*itemsPerGoroutine + j)
			}
		}(i)
	}

	wg.Wait()

	expected := numGoroutines * itemsPerGoroutine
	if q.Len() != expected {
		t.Errorf("expected length %d, got %d", expected, q.Len())
	}
}

func TestQueue_ConcurrentTake(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	var mu sync.Mutex
	taken := 0

	for i := 0; i < 1000; i++ {
		q.Push(i)
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				batch := q.Take(7)
				if len(batch) == 0 {
					return
				}
				mu.Lock()
				taken += len(batch)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if taken != 1000 {
		t.Errorf("expected 1000 items taken, got %d", taken)
	}
	if !q.Empty() {
		t.Error("expected empty queue")
	}
}
