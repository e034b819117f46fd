package shard

import (
	"fmt"
	"testing"
)

func TestAssignUnionIsDisjointAndComplete(t *testing.T) {
	for _, totalWorkers := range []int{1, 2, 3, 7, 8, 16} {
		for _, n := range []int{0, 1, 5, 100, 401} {
			items := make([]int, n)
			for i := range items {
				items[i] = i
			}

			seen := make(map[int]int)
			for w := 0; w < totalWorkers; w++ {
				for _, item := range Assign(items, w, totalWorkers) {
					seen[item]++
				}
			}

			if len(seen) != n {
				t.Fatalf("workers=%d n=%d: union has %d items, want %d", totalWorkers, n, len(seen), n)
			}
			for item, count := range seen {
				if count != 1 {
					t.Fatalf("workers=%d n=%d: item %d assigned %d times", totalWorkers, n, item, count)
				}
			}
		}
	}
}

func TestAssignIsDeterministic(t *testing.T) {
	items := Pages(1, 50)
	a := Assign(items, 3, 8)
	b := Assign(items, 3, 8)
	if fmt.Sprint(a) != fmt.Sprint(b) {
		t.Fatalf("same inputs produced different shards: %v vs %v", a, b)
	}
}

func TestFallbackIDStaysProductive(t *testing.T) {
	items := Pages(1, 20)

	// A fallback id above the worker range must fold back to a real shard
	// rather than receiving nothing.
	got := Assign(items, 8+3, 8)
	if len(got) == 0 {
		t.Fatal("fallback worker id received an empty shard")
	}
	want := Assign(items, 3, 8)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("fallback shard = %v, want same as normalized id: %v", got, want)
	}
}

func TestSingleWorkerOwnsEverything(t *testing.T) {
	items := Years(1990, 1999)
	got := Assign(items, 0, 1)
	if len(got) != len(items) {
		t.Fatalf("single worker got %d of %d items", len(got), len(items))
	}
}

func TestChunk(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[2]) != 1 || chunks[2][0] != 5 {
		t.Fatalf("unexpected tail chunk: %v", chunks[2])
	}
}
