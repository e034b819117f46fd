// Package shard deterministically partitions enumerable workloads across
// worker identities. For a fixed input ordering the shards for ids
// 0..totalWorkers-1 are pairwise disjoint and their union is the input, so
// independent workers can slice the same workload without coordination.
package shard

// Normalize maps a worker id into 0..totalWorkers-1. Fallback identities
// handed out when the regular id space is exhausted sit above the range;
// folding them back keeps those workers productive at the cost of overlapping
// with one regular peer, which the idempotent writes absorb.
func Normalize(workerID, totalWorkers int) int {
	if totalWorkers <= 0 {
		return 0
	}
	return workerID % totalWorkers
}

// Assign returns the subsequence of items owned by workerID: item i belongs
// to shard i mod totalWorkers. The caller must present items in a stable
// order (pages ascending, years ascending, records sorted by id) or two
// workers may slice different views of the same workload.
func Assign[T any](items []T, workerID, totalWorkers int) []T {
	if totalWorkers <= 0 {
		return nil
	}
	workerID = Normalize(workerID, totalWorkers)
	var out []T
	for i, item := range items {
		if i%totalWorkers == workerID {
			out = append(out, item)
		}
	}
	return out
}

// Pages enumerates page numbers start..end ascending.
func Pages(start, end int) []int {
	return span(start, end)
}

// Years enumerates years start..end ascending.
func Years(start, end int) []int {
	return span(start, end)
}

func span(start, end int) []int {
	if end < start {
		return nil
	}
	out := make([]int, 0, end-start+1)
	for v := start; v <= end; v++ {
		out = append(out, v)
	}
	return out
}

// Chunk splits items into consecutive groups of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
