package store

import (
	"hash/fnv"
	"slices"
	"sync"
)

const lockStripes = 64

// rowLocks is a striped keyed mutex. Two ids may share a stripe, which only
// costs some concurrency.
type rowLocks struct {
	stripes [lockStripes]sync.Mutex
}

func stripe(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % lockStripes)
}

// lock locks every id's stripe in index order and returns the unlock func.
func (l *rowLocks) lock(ids ...string) func() {
	seen := make(map[int]bool, len(ids))
	idx := make([]int, 0, len(ids))
	for _, id := range ids {
		s := stripe(id)
		if !seen[s] {
			seen[s] = true
			idx = append(idx, s)
		}
	}
	slices.Sort(idx)
	for _, s := range idx {
		l.stripes[s].Lock()
	}
	return func() {
		for i := len(idx) - 1; i >= 0; i-- {
			l.stripes[idx[i]].Unlock()
		}
	}
}
