package tally

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// stripedMutex serializes operations keyed by string without holding a
// per-key map. Keys hash onto a fixed set of mutexes, so unrelated keys
// may share a stripe; correctness only requires that equal keys always
// map to the same mutex.
type stripedMutex struct {
	stripes [lockStripes]sync.Mutex
}

func (s *stripedMutex) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	m := &s.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m
}
