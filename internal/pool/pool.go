// Package pool maps logical sessions onto the fixed set of backing runner
// containers. The mapping is a pure function of the session identifier, so
// identical inputs always resolve to the same slot and no mapping state is
// persisted anywhere. Many sessions may share one slot; isolating them from
// each other inside the slot is the caller's concern.
package pool

import "github.com/yomna-shousha/orange-build-sub000/internal/config"

// SlotIndex reduces a session identifier to a slot index in [0, size).
// A polynomial 31-hash over the identifier bytes, reduced modulo the pool
// size. size must be at least 1.
func SlotIndex(sessionID string, size int) int {
	if size < 1 {
		size = 1
	}

	var hash uint32
	for i := 0; i < len(sessionID); i++ {
		hash = hash*31 + uint32(sessionID[i])
	}
	return int(hash % uint32(size))
}

// SlotFor returns the runner name a session identifier hashes onto.
func SlotFor(sessionID string, size int) string {
	return config.RunnerName(SlotIndex(sessionID, size))
}
