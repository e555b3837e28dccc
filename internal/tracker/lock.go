package tracker

import "sync"

// ChannelLocks serializes updates to one channel's record while letting
// different channels proceed concurrently.
//
// The outer mutex protects the map; each channel has its own mutex.
type ChannelLocks struct {
	mu    sync.Mutex             // Protects the locks map
	locks map[string]*sync.Mutex // Per-channel locks
}

// NewChannelLocks creates an empty lock set.
func NewChannelLocks() *ChannelLocks {
	return &ChannelLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

func (cl *ChannelLocks) get(channelID string) *sync.Mutex {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	lock, exists := cl.locks[channelID]
	if !exists {
		lock = &sync.Mutex{}
		cl.locks[channelID] = lock
	}
	return lock
}

// Lock blocks until the channel's lock is held.
func (cl *ChannelLocks) Lock(channelID string) {
	cl.get(channelID).Lock()
}

// Unlock releases the channel's lock. Unlocking a channel that was never
// locked is a no-op.
func (cl *ChannelLocks) Unlock(channelID string) {
	cl.mu.Lock()
	lock := cl.locks[channelID]
	cl.mu.Unlock()

	if lock != nil {
		lock.Unlock()
	}
}
