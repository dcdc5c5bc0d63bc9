package http

import (
	"log/slog"
	"sync"
)

// StreamManager fans session diffs out to SSE subscribers per channel.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe registers a buffered channel for channelID. The returned func
// unsubscribes and closes it.
func (sm *StreamManager) Subscribe(channelID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[channelID]; !ok {
		sm.subscribers[channelID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[channelID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[channelID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, channelID)
			}
		}
	}
}

// Has reports whether channelID has subscribers.
func (sm *StreamManager) Has(channelID string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[channelID]) > 0
}

// Broadcast sends msg to every subscriber of channelID. Slow subscribers
// lose messages.
func (sm *StreamManager) Broadcast(channelID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[channelID] {
		select {
		case ch <- msg:
		default:
			slog.Warn("SSE: client buffer full, dropping message", "channel_id", channelID)
		}
	}
}
