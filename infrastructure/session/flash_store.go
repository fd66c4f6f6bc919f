// Package session keeps per-session flash messages and the paste clipboard
// in memory.
package session

import (
	"context"
	"sync"
	"time"
)

// FlashStore implements ports.MessageStore and ports.Clipboard. Sessions idle for longer than
// the TTL are dropped by a background sweep.
type FlashStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

type sessionEntry struct {
	queues    map[string][]string
	paste     []int64
	action    string
	expiresAt time.Time
}

// NewFlashStore creates a store and starts the cleanup loop, which stops
// when ctx is cancelled.
func NewFlashStore(ctx context.Context, ttl time.Duration) *FlashStore {
	s := &FlashStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		now:      time.Now,
	}
	go s.cleanupExpired(ctx, time.Minute)
	return s
}

// Flash appends message to a queue.
func (s *FlashStore) Flash(_ context.Context, sessionID, queue, message string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.touch(sessionID)
	entry.queues[queue] = append(entry.queues[queue], message)
}

// SetClipboard replaces the paste selection of a session.
func (s *FlashStore) SetClipboard(_ context.Context, sessionID string, ids []int64, action string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.touch(sessionID)
	entry.paste = append([]int64(nil), ids...)
	entry.action = action
}

// Clipboard returns the paste selection of a session. Reading it does not
// clear it, so one copy can be pasted more than once.
func (s *FlashStore) Clipboard(_ context.Context, sessionID string) ([]int64, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok || s.now().After(entry.expiresAt) || entry.paste == nil {
		return nil, "", false
	}
	return append([]int64(nil), entry.paste...), entry.action, true
}

// touch returns the live entry of a session and extends its expiry. An
// expired entry is replaced. Callers hold mu.
func (s *FlashStore) touch(sessionID string) *sessionEntry {
	entry, ok := s.sessions[sessionID]
	if !ok || s.now().After(entry.expiresAt) {
		entry = &sessionEntry{queues: make(map[string][]string)}
		s.sessions[sessionID] = entry
	}
	entry.expiresAt = s.now().Add(s.ttl)
	return entry
}

// Pop returns and clears a queue. A second call returns an empty slice.
func (s *FlashStore) Pop(_ context.Context, sessionID, queue string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok || s.now().After(entry.expiresAt) {
		return []string{}
	}
	msgs := entry.queues[queue]
	delete(entry.queues, queue)
	if msgs == nil {
		return []string{}
	}
	return msgs
}

func (s *FlashStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

func (s *FlashStore) cleanupExpired(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}
