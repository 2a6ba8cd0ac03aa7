// Package session holds conversational state for chat-mode generation.
// State is purely in-memory and scoped to the worker process; nothing
// survives a restart.
package session

import (
	"sync"
	"time"

	"github.com/appunni/llm-ts-worker/internal/runtime"
	"github.com/appunni/llm-ts-worker/pkg/types"
)

// DefaultID is the sentinel session identifier used when the caller does
// not choose one.
const DefaultID = "default"

// DefaultSystemMessage seeds sessions created without an explicit system
// message.
const DefaultSystemMessage = "You are a helpful assistant."

// Session is one conversation: an ordered message sequence starting with
// exactly one system message, plus the decoding cache matching that
// sequence. The cache is nil whenever the history was never generated
// against or has been reset.
type Session struct {
	ID        string
	Messages  []types.Message
	Cache     *runtime.Cache
	CreatedAt time.Time
}

// Info is a read-only projection of a session.
type Info struct {
	ID           string
	MessageCount int
	CreatedAt    time.Time
	HasCache     bool
}

// Store maps session identifiers to sessions. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func normalizeID(id string) string {
	if id == "" {
		return DefaultID
	}
	return id
}

// Ensure returns the session for id, creating it seeded with systemMessage
// (or the package default) on first use. The returned history is a copy;
// mutation goes through CommitTurn.
func (s *Store) Ensure(id, systemMessage string) Session {
	id = normalizeID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		if systemMessage == "" {
			systemMessage = DefaultSystemMessage
		}
		sess = &Session{
			ID:        id,
			Messages:  []types.Message{{Role: types.RoleSystem, Content: systemMessage}},
			CreatedAt: time.Now(),
		}
		s.sessions[id] = sess
	}
	return snapshot(sess)
}

// CommitTurn appends a completed user/assistant exchange and stores the
// decoding cache produced alongside it. This is the only mutation path, so
// a failed generation leaves the session exactly as it was.
func (s *Store) CommitTurn(id string, user, assistant types.Message, cache *runtime.Cache) (int, bool) {
	id = normalizeID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return 0, false
	}
	sess.Messages = append(sess.Messages, user, assistant)
	sess.Cache = cache
	return len(sess.Messages), true
}

// Clear removes the session. A subsequent Ensure with the same id creates a
// fresh one with no cache.
func (s *Store) Clear(id string) bool {
	id = normalizeID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Info reports message count, creation time and cache presence for id.
func (s *Store) Info(id string) (Info, bool) {
	id = normalizeID(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Info{}, false
	}
	return Info{
		ID:           sess.ID,
		MessageCount: len(sess.Messages),
		CreatedAt:    sess.CreatedAt,
		HasCache:     sess.Cache != nil,
	}, true
}

// Len reports how many sessions exist.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func snapshot(sess *Session) Session {
	msgs := make([]types.Message, len(sess.Messages))
	copy(msgs, sess.Messages)
	return Session{ID: sess.ID, Messages: msgs, Cache: sess.Cache, CreatedAt: sess.CreatedAt}
}
