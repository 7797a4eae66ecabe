package services

import (
	"fmt"
	"sync"
	"time"
)

type session struct {
	mu        sync.Mutex
	files     []StoredFile
	createdAt time.Time
	updatedAt time.Time
}

// MemorySessionStore keeps sessions in process memory. The map lock only guards
// membership; each session serialises access to its own file list, so work on
// one session never waits on another.
type MemorySessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*session
	idGenerator IDGenerator
	maxFiles    int
	now         func() time.Time
}

// NewMemorySessionStore creates an empty store. maxFiles <= 0 disables the per-session cap.
func NewMemorySessionStore(idGenerator IDGenerator, maxFiles int) *MemorySessionStore {
	return &MemorySessionStore{
		sessions:    make(map[string]*session),
		idGenerator: idGenerator,
		maxFiles:    maxFiles,
		now:         time.Now,
	}
}

// Create registers a new empty session and returns its id
func (s *MemorySessionStore) Create() string {
	now := s.now()
	sess := &session{createdAt: now, updatedAt: now}

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		id := s.idGenerator.Generate()
		if _, exists := s.sessions[id]; exists {
			continue
		}
		s.sessions[id] = sess
		return id
	}
}

func (s *MemorySessionStore) lookup(sessionID string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sess, nil
}

// Append adds files to the end of a session's file list
func (s *MemorySessionStore) Append(sessionID string, files []StoredFile) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if s.maxFiles > 0 && len(sess.files)+len(files) > s.maxFiles {
		return fmt.Errorf("%w: session %s would hold %d files, limit is %d",
			ErrTooManyFiles, sessionID, len(sess.files)+len(files), s.maxFiles)
	}
	sess.files = append(sess.files, files...)
	sess.updatedAt = s.now()
	return nil
}

// List returns the filenames of a session in upload order
func (s *MemorySessionStore) List(sessionID string) ([]string, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	names := make([]string, 0, len(sess.files))
	for _, f := range sess.files {
		names = append(names, f.Filename)
	}
	sess.updatedAt = s.now()
	return names, nil
}

// Get returns a snapshot of the session's files in upload order
func (s *MemorySessionStore) Get(sessionID string) ([]StoredFile, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(sess.files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySession, sessionID)
	}
	files := make([]StoredFile, len(sess.files))
	copy(files, sess.files)
	sess.updatedAt = s.now()
	return files, nil
}

// Clear drops every file of a session. The session id stays valid.
func (s *MemorySessionStore) Clear(sessionID string) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.files = nil
	sess.updatedAt = s.now()
	return nil
}

// Delete removes a session entirely
func (s *MemorySessionStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	delete(s.sessions, sessionID)
	return nil
}

// Expire removes sessions that have not been touched for longer than idle
// and returns how many were removed.
func (s *MemorySessionStore) Expire(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		stale := sess.updatedAt.Before(cutoff)
		sess.mu.Unlock()
		if stale {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
