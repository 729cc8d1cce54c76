package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps the live wizard sessions. Starting a second session for the
// same member is an explicit conflict, not a silent overwrite; stale sessions
// are evicted by TTL.
type Store struct {
	mu       sync.Mutex
	byMember map[memberKey]*Session
	byID     map[string]*Session
	ttl      time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

type memberKey struct {
	guildID  string
	memberID string
}

func NewStore(ttl time.Duration) *Store {
	s := &Store{
		byMember: make(map[memberKey]*Session),
		byID:     make(map[string]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Start opens a new wizard session. Returns ErrSessionActive while a live
// session exists for the member.
func (s *Store) Start(guildID, memberID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{guildID, memberID}
	if existing, ok := s.byMember[key]; ok {
		if time.Since(existing.CreatedAt) < s.ttl {
			return nil, ErrSessionActive
		}
		delete(s.byID, existing.ID)
		delete(s.byMember, key)
	}

	sess := &Session{
		ID:        uuid.NewString(),
		GuildID:   guildID,
		MemberID:  memberID,
		State:     StateServiceType,
		CreatedAt: time.Now(),
	}
	s.byMember[key] = sess
	s.byID[sess.ID] = sess
	return sess, nil
}

// Get resolves a session id from a component custom ID and checks ownership.
func (s *Store) Get(id, memberID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	if !ok {
		return nil, ErrNoSession
	}
	if sess.MemberID != memberID {
		return nil, ErrNotOwner
	}
	return sess, nil
}

// Advance moves a session to its next wizard step, applying the given update
// first. The transition table is fixed; skipping steps is ErrBadTransition.
func (s *Store) Advance(id, memberID string, update func(*Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	if !ok {
		return nil, ErrNoSession
	}
	if sess.MemberID != memberID {
		return nil, ErrNotOwner
	}

	if update != nil {
		if err := update(sess); err != nil {
			return nil, err
		}
	}

	next, ok := sess.next()
	if !ok {
		return nil, ErrBadTransition
	}
	sess.State = next
	return sess, nil
}

// End removes a session on completion or cancellation.
func (s *Store) End(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	delete(s.byMember, memberKey{sess.GuildID, sess.MemberID})
}

func (s *Store) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictStale()
		}
	}
}

func (s *Store) evictStale() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl)
	for id, sess := range s.byID {
		if sess.CreatedAt.Before(cutoff) {
			delete(s.byID, id)
			delete(s.byMember, memberKey{sess.GuildID, sess.MemberID})
		}
	}
}
