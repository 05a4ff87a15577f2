// Package conversation holds per-session memory for multi-turn analytics
// queries. Sessions are process-local, volatile and TTL/size-bounded; there
// is no cross-session leakage and no persistence.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/insightx/insightx/internal/nlp"
)

// ClarificationKind identifies which direction-sensitive dimension needs
// disambiguation.
type ClarificationKind string

const (
	ClarifyBankDirection  ClarificationKind = "bank_direction"
	ClarifyStateDirection ClarificationKind = "state_direction"
	ClarifyAgeDirection   ClarificationKind = "age_direction"
)

// ClarificationMode records whether the ambiguous grouping was a comparison
// or a segmentation, so the resolved follow-up can restore the intent.
type ClarificationMode string

const (
	ModeComparative  ClarificationMode = "comparative"
	ModeSegmentation ClarificationMode = "segmentation"
)

// Clarification is the pending question attached to a session. A session
// holds at most one; the pointer field makes the invariant structural. It
// carries the ambiguous turn's query and entities so the answer can resume
// the deferred plan instead of re-extracting.
type Clarification struct {
	Kind     ClarificationKind `json:"clarification_type"`
	Mode     ClarificationMode `json:"mode"`
	Options  []string          `json:"options"`
	Question string            `json:"question"`

	Query    string        `json:"-"`
	Intent   nlp.Intent    `json:"-"`
	Entities nlp.EntitySet `json:"-"`
}

// Turn is one bounded history record.
type Turn struct {
	Timestamp       time.Time          `json:"timestamp"`
	Query           string             `json:"query"`
	Intent          nlp.Intent         `json:"intent"`
	Entities        nlp.EntitySet      `json:"entities"`
	ResponseSummary string             `json:"response_summary"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
}

// Session is the in-memory conversational context for one user.
type Session struct {
	ID           string         `json:"session_id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	LastIntent   nlp.Intent     `json:"last_intent,omitempty"`
	LastEntities nlp.EntitySet  `json:"last_entities"`
	History      []Turn         `json:"history"`
	Pending      *Clarification `json:"pending_clarification,omitempty"`
}

// DefaultTTL bounds session inactivity before lazy expiry.
const DefaultTTL = time.Hour

// DefaultMaxHistory bounds the per-session turn history; oldest evicted
// first.
const DefaultMaxHistory = 20

// Store is an in-memory session store. It is safe for concurrent use;
// concurrent turns on the same session id are last-write-wins, acceptable
// for an interactive single-user conversation.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	ttl        time.Duration
	maxHistory int
	now        func() time.Time
}

// NewStore creates a session store with the given TTL. ttl <= 0 uses
// DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions:   make(map[string]*Session),
		ttl:        ttl,
		maxHistory: DefaultMaxHistory,
		now:        time.Now,
	}
}

// Create starts a new session with empty memory and returns a copy.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		UpdatedAt:    now,
		LastEntities: nlp.EntitySet{},
	}
	s.sessions[sess.ID] = sess
	return copySession(sess)
}

// Get returns a copy of the session if it exists and has not passed its TTL.
// Expiry is checked lazily on access; expired sessions are removed.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.locked(id)
	if !ok {
		return nil, false
	}
	return copySession(sess), true
}

// locked fetches a live session, expiring it when stale. Callers must hold
// the write lock.
func (s *Store) locked(id string) (*Session, bool) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.now().Sub(sess.UpdatedAt) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	return sess, true
}

// MergeEntities combines a new turn's entities with the session's prior
// ones. New values win per key, with one exception: a prior
// comparison_dimension survives when the new turn introduces no grouping
// key, so "How about Food?" continues a grouped comparison instead of
// resetting it. A new grouping key replaces the prior grouping entirely.
func (s *Store) MergeEntities(id string, entities nlp.EntitySet) nlp.EntitySet {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.locked(id)
	if !ok {
		return entities.Clone()
	}

	merged := sess.LastEntities.Clone()
	if entities.Has(nlp.KeyComparisonDimension) || entities.Has(nlp.KeySegmentBy) {
		delete(merged, nlp.KeyComparisonDimension)
		delete(merged, nlp.KeyComparisonValues)
		delete(merged, nlp.KeySegmentBy)
	}
	for k, v := range entities {
		merged[k] = v
	}
	return merged
}

// Update appends a bounded turn record and refreshes the session's last
// intent, entities and activity clock. Called only after a successful plan
// execution.
func (s *Store) Update(id, query string, intent nlp.Intent, entities nlp.EntitySet, summary string, metrics map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.locked(id)
	if !ok {
		return
	}

	sess.History = append(sess.History, Turn{
		Timestamp:       s.now(),
		Query:           query,
		Intent:          intent,
		Entities:        entities.Clone(),
		ResponseSummary: summary,
		Metrics:         metrics,
	})
	if len(sess.History) > s.maxHistory {
		sess.History = sess.History[len(sess.History)-s.maxHistory:]
	}

	sess.LastIntent = intent
	sess.LastEntities = entities.Clone()
	sess.UpdatedAt = s.now()
}

// SetPending attaches the pending clarification, leaving the rest of the
// session memory untouched. Touches the activity clock so the session stays
// alive for the answer.
func (s *Store) SetPending(id string, c *Clarification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.locked(id); ok {
		sess.Pending = c
		sess.UpdatedAt = s.now()
	}
}

// ClearPending removes the pending clarification.
func (s *Store) ClearPending(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.locked(id); ok {
		sess.Pending = nil
	}
}

// ResolvedEntities returns the union of everything extracted across the
// session's history plus the last entities, for the downstream explanation
// collaborator.
func (s *Store) ResolvedEntities(id string) nlp.EntitySet {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.locked(id)
	if !ok {
		return nlp.EntitySet{}
	}

	out := nlp.EntitySet{}
	for _, turn := range sess.History {
		for k, v := range turn.Entities {
			out[k] = v
		}
	}
	for k, v := range sess.LastEntities {
		out[k] = v
	}
	return out
}

// History returns a copy of the session's turn records.
func (s *Store) History(id string) ([]Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.locked(id)
	if !ok {
		return nil, false
	}
	out := make([]Turn, len(sess.History))
	copy(out, sess.History)
	return out, true
}

// Delete removes a session entirely.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Reset clears a session's memory but keeps its id.
func (s *Store) Reset(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.locked(id)
	if !ok {
		return false
	}
	sess.LastIntent = ""
	sess.LastEntities = nlp.EntitySet{}
	sess.History = nil
	sess.Pending = nil
	sess.UpdatedAt = s.now()
	return true
}

// Len reports the number of live (possibly stale) sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func copySession(sess *Session) *Session {
	out := *sess
	out.LastEntities = sess.LastEntities.Clone()
	out.History = make([]Turn, len(sess.History))
	copy(out.History, sess.History)
	if sess.Pending != nil {
		pending := *sess.Pending
		pending.Entities = sess.Pending.Entities.Clone()
		out.Pending = &pending
	}
	return &out
}
