// Package memory holds the in-memory application session store: the single
// shared mutable structure of the pipeline. Every mutation goes through the
// entry points below and ends with an observer notification carrying a deep
// snapshot.
package memory

import (
	"context"
	"sync"
	"time"

	"loan-intake-service/internal/domain/document"
	"loan-intake-service/internal/domain/session"
	"loan-intake-service/pkg/id"
)

type SessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*session.ApplicationSession
	observers []session.Observer
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*session.ApplicationSession)}
}

var _ session.Store = (*SessionStore)(nil)

func (s *SessionStore) Subscribe(obs session.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// mutate runs fn on the live session under the lock, then notifies observers
// after releasing it: a slow observer (the draft autosave writes to the kv
// store) must not stall other session mutations, and an observer may safely
// read the store again. fn reports whether anything changed; notification is
// skipped otherwise.
func (s *SessionStore) mutate(sessionID string, fn func(*session.ApplicationSession) (bool, error)) (*session.ApplicationSession, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, session.ErrNotFound
	}
	changed, err := fn(sess)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	snap := sess.Clone()
	obs := make([]session.Observer, len(s.observers))
	copy(obs, s.observers)
	s.mu.Unlock()

	if changed {
		for _, o := range obs {
			// Each observer gets its own clone so none can alias another's
			// snapshot across a suspension point.
			o(snap.Clone())
		}
	}
	return snap, nil
}

func (s *SessionStore) Create(ctx context.Context) (*session.ApplicationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &session.ApplicationSession{
		ID:        id.NewID32(),
		Documents: make(map[document.Kind]*document.Document),
		CreatedAt: time.Now().UTC(),
	}
	s.sessions[sess.ID] = sess
	return sess.Clone(), nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (*session.ApplicationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, session.ErrNotFound
	}
	return sess.Clone(), nil
}

// SetCustomer applies a partial update, last write wins per field.
func (s *SessionStore) SetCustomer(ctx context.Context, sessionID string, p session.PartialCustomer) (*session.ApplicationSession, error) {
	return s.mutate(sessionID, func(sess *session.ApplicationSession) (bool, error) {
		c := &sess.Customer
		if p.FullName != nil {
			c.FullName = *p.FullName
		}
		if p.IdentityNumber != nil {
			c.IdentityNumber = *p.IdentityNumber
		}
		if p.Phone != nil {
			c.Phone = *p.Phone
		}
		if p.Email != nil {
			c.Email = *p.Email
		}
		if p.Province != nil {
			c.Province = *p.Province
		}
		if p.BranchName != nil {
			c.BranchName = *p.BranchName
		}
		return true, nil
	})
}

func (s *SessionStore) SetLoan(ctx context.Context, sessionID string, p session.PartialLoan) (*session.ApplicationSession, error) {
	return s.mutate(sessionID, func(sess *session.ApplicationSession) (bool, error) {
		if p.Amount != nil {
			sess.Loan.Amount = *p.Amount
		}
		if p.TenorMonths != nil {
			sess.Loan.TenorMonths = *p.TenorMonths
		}
		if p.Purpose != nil {
			sess.Loan.Purpose = *p.Purpose
		}
		return true, nil
	})
}

func (s *SessionStore) SetStep(ctx context.Context, sessionID string, step int) error {
	_, err := s.mutate(sessionID, func(sess *session.ApplicationSession) (bool, error) {
		sess.StepIndex = step
		return true, nil
	})
	return err
}

// SetApplicationID records the backend-issued identifier. It is written at
// most once; a second write with a different value is ignored so a racing
// EnsureApplication cannot replace an already-stored id.
func (s *SessionStore) SetApplicationID(ctx context.Context, sessionID, applicationID string) error {
	_, err := s.mutate(sessionID, func(sess *session.ApplicationSession) (bool, error) {
		if sess.ApplicationID != "" {
			return false, nil
		}
		sess.ApplicationID = applicationID
		return true, nil
	})
	return err
}

func (s *SessionStore) UpsertDocument(ctx context.Context, sessionID string, doc *document.Document) error {
	_, err := s.mutate(sessionID, func(sess *session.ApplicationSession) (bool, error) {
		sess.Documents[doc.Kind] = doc.Clone()
		return true, nil
	})
	return err
}

func (s *SessionStore) RemoveDocument(ctx context.Context, sessionID string, kind document.Kind) error {
	_, err := s.mutate(sessionID, func(sess *session.ApplicationSession) (bool, error) {
		if _, ok := sess.Documents[kind]; !ok {
			return false, document.ErrNotFound
		}
		delete(sess.Documents, kind)
		return true, nil
	})
	return err
}

// Reset clears all progress but keeps the session id valid, matching the
// explicit-reset behavior of the wizard.
func (s *SessionStore) Reset(ctx context.Context, sessionID string) error {
	_, err := s.mutate(sessionID, func(sess *session.ApplicationSession) (bool, error) {
		sess.Customer = session.CustomerFields{}
		sess.Loan = session.LoanFields{}
		sess.ApplicationID = ""
		sess.StepIndex = 0
		sess.Documents = make(map[document.Kind]*document.Document)
		return true, nil
	})
	return err
}
