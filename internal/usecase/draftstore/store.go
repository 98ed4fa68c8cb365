// Package draftstore serializes session progress to the durable kv store so
// the user can pause and resume. Raw binary content is never persisted; a
// restored draft carries document metadata only.
package draftstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"loan-intake-service/internal/domain/document"
	"loan-intake-service/internal/domain/draft"
	"loan-intake-service/internal/domain/kv"
	"loan-intake-service/internal/domain/session"
)

type Store struct{ store kv.Store }

func New(store kv.Store) *Store { return &Store{store: store} }

var _ draft.Store = (*Store)(nil)

func key(sessionID string) string { return "draft:" + sessionID }

// FromSession builds a metadata-only snapshot from a session clone.
func FromSession(sess *session.ApplicationSession) draft.Snapshot {
	s := draft.Snapshot{
		SavedAt:       time.Now().UTC(),
		StepIndex:     sess.StepIndex,
		ApplicationID: sess.ApplicationID,
		Customer:      sess.Customer,
		Loan:          sess.Loan,
	}
	for _, d := range sess.Documents {
		s.Documents = append(s.Documents, draft.DocumentMeta{
			Kind:            d.Kind,
			Status:          d.Status,
			Fingerprint:     d.Fingerprint,
			SizeBytes:       d.SizeBytes,
			MimeType:        d.MimeType,
			PendingApproval: d.PendingApproval,
		})
	}
	sort.Slice(s.Documents, func(i, j int) bool { return s.Documents[i].Kind < s.Documents[j].Kind })
	return s
}

// Save overwrites any prior snapshot for the session.
func (s *Store) Save(ctx context.Context, sessionID string, snap draft.Snapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return s.store.Set(ctx, key(sessionID), b)
}

func (s *Store) Load(ctx context.Context, sessionID string) (draft.Snapshot, error) {
	b, err := s.store.Get(ctx, key(sessionID))
	if err == kv.ErrNotFound {
		return draft.Snapshot{}, draft.ErrNoDraft
	}
	if err != nil {
		return draft.Snapshot{}, err
	}
	var snap draft.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return draft.Snapshot{}, fmt.Errorf("decode draft: %w", err)
	}
	return snap, nil
}

func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.store.Remove(ctx, key(sessionID))
}

// Restore applies a snapshot back onto a live session through its mutation
// entry points. Documents come back as metadata placeholders: anything that
// still needed its bytes drops to pending and must be re-attached, while
// already-uploaded or failed documents keep their status.
func Restore(ctx context.Context, sessions session.Store, sessionID string, snap draft.Snapshot) error {
	cust := snap.Customer
	if _, err := sessions.SetCustomer(ctx, sessionID, session.PartialCustomer{
		FullName:       &cust.FullName,
		IdentityNumber: &cust.IdentityNumber,
		Phone:          &cust.Phone,
		Email:          &cust.Email,
		Province:       &cust.Province,
		BranchName:     &cust.BranchName,
	}); err != nil {
		return err
	}
	loan := snap.Loan
	if _, err := sessions.SetLoan(ctx, sessionID, session.PartialLoan{
		Amount:      &loan.Amount,
		TenorMonths: &loan.TenorMonths,
		Purpose:     &loan.Purpose,
	}); err != nil {
		return err
	}
	if err := sessions.SetStep(ctx, sessionID, snap.StepIndex); err != nil {
		return err
	}
	if snap.ApplicationID != "" {
		if err := sessions.SetApplicationID(ctx, sessionID, snap.ApplicationID); err != nil {
			return err
		}
	}
	for _, m := range snap.Documents {
		status := m.Status
		switch status {
		case document.StatusUploaded, document.StatusError:
			// keeps its outcome
		default:
			status = document.StatusPending
		}
		doc := &document.Document{
			Kind:            m.Kind,
			Status:          status,
			Fingerprint:     m.Fingerprint,
			SizeBytes:       m.SizeBytes,
			MimeType:        m.MimeType,
			PendingApproval: m.PendingApproval,
			AttachedAt:      snap.SavedAt,
		}
		if err := sessions.UpsertDocument(ctx, sessionID, doc); err != nil {
			return err
		}
	}
	return nil
}
