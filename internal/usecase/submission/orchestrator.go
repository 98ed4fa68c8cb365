// Package submission sequences application creation and per-document upload
// against the remote loan-origination service, and owns the retry queue for
// uploads deferred by the pending-approval signal.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"loan-intake-service/internal/domain/document"
	dom "loan-intake-service/internal/domain/origination"
	"loan-intake-service/internal/domain/session"
	"loan-intake-service/internal/domain/upload"
	"loan-intake-service/internal/usecase/uploadqueue"
)

var ErrInvalidBranch = errors.New("no valid branch could be resolved")

// IncompleteError names the wizard step that still misses required fields.
type IncompleteError struct{ Step string }

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("application incomplete: step %q has missing required fields", e.Step)
}

// NotUploadableError rejects an upload request for a document outside the
// uploadable states. Only verified documents, failed uploads, and
// pending-approval retries may be sent; pending and verifying documents have
// not finished the pre-check, and merged parts travel inside their combined
// artifact.
type NotUploadableError struct {
	Kind   document.Kind
	Status document.Status
}

func (e *NotUploadableError) Error() string {
	return fmt.Sprintf("document %s is %s and cannot be uploaded", e.Kind, e.Status)
}

func canUpload(d *document.Document) bool {
	switch {
	case d.Uploadable():
		return true
	case d.Status == document.StatusUploaded && d.PendingApproval:
		return true
	case d.Status == document.StatusError:
		return true
	}
	return false
}

type Orchestrator struct {
	store  session.Store
	client dom.Client
	queue  upload.Queue
	logger *slog.Logger
}

func NewOrchestrator(store session.Store, client dom.Client, queue upload.Queue, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{store: store, client: client, queue: queue, logger: logger}
}

// EnsureApplication returns the session's application id, submitting the
// application on first use. Idempotent: once an id is stored every later call
// short-circuits without a network submission, so callers may invoke it once
// per document upload.
func (o *Orchestrator) EnsureApplication(ctx context.Context, credential, sessionID string) (string, error) {
	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if sess.ApplicationID != "" {
		return sess.ApplicationID, nil
	}

	if err := checkComplete(sess); err != nil {
		return "", err
	}

	branch := NormalizeBranch(sess.Customer.BranchName, sess.Customer.Province)
	if branch == "" {
		return "", fmt.Errorf("%w: declared %q, province %q", ErrInvalidBranch, sess.Customer.BranchName, sess.Customer.Province)
	}

	res, err := o.client.SubmitApplication(ctx, credential, dom.Application{
		FullName:       sess.Customer.FullName,
		IdentityNumber: sess.Customer.IdentityNumber,
		Phone:          sess.Customer.Phone,
		Email:          sess.Customer.Email,
		Province:       sess.Customer.Province,
		BranchName:     branch,
		Amount:         sess.Loan.Amount,
		TenorMonths:    sess.Loan.TenorMonths,
		Purpose:        sess.Loan.Purpose,
	})
	if err != nil {
		return "", err
	}

	if err := o.store.SetApplicationID(ctx, sessionID, res.ApplicationID); err != nil {
		return "", err
	}
	// Re-read rather than trusting our own write: a concurrent call may have
	// stored its id first, and the stored one wins.
	sess, err = o.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	o.logger.Info("application ensured", "session", sessionID, "application", sess.ApplicationID)
	return sess.ApplicationID, nil
}

func checkComplete(sess *session.ApplicationSession) error {
	c := sess.Customer
	if c.FullName == "" || c.IdentityNumber == "" || c.Phone == "" || c.Province == "" {
		return &IncompleteError{Step: "customer"}
	}
	if sess.Loan.Amount <= 0 || sess.Loan.TenorMonths <= 0 {
		return &IncompleteError{Step: "loan"}
	}
	return nil
}

// UploadDocument sends one document to the backend, implicitly ensuring the
// application first. Outcomes: success marks the document uploaded and clears
// any queue entry; the pending-approval signal marks it uploaded-but-queued;
// any other failure marks it errored without queueing.
func (o *Orchestrator) UploadDocument(ctx context.Context, credential, sessionID string, kind document.Kind) error {
	appID, err := o.EnsureApplication(ctx, credential, sessionID)
	if err != nil {
		return err
	}

	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	doc := sess.Document(kind)
	if doc == nil {
		return document.ErrNotFound
	}
	if !canUpload(doc) {
		return &NotUploadableError{Kind: kind, Status: doc.Status}
	}
	if len(doc.Content) == 0 {
		return fmt.Errorf("document %s has no content attached", kind)
	}

	doc.Status = document.StatusUploading
	if err := o.store.UpsertDocument(ctx, sessionID, doc); err != nil {
		return err
	}

	typeCode := document.TypeCode(kind)
	res, err := o.client.UploadDocument(ctx, credential, appID, typeCode, doc.Content)
	return o.applyUploadOutcome(ctx, sessionID, kind, typeCode, doc.Content, res, err)
}

// applyUploadOutcome re-reads the session before mutating: the document may
// have changed while the call was in flight.
func (o *Orchestrator) applyUploadOutcome(ctx context.Context, sessionID string, kind document.Kind, typeCode string, content []byte, res dom.UploadResult, callErr error) error {
	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	doc := sess.Document(kind)
	if doc == nil {
		return document.ErrNotFound
	}

	switch {
	case callErr != nil:
		doc.Status = document.StatusError
		doc.ErrorMessage = callErr.Error()
		if err := o.store.UpsertDocument(ctx, sessionID, doc); err != nil {
			return err
		}
		return callErr

	case res.PendingApproval:
		doc.Status = document.StatusUploaded
		doc.PendingApproval = true
		doc.ErrorMessage = ""
		if err := o.store.UpsertDocument(ctx, sessionID, doc); err != nil {
			return err
		}
		entry := upload.PendingUploadEntry{
			Kind:           kind,
			TypeCode:       typeCode,
			EncodedContent: uploadqueue.Encode(content),
		}
		if err := o.queue.Put(ctx, sessionID, entry); err != nil {
			return err
		}
		o.logger.Info("upload deferred pending approval", "session", sessionID, "kind", kind)
		return nil

	default:
		doc.Status = document.StatusUploaded
		doc.PendingApproval = false
		doc.ErrorMessage = ""
		if err := o.store.UpsertDocument(ctx, sessionID, doc); err != nil {
			return err
		}
		if err := o.queue.Remove(ctx, sessionID, kind); err != nil {
			return err
		}
		o.logger.Info("document uploaded", "session", sessionID, "kind", kind, "document", res.DocumentID)
		return nil
	}
}

// UploadOutcome summarizes one document's fate during SubmitAll.
type UploadOutcome struct {
	Kind            document.Kind `json:"kind"`
	Status          document.Status `json:"status"`
	PendingApproval bool          `json:"pending_approval,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// SubmitAll ensures the application and uploads every upload-eligible
// document. Combined artifacts are uploaded instead of their merged-away
// parts. A single failing document does not stop the rest.
func (o *Orchestrator) SubmitAll(ctx context.Context, credential, sessionID string) ([]UploadOutcome, error) {
	if _, err := o.EnsureApplication(ctx, credential, sessionID); err != nil {
		return nil, err
	}

	sess, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	kinds := make([]document.Kind, 0, len(sess.Documents))
	for k, d := range sess.Documents {
		if d.Uploadable() {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	outcomes := make([]UploadOutcome, 0, len(kinds))
	for _, k := range kinds {
		uploadErr := o.UploadDocument(ctx, credential, sessionID, k)

		after, err := o.store.Get(ctx, sessionID)
		if err != nil {
			return outcomes, err
		}
		oc := UploadOutcome{Kind: k}
		if d := after.Document(k); d != nil {
			oc.Status = d.Status
			oc.PendingApproval = d.PendingApproval
		}
		if uploadErr != nil {
			oc.Error = uploadErr.Error()
		}
		outcomes = append(outcomes, oc)
	}
	return outcomes, nil
}

// DrainPendingUploads replays every queued entry once. User-triggered only:
// approval happens out of band, so polling on a timer would not shorten the
// wait. An entry leaves the queue if and only if its retry succeeds.
func (o *Orchestrator) DrainPendingUploads(ctx context.Context, credential, sessionID string) ([]UploadOutcome, error) {
	appID, err := o.EnsureApplication(ctx, credential, sessionID)
	if err != nil {
		return nil, err
	}

	entries, err := o.queue.Entries(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Kind < entries[j].Kind })

	outcomes := make([]UploadOutcome, 0, len(entries))
	for _, e := range entries {
		content, err := uploadqueue.Decode(e.EncodedContent)
		if err != nil {
			return outcomes, fmt.Errorf("decode queued %s: %w", e.Kind, err)
		}

		// An entry whose document has since been removed is orphaned.
		sess, err := o.store.Get(ctx, sessionID)
		if err != nil {
			return outcomes, err
		}
		if sess.Document(e.Kind) == nil {
			if err := o.queue.Remove(ctx, sessionID, e.Kind); err != nil {
				return outcomes, err
			}
			continue
		}

		res, callErr := o.client.UploadDocument(ctx, credential, appID, e.TypeCode, content)
		// Same outcome handling as a direct upload: success removes the
		// entry and marks the document uploaded, the pending-approval signal
		// keeps it queued, a hard failure marks the document errored and the
		// entry stays for another manual drain.
		applyErr := o.applyUploadOutcome(ctx, sessionID, e.Kind, e.TypeCode, content, res, callErr)

		oc := UploadOutcome{Kind: e.Kind}
		if after, err := o.store.Get(ctx, sessionID); err == nil {
			if d := after.Document(e.Kind); d != nil {
				oc.Status = d.Status
				oc.PendingApproval = d.PendingApproval
			}
		}
		if applyErr != nil {
			oc.Error = applyErr.Error()
			o.logger.Warn("queued upload retry failed", "session", sessionID, "kind", e.Kind, "error", applyErr)
		} else if !oc.PendingApproval {
			o.logger.Info("queued upload flushed", "session", sessionID, "kind", e.Kind)
		}
		outcomes = append(outcomes, oc)
	}
	return outcomes, nil
}
