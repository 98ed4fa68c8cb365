// Package precheck validates candidate files, fingerprints them, and runs
// the bounded-time verification step that gates the merge and upload stages.
package precheck

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gabriel-vasile/mimetype"

	"loan-intake-service/internal/domain/document"
	"loan-intake-service/internal/domain/session"
)

const (
	// MaxDocumentBytes is the fixed size ceiling for a single attachment.
	MaxDocumentBytes = 8 << 20

	verifyBase    = 400 * time.Millisecond
	verifyPerMiB  = 300 * time.Millisecond
	verifyCeiling = 3 * time.Second
)

var allowedMime = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// MergeTrigger is notified after every document state change so the merge
// engine can check group completion. Kept as a small interface to avoid a
// cycle between precheck and merge.
type MergeTrigger interface {
	DocumentChanged(ctx context.Context, sessionID string)
	DocumentRemoved(ctx context.Context, sessionID string, kind document.Kind)
}

type Engine struct {
	store  session.Store
	clk    clock.Clock
	merge  MergeTrigger
	logger *slog.Logger

	mu     sync.Mutex
	timers map[string]*clock.Timer
}

func NewEngine(store session.Store, clk clock.Clock, merge MergeTrigger, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		clk:    clk,
		merge:  merge,
		logger: logger,
		timers: make(map[string]*clock.Timer),
	}
}

func timerKey(sessionID string, kind document.Kind) string {
	return sessionID + "/" + string(kind)
}

// Fingerprint returns the content hash used for cross-kind duplicate
// detection.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Attach runs the pre-check sequence for a candidate file and, on success,
// stores the document in `verifying` with a scheduled transition to
// `verified`. Checks run in order: MIME allowlist, size ceiling, fingerprint,
// cross-kind duplicate.
func (e *Engine) Attach(ctx context.Context, sessionID string, kind document.Kind, content []byte) (*document.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", document.ErrUnsupportedType, kind)
	}

	// Sniff the real type; the client-declared Content-Type is not trusted.
	// Parameters ("; charset=...") are stripped before the allowlist check.
	baseMime, _, _ := strings.Cut(mimetype.Detect(content).String(), ";")
	baseMime = strings.TrimSpace(baseMime)
	if !allowedMime[baseMime] {
		return nil, fmt.Errorf("%w: %s", document.ErrUnsupportedType, baseMime)
	}
	if int64(len(content)) > MaxDocumentBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", document.ErrTooLarge, len(content), int64(MaxDocumentBytes))
	}

	fp := Fingerprint(content)

	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for k, d := range sess.Documents {
		if k != kind && d.Fingerprint == fp {
			return nil, fmt.Errorf("%w: already attached as %s", document.ErrDuplicateDocument, k)
		}
	}

	doc := &document.Document{
		Kind:        kind,
		Status:      document.StatusVerifying,
		Content:     content,
		Fingerprint: fp,
		SizeBytes:   int64(len(content)),
		MimeType:    baseMime,
		AttachedAt:  time.Now().UTC(),
	}

	if kind.IsIdentity() {
		e.crossCheckIdentity(doc, sess.Customer.IdentityNumber)
	}

	if err := e.store.UpsertDocument(ctx, sessionID, doc); err != nil {
		return nil, err
	}

	e.schedule(sessionID, kind, verifyDuration(doc.SizeBytes))
	e.logger.Info("document attached",
		"session", sessionID, "kind", kind, "mime", baseMime, "size", doc.SizeBytes)
	return doc.Clone(), nil
}

// Remove deletes the document and cancels any in-flight verification timer so
// a deleted document cannot resurrect through a late callback. The merge
// engine is told afterwards so a dependent combined artifact gets
// invalidated.
func (e *Engine) Remove(ctx context.Context, sessionID string, kind document.Kind) error {
	e.cancel(sessionID, kind)
	if err := e.store.RemoveDocument(ctx, sessionID, kind); err != nil {
		return err
	}
	e.merge.DocumentRemoved(ctx, sessionID, kind)
	return nil
}

// verifyDuration scales with file size and is capped.
func verifyDuration(sizeBytes int64) time.Duration {
	d := verifyBase + time.Duration(sizeBytes>>20)*verifyPerMiB
	if d > verifyCeiling {
		return verifyCeiling
	}
	return d
}

func (e *Engine) schedule(sessionID string, kind document.Kind, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	k := timerKey(sessionID, kind)
	if t, ok := e.timers[k]; ok {
		t.Stop()
	}
	e.timers[k] = e.clk.AfterFunc(d, func() {
		e.completeVerification(sessionID, kind)
	})
}

func (e *Engine) cancel(sessionID string, kind document.Kind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	k := timerKey(sessionID, kind)
	if t, ok := e.timers[k]; ok {
		t.Stop()
		delete(e.timers, k)
	}
}

// completeVerification re-reads the session before acting: the document may
// have been removed or replaced while the timer was pending.
func (e *Engine) completeVerification(sessionID string, kind document.Kind) {
	ctx := context.Background()

	e.mu.Lock()
	delete(e.timers, timerKey(sessionID, kind))
	e.mu.Unlock()

	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return
	}
	doc := sess.Document(kind)
	if doc == nil || doc.Status != document.StatusVerifying {
		return
	}
	doc.Status = document.StatusVerified
	if err := e.store.UpsertDocument(ctx, sessionID, doc); err != nil {
		e.logger.Error("verification write failed", "session", sessionID, "kind", kind, "error", err)
		return
	}
	e.logger.Info("document verified", "session", sessionID, "kind", kind)
	e.merge.DocumentChanged(ctx, sessionID)
}
