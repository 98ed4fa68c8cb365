// Package uploadqueue persists documents whose upload was deferred by the
// pending-approval signal until a user-triggered drain replays them.
package uploadqueue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"loan-intake-service/internal/domain/document"
	"loan-intake-service/internal/domain/kv"
	"loan-intake-service/internal/domain/upload"
)

type Queue struct{ store kv.Store }

func New(store kv.Store) *Queue { return &Queue{store: store} }

var _ upload.Queue = (*Queue)(nil)

func key(sessionID string, kind document.Kind) string {
	return "pending:" + sessionID + ":" + string(kind)
}

func prefix(sessionID string) string { return "pending:" + sessionID + ":" }

// Put stores or replaces the entry for the kind. One entry per kind: a later
// attempt supersedes an earlier one.
func (q *Queue) Put(ctx context.Context, sessionID string, e upload.PendingUploadEntry) error {
	if e.QueuedAt.IsZero() {
		e.QueuedAt = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode pending upload: %w", err)
	}
	return q.store.Set(ctx, key(sessionID, e.Kind), b)
}

func (q *Queue) Remove(ctx context.Context, sessionID string, kind document.Kind) error {
	return q.store.Remove(ctx, key(sessionID, kind))
}

func (q *Queue) Entries(ctx context.Context, sessionID string) ([]upload.PendingUploadEntry, error) {
	keys, err := q.store.Keys(ctx, prefix(sessionID))
	if err != nil {
		return nil, err
	}
	out := make([]upload.PendingUploadEntry, 0, len(keys))
	for _, k := range keys {
		b, err := q.store.Get(ctx, k)
		if err == kv.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		var e upload.PendingUploadEntry
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("decode pending upload %q: %w", k, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (q *Queue) Clear(ctx context.Context, sessionID string) error {
	keys, err := q.store.Keys(ctx, prefix(sessionID))
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := q.store.Remove(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Encode prepares raw content for durable storage.
func Encode(content []byte) string {
	return base64.StdEncoding.EncodeToString(content)
}

// Decode restores the raw bytes of a queued entry.
func Decode(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}
