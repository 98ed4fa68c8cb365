// Package merge combines a completed group of verified document parts into a
// single PDF artifact. Image parts become raster pages, PDF parts are merged
// in, and anything that cannot be rendered is represented by a labeled
// placeholder page with the original bytes preserved as a file attachment.
package merge

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"loan-intake-service/internal/domain/document"
	"loan-intake-service/internal/domain/session"
	"loan-intake-service/internal/usecase/precheck"
)

type Engine struct {
	store  session.Store
	logger *slog.Logger
}

func NewEngine(store session.Store, logger *slog.Logger) *Engine {
	// Keep pdfcpu from reading/writing a user-level config directory.
	api.DisableConfigDir()
	return &Engine{store: store, logger: logger}
}

var _ precheck.MergeTrigger = (*Engine)(nil)

// DocumentChanged checks every merge group for completion. Idempotent: a
// group whose combined artifact already exists and still reflects its members
// is skipped, so concurrent or repeated triggers cannot produce two
// artifacts. A replaced member invalidates the stale artifact first, then the
// group regenerates from current content once every member is verified again.
func (e *Engine) DocumentChanged(ctx context.Context, sessionID string) {
	for _, g := range document.MergeGroups {
		e.invalidateIfStale(ctx, sessionID, g)
		if err := e.tryMerge(ctx, sessionID, g); err != nil {
			// Merge failure is deliberately non-fatal: the parts stay
			// verified and upload individually.
			e.logger.Warn("merge failed, keeping parts",
				"session", sessionID, "target", g.Target, "error", err)
		}
	}
}

// invalidateIfStale drops a combined artifact whose group has a replaced
// member. Every member of a completed group is `merged`; a member back in any
// other state was re-attached after the merge, so the artifact no longer
// reflects the group's content. Surviving merged members revert to verified,
// the same as when a member is removed.
func (e *Engine) invalidateIfStale(ctx context.Context, sessionID string, g document.MergeGroup) {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return
	}
	if sess.Document(g.Target) == nil {
		return
	}
	stale := false
	for _, m := range g.Members {
		if d := sess.Document(m); d != nil && d.Status != document.StatusMerged {
			stale = true
			break
		}
	}
	if !stale {
		return
	}
	if err := e.store.RemoveDocument(ctx, sessionID, g.Target); err != nil {
		e.logger.Error("invalidate stale combined artifact", "session", sessionID, "target", g.Target, "error", err)
		return
	}
	for _, m := range g.Members {
		if d := sess.Document(m); d != nil && d.Status == document.StatusMerged {
			d.Status = document.StatusVerified
			_ = e.store.UpsertDocument(ctx, sessionID, d)
		}
	}
	e.logger.Info("stale combined artifact invalidated", "session", sessionID, "target", g.Target)
}

// DocumentRemoved invalidates the combined artifact when a group member
// disappears, flipping the surviving parts back to verified so the artifact
// can be regenerated once the group completes again.
func (e *Engine) DocumentRemoved(ctx context.Context, sessionID string, kind document.Kind) {
	g, ok := document.GroupFor(kind)
	if !ok || g.Target == kind {
		return
	}
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return
	}
	if sess.Document(g.Target) == nil {
		return
	}
	if err := e.store.RemoveDocument(ctx, sessionID, g.Target); err != nil {
		e.logger.Error("invalidate combined artifact", "session", sessionID, "target", g.Target, "error", err)
		return
	}
	for _, m := range g.Members {
		if d := sess.Document(m); d != nil && d.Status == document.StatusMerged {
			d.Status = document.StatusVerified
			_ = e.store.UpsertDocument(ctx, sessionID, d)
		}
	}
	e.logger.Info("combined artifact invalidated", "session", sessionID, "target", g.Target, "removed", kind)
}

func (e *Engine) tryMerge(ctx context.Context, sessionID string, g document.MergeGroup) error {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Document(g.Target) != nil {
		return nil
	}
	parts := make([]*document.Document, 0, len(g.Members))
	for _, m := range g.Members {
		d := sess.Document(m)
		if d == nil || d.Status != document.StatusVerified {
			return nil
		}
		parts = append(parts, d)
	}

	content, err := buildArtifact(parts)
	if err != nil {
		return err
	}

	combined := &document.Document{
		Kind:        g.Target,
		Status:      document.StatusVerified,
		Content:     content,
		Fingerprint: precheck.Fingerprint(content),
		SizeBytes:   int64(len(content)),
		MimeType:    "application/pdf",
		AttachedAt:  time.Now().UTC(),
		VerificationNotes: []string{
			fmt.Sprintf("combined from %d verified parts", len(parts)),
		},
	}
	if err := e.store.UpsertDocument(ctx, sessionID, combined); err != nil {
		return err
	}
	for _, p := range parts {
		p.Status = document.StatusMerged
		if err := e.store.UpsertDocument(ctx, sessionID, p); err != nil {
			return err
		}
	}
	e.logger.Info("combined artifact created",
		"session", sessionID, "target", g.Target, "parts", len(parts), "size", combined.SizeBytes)
	return nil
}

// buildArtifact renders each part to a single-page (or multi-page, for PDFs)
// file in a scratch directory and merges them in member order.
func buildArtifact(parts []*document.Document) ([]byte, error) {
	dir, err := os.MkdirTemp("", "doc-merge-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pageFiles := make([]string, len(parts))
	attachSlots := make([]string, len(parts))

	var eg errgroup.Group
	for i, p := range parts {
		eg.Go(func() error {
			pagePDF := filepath.Join(dir, fmt.Sprintf("part-%d.pdf", i))
			att, err := renderPart(dir, i, p, pagePDF)
			if err != nil {
				return fmt.Errorf("render %s: %w", p.Kind, err)
			}
			pageFiles[i] = pagePDF
			attachSlots[i] = att
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var attachments []string
	for _, att := range attachSlots {
		if att != "" {
			attachments = append(attachments, att)
		}
	}

	outFile := filepath.Join(dir, "combined.pdf")
	if err := api.MergeCreateFile(pageFiles, outFile, false, nil); err != nil {
		return nil, fmt.Errorf("merge pages: %w", err)
	}

	if len(attachments) > 0 {
		if err := api.AddAttachmentsFile(outFile, "", attachments, false, nil); err != nil {
			return nil, fmt.Errorf("attach originals: %w", err)
		}
	}

	return os.ReadFile(outFile)
}

// renderPart produces a one-part PDF at pagePDF. It returns a non-empty path
// when the original bytes must additionally be preserved as an attachment
// (the placeholder case).
func renderPart(dir string, idx int, p *document.Document, pagePDF string) (string, error) {
	switch p.MimeType {
	case "image/png", "image/jpeg":
		ext := ".png"
		if p.MimeType == "image/jpeg" {
			ext = ".jpg"
		}
		img := filepath.Join(dir, fmt.Sprintf("part-%d%s", idx, ext))
		if err := os.WriteFile(img, p.Content, 0o600); err != nil {
			return "", err
		}
		if err := api.ImportImagesFile([]string{img}, pagePDF, nil, nil); err != nil {
			return "", fmt.Errorf("import image: %w", err)
		}
		return "", nil

	case "application/pdf":
		if err := os.WriteFile(pagePDF, p.Content, 0o600); err != nil {
			return "", err
		}
		// A corrupt part degrades to a placeholder rather than sinking the
		// whole merge.
		if err := api.ValidateFile(pagePDF, nil); err == nil {
			return "", nil
		}
		fallthrough

	default:
		att := filepath.Join(dir, fmt.Sprintf("original-%s", p.Kind))
		if err := os.WriteFile(att, p.Content, 0o600); err != nil {
			return "", err
		}
		if err := placeholderPage(dir, idx, string(p.Kind), pagePDF); err != nil {
			return "", err
		}
		return att, nil
	}
}

// placeholderPage builds a blank page stamped with the part's label.
func placeholderPage(dir string, idx int, label, pagePDF string) error {
	blank := filepath.Join(dir, fmt.Sprintf("blank-%d.png", idx))
	img := image.NewRGBA(image.Rect(0, 0, 794, 1123))
	for x := 0; x < 794; x++ {
		for y := 0; y < 1123; y++ {
			img.Set(x, y, color.White)
		}
	}
	f, err := os.Create(blank)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// ImportImagesFile appends when the output exists; drop any earlier
	// (corrupt) render first.
	_ = os.Remove(pagePDF)
	if err := api.ImportImagesFile([]string{blank}, pagePDF, nil, nil); err != nil {
		return fmt.Errorf("import placeholder: %w", err)
	}
	wm := fmt.Sprintf("attachment: %s", label)
	if err := api.AddTextWatermarksFile(pagePDF, "", nil, true, wm, "points:18, pos:c, fillc:#404040", nil); err != nil {
		return fmt.Errorf("stamp placeholder: %w", err)
	}
	return nil
}
