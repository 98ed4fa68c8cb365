package precheck

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"loan-intake-service/internal/domain/document"
)

// Identity-number-shaped token: long digit run, possibly split by common
// separators as printed on identity cards.
var reIdentityToken = regexp.MustCompile(`\d[\d .\-]{10,24}\d`)

// crossCheckIdentity runs the optional text-extraction pass for identity
// documents. The result is advisory: it only appends verification notes and
// never blocks the document.
func (e *Engine) crossCheckIdentity(doc *document.Document, declared string) {
	if doc.MimeType != "application/pdf" {
		// No OCR for raster scans; nothing to cross-check.
		return
	}
	text, err := extractPDFText(doc.Content)
	if err != nil || strings.TrimSpace(text) == "" {
		doc.VerificationNotes = append(doc.VerificationNotes, "identity cross-check skipped: no extractable text")
		return
	}
	if len(text) > 200 {
		doc.ExtractedSnippet = text[:200]
	} else {
		doc.ExtractedSnippet = text
	}

	token := findIdentityToken(text)
	if token == "" {
		doc.VerificationNotes = append(doc.VerificationNotes, "identity cross-check: no identity-number-shaped token found")
		return
	}
	if declared == "" {
		doc.VerificationNotes = append(doc.VerificationNotes, "identity cross-check: no declared identity number to compare")
		return
	}
	if normalizeIdentity(token) == normalizeIdentity(declared) {
		doc.VerificationNotes = append(doc.VerificationNotes, "identity number matches declared value")
	} else {
		doc.VerificationNotes = append(doc.VerificationNotes, "identity number does not match declared value")
	}
}

func extractPDFText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, _ := page.GetPlainText(nil)
		b.WriteString(text)
	}
	return b.String(), nil
}

func findIdentityToken(text string) string {
	return reIdentityToken.FindString(text)
}

// normalizeIdentity strips separators and case-folds so formatting
// differences between the card and the form do not count as a mismatch.
func normalizeIdentity(v string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(v) {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
