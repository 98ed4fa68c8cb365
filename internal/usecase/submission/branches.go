package submission

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// validBranches is the fixed list accepted by the backend. Submission aborts
// rather than sending a name outside this list.
var validBranches = []string{
	"Jakarta Pusat",
	"Jakarta Selatan",
	"Bandung Utara",
	"Semarang Tengah",
	"Surabaya Timur",
	"Medan Kota",
	"Yogyakarta Kota",
	"Makassar Pesisir",
	"Denpasar Barat",
}

// provinceDefault is the fallback branch when the declared name cannot be
// matched against the valid list.
var provinceDefault = map[string]string{
	"dki jakarta":      "Jakarta Pusat",
	"jawa barat":       "Bandung Utara",
	"jawa tengah":      "Semarang Tengah",
	"jawa timur":       "Surabaya Timur",
	"sumatera utara":   "Medan Kota",
	"di yogyakarta":    "Yogyakarta Kota",
	"sulawesi selatan": "Makassar Pesisir",
	"bali":             "Denpasar Barat",
}

// maxBranchDistance bounds the fuzzy match; anything farther is treated as a
// different branch, not a typo.
const maxBranchDistance = 2

func foldBranch(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(v)), " ")
}

// NormalizeBranch resolves the declared branch name to a member of the valid
// list: exact match first, then a best-effort fuzzy match, then the
// province-derived default. Empty string means no valid branch could be
// resolved and submission must abort.
func NormalizeBranch(declared, province string) string {
	folded := foldBranch(declared)
	if folded != "" {
		best, bestDist := "", maxBranchDistance+1
		for _, candidate := range validBranches {
			d := levenshtein.ComputeDistance(folded, foldBranch(candidate))
			if d == 0 {
				return candidate
			}
			if d < bestDist {
				best, bestDist = candidate, d
			}
		}
		if best != "" {
			return best
		}
	}
	return provinceDefault[foldBranch(province)]
}
