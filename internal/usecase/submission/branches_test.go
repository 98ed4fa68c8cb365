package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBranch(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		province string
		want     string
	}{
		{
			name:     "exact match",
			declared: "Bandung Utara",
			want:     "Bandung Utara",
		},
		{
			name:     "case and spacing folded",
			declared: "  bandung   UTARA ",
			want:     "Bandung Utara",
		},
		{
			name:     "typo within fuzzy distance",
			declared: "Bandung Utra",
			want:     "Bandung Utara",
		},
		{
			name:     "transposed letters",
			declared: "Jaakrta Pusat",
			want:     "Jakarta Pusat",
		},
		{
			name:     "unmatchable name falls back to province default",
			declared: "Kantor Cabang Pembantu Cikutra",
			province: "Jawa Barat",
			want:     "Bandung Utara",
		},
		{
			name:     "empty name uses province default",
			declared: "",
			province: "DKI Jakarta",
			want:     "Jakarta Pusat",
		},
		{
			name:     "no match and unknown province resolves nothing",
			declared: "Cabang Antah Berantah",
			province: "Atlantis",
			want:     "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeBranch(tc.declared, tc.province))
		})
	}
}
