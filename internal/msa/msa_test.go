package msa

import (
	"strings"
	"testing"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// four rows, the last one a duplicate of the second over the query columns
// and the only row with a residue in column 9
const testSto = `# STOCKHOLM 1.0

#=GS query                               DE query sequence
#=GS tr|A0A146SKV9|A0A146SKV9_FUNHE/1-9  DE Uncharacterized protein
#=GS sp|P0C2L1|A3X1_LOXLA/2-10           DE Toxin
#=GS UniRef90_Q9XYZ1/3-11                DE Duplicate

query                                MK-LVAT-A-G
tr|A0A146SKV9|A0A146SKV9_FUNHE/1-9   MKaLV-TkA-G
sp|P0C2L1|A3X1_LOXLA/2-10            MR-LVAT-A--
#=GR sp|P0C2L1|A3X1_LOXLA/2-10 PP    88.8888.8..
UniRef90_Q9XYZ1/3-11                 MK-LV-TgAyG
#=GC RF                              xx.xxxx.x.x
//
`

func TestParseStockholm(t *testing.T) {
	m, err := ParseStockholm(testSto)
	require.NoError(t, err)

	assert.Equal(t, []string{"MKLVATAG", "MKLV-TAG", "MRLVATA-", "MKLV-TAG"}, m.Sequences)
	assert.Equal(t, [][]int{
		{0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 1, 0, 0, 0, 1, 0},
		{0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0, 1, 1},
	}, m.DeletionMatrix)
	assert.Equal(t, []string{
		"query",
		"tr|A0A146SKV9|A0A146SKV9_FUNHE/1-9",
		"sp|P0C2L1|A3X1_LOXLA/2-10",
		"UniRef90_Q9XYZ1/3-11",
	}, m.Descriptions)
}

func TestParseStockholm_blocks(t *testing.T) {
	sto := "# STOCKHOLM 1.0\n\nq  MK\nh  M-\n\nq  -LV\nh  aLI\n//\n"

	m, err := ParseStockholm(sto)
	require.NoError(t, err)
	assert.Equal(t, []string{"MKLV", "M-LI"}, m.Sequences)
	assert.Equal(t, [][]int{{0, 0, 0, 0}, {0, 0, 1, 0}}, m.DeletionMatrix)
}

func TestParseStockholm_malformed(t *testing.T) {
	_, err := ParseStockholm("q MKL\nh MK\n")
	assert.ErrorIs(t, err, perrors.ErrMalformedInput)
}

func TestTruncateStockholm(t *testing.T) {
	truncated := TruncateStockholm(testSto, 2)

	m, err := ParseStockholm(truncated)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Contains(t, truncated, "# STOCKHOLM 1.0\n")
	assert.Contains(t, truncated, "#=GS tr|A0A146SKV9|A0A146SKV9_FUNHE/1-9  DE Uncharacterized protein\n")
	assert.NotContains(t, truncated, "LOXLA")
	assert.Contains(t, truncated, "#=GC RF")
	assert.True(t, strings.HasSuffix(truncated, "//\n"))

	assert.Equal(t, testSto, TruncateStockholm(testSto, 0))

	all, err := ParseStockholm(TruncateStockholm(testSto, 100))
	require.NoError(t, err)
	assert.Equal(t, 4, all.Len())
}

func TestDeduplicateStockholm(t *testing.T) {
	deduped, err := DeduplicateStockholm(testSto)
	require.NoError(t, err)

	m, err := ParseStockholm(deduped)
	require.NoError(t, err)
	assert.Equal(t, []string{"MKLVATAG", "MKLV-TAG", "MRLVATA-"}, m.Sequences)
	assert.NotContains(t, deduped, "UniRef90_Q9XYZ1")
	assert.NotContains(t, deduped, "#=GR")
	assert.Contains(t, deduped, "#=GS query")

	// idempotent
	again, err := DeduplicateStockholm(deduped)
	require.NoError(t, err)
	assert.Equal(t, deduped, again)

	_, err = DeduplicateStockholm("# STOCKHOLM 1.0\n\nquery MKV extra\n//\n")
	assert.ErrorIs(t, err, perrors.ErrMalformedInput)
}

func TestRemoveEmptyColumnsStockholm(t *testing.T) {
	deduped, err := DeduplicateStockholm(testSto)
	require.NoError(t, err)
	stripped := RemoveEmptyColumnsStockholm(deduped)

	var rf string
	for _, line := range strings.Split(stripped, "\n") {
		if strings.HasPrefix(line, "#=GC RF") {
			rf = lastField(line)
		}
	}
	assert.Equal(t, "xx.xxxx.xx", rf)

	m, err := ParseStockholm(stripped)
	require.NoError(t, err)
	assert.Equal(t, []string{"MKLVATAG", "MKLV-TAG", "MRLVATA-"}, m.Sequences)
	assert.Equal(t, [][]int{
		{0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 1, 0, 0, 0, 1, 0},
		{0, 0, 0, 0, 0, 0, 0, 0},
	}, m.DeletionMatrix)
}

func TestRemoveEmptyColumnsStockholm_noReference(t *testing.T) {
	stripped := RemoveEmptyColumnsStockholm("q  M-K\nh  M-R\n")
	assert.Equal(t, "q  MK\nh  MR", stripped)
}

func TestStockholmToA3M(t *testing.T) {
	deduped, err := DeduplicateStockholm(testSto)
	require.NoError(t, err)
	a3m := StockholmToA3M(RemoveEmptyColumnsStockholm(deduped), A3MOptions{})

	want := ">query query sequence\nMKLVATAG\n" +
		">tr|A0A146SKV9|A0A146SKV9_FUNHE/1-9 Uncharacterized protein\nMKaLV-TkAG\n" +
		">sp|P0C2L1|A3X1_LOXLA/2-10 Toxin\nMRLVATA-\n"
	assert.Equal(t, want, a3m)

	fromA3M, err := ParseA3M(a3m)
	require.NoError(t, err)
	fromSto, err := ParseStockholm(testSto)
	require.NoError(t, err)
	assert.Equal(t, fromSto.Sequences[:3], fromA3M.Sequences)
	assert.Equal(t, fromSto.DeletionMatrix[:3], fromA3M.DeletionMatrix)
}

func TestStockholmToA3M_options(t *testing.T) {
	a3m := StockholmToA3M(testSto, A3MOptions{MaxSequences: 1, KeepFirstRowGaps: true})
	assert.Equal(t, ">query query sequence\nMK-LVAT-A-G\n", a3m)
}

func TestParseA3M(t *testing.T) {
	m, err := ParseA3M(">q desc\nMKLV\n\n>h1\nMKaaL-\n>h2\nM-LVk\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"MKLV", "MKL-", "M-LV"}, m.Sequences)
	assert.Equal(t, [][]int{{0, 0, 0, 0}, {0, 0, 2, 0}, {0, 0, 0, 0}}, m.DeletionMatrix)
	assert.Equal(t, []string{"q desc", "h1", "h2"}, m.Descriptions)
}

func TestParseFASTA_malformed(t *testing.T) {
	_, _, err := ParseFASTA("MKLV\n>q\nMK\n")
	assert.ErrorIs(t, err, perrors.ErrMalformedInput)
}

func TestA3MToStockholm(t *testing.T) {
	a3m := ">q query\nMKLV\n>h1 hit one\nMKaaL-\n>h1 hit again\nMcK-Vd\n"

	sto, err := A3MToStockholm(a3m)
	require.NoError(t, err)
	assert.Contains(t, sto, "#=GS h1 DE hit one\n")
	assert.Contains(t, sto, "#=GS h1_2 DE hit again\n")

	fromSto, err := ParseStockholm(sto)
	require.NoError(t, err)
	fromA3M, err := ParseA3M(a3m)
	require.NoError(t, err)
	assert.Equal(t, fromA3M.Sequences, fromSto.Sequences)
	assert.Equal(t, fromA3M.DeletionMatrix, fromSto.DeletionMatrix)

	_, err = A3MToStockholm(">q\nMKLV\n>h\nMK\n")
	assert.ErrorIs(t, err, perrors.ErrMalformedInput)
}

func TestMsa_roundTrip(t *testing.T) {
	tests := []struct {
		name string
		msa  *Msa
	}{
		{
			"query only",
			&Msa{
				Sequences:      []string{"MKLV"},
				DeletionMatrix: [][]int{{0, 0, 0, 0}},
				Descriptions:   []string{"query"},
			},
		},
		{
			"deletions and gaps",
			&Msa{
				Sequences:      []string{"MKLVA", "M-LVA", "AKL-A", "MKLVA"},
				DeletionMatrix: [][]int{{0, 0, 0, 0, 0}, {0, 3, 0, 1, 0}, {2, 0, 0, 0, 0}, {0, 0, 0, 0, 5}},
				Descriptions:   []string{"query", "tr|A0A146SKV9|A0A146SKV9_FUNHE/1-9 x", "", "tr|A0A146SKV9|A0A146SKV9_FUNHE/1-9 y"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a3m, err := tt.msa.A3M()
			require.NoError(t, err)
			fromA3M, err := ParseA3M(a3m)
			require.NoError(t, err)
			assert.Equal(t, tt.msa.Sequences, fromA3M.Sequences)
			assert.Equal(t, tt.msa.DeletionMatrix, fromA3M.DeletionMatrix)

			sto, err := tt.msa.Stockholm()
			require.NoError(t, err)
			fromSto, err := ParseStockholm(sto)
			require.NoError(t, err)
			assert.Equal(t, tt.msa.Sequences, fromSto.Sequences)
			assert.Equal(t, tt.msa.DeletionMatrix, fromSto.DeletionMatrix)
		})
	}
}

func TestMsa_unencodable(t *testing.T) {
	lowercase := &Msa{
		Sequences:      []string{"MkV", "MAV"},
		DeletionMatrix: [][]int{{0, 0, 0}, {0, 0, 0}},
		Descriptions:   []string{"query", "hit"},
	}
	_, err := lowercase.A3M()
	assert.ErrorIs(t, err, perrors.ErrMalformedInput)
	_, err = lowercase.Stockholm()
	assert.ErrorIs(t, err, perrors.ErrMalformedInput)

	queryGap := &Msa{
		Sequences:      []string{"M-KV", "MAKV"},
		DeletionMatrix: [][]int{{0, 0, 0, 0}, {0, 0, 0, 0}},
		Descriptions:   []string{"query", "hit"},
	}
	_, err = queryGap.Stockholm()
	assert.ErrorIs(t, err, perrors.ErrMalformedInput)

	// A3M keeps query gaps as aligned columns
	a3m, err := queryGap.A3M()
	require.NoError(t, err)
	back, err := ParseA3M(a3m)
	require.NoError(t, err)
	assert.Equal(t, queryGap.Sequences, back.Sequences)
	assert.Equal(t, queryGap.DeletionMatrix, back.DeletionMatrix)
}

func TestConvert(t *testing.T) {
	same, err := Convert("x", A3M, A3M)
	require.NoError(t, err)
	assert.Equal(t, "x", same)

	_, err = Convert("x", A3M, Format("hhr"))
	assert.ErrorIs(t, err, perrors.ErrUnsupportedFormat)
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("/out/uniref90_hits.sto")
	require.NoError(t, err)
	assert.Equal(t, Stockholm, f)

	f, err = FormatFromPath("bfd_uniclust_hits.a3m")
	require.NoError(t, err)
	assert.Equal(t, A3M, f)

	_, err = FormatFromPath("pdb_hits.hhr")
	assert.ErrorIs(t, err, perrors.ErrMalformedInput)
}

func TestGetIdentifiers(t *testing.T) {
	tests := []struct {
		description string
		want        Identifiers
	}{
		{"tr|A0A146SKV9|A0A146SKV9_FUNHE/1-9", Identifiers{"A0A146SKV9", "FUNHE"}},
		{"sp|P0C2L1|A3X1_LOXLA Toxin", Identifiers{"P0C2L1", "LOXLA"}},
		{"tr|A0A0B4J2F0_1|A0A0B4J2F0_HUMAN_12", Identifiers{"A0A0B4J2F0", "HUMAN"}},
		{"UniRef90_Q9XYZ1/3-11", Identifiers{}},
		{"query", Identifiers{}},
		{"   ", Identifiers{}},
		{"", Identifiers{}},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, GetIdentifiers(tt.description))
		})
	}
}
