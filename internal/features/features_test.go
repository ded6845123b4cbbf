package features

import (
	"testing"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
	"github.com/jarokaz/alphafold-sandbox/internal/msa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMsa(seqs ...string) *msa.Msa {
	m := &msa.Msa{}
	for _, s := range seqs {
		m.Sequences = append(m.Sequences, s)
		m.DeletionMatrix = append(m.DeletionMatrix, make([]int, len(s)))
		m.Descriptions = append(m.Descriptions, "")
	}
	return m
}

func TestSequenceFeatures(t *testing.T) {
	f := SequenceFeatures("ARX", "query protein")

	require.Equal(t, []int{3, NumRestypesWithX}, f["aatype"].Shape)
	onehot := func(i int) []int32 {
		return f["aatype"].Int32[i*NumRestypesWithX : (i+1)*NumRestypesWithX]
	}
	assert.Equal(t, int32(1), onehot(0)[0])
	assert.Equal(t, int32(1), onehot(1)[1])
	assert.Equal(t, int32(1), onehot(2)[20])

	assert.Equal(t, []int32{0, 1, 2}, f["residue_index"].Int32)
	assert.Equal(t, []int32{3, 3, 3}, f["seq_length"].Int32)
	assert.Equal(t, []int32{0, 0, 0}, f["between_segment_residues"].Int32)
	assert.Equal(t, []string{"query protein"}, f["domain_name"].Object)
	assert.Equal(t, []string{"ARX"}, f["sequence"].Object)
}

func TestSequenceFeatures_alphabetSafety(t *testing.T) {
	tests := []struct {
		name     string
		sequence string
		want     []int
	}{
		{"standard", "MKV", []int{12, 11, 19}},
		{"lowercase", "mkv", []int{12, 11, 19}},
		{"ambiguity codes", "BZJUO", []int{20, 20, 20, 20, 20}},
		{"symbols", "*-.1 ", []int{20, 20, 20, 20, 20}},
		{"non-ascii", "\xff\x00", []int{20, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := SequenceFeatures(tt.sequence, "")
			aatype := f["aatype"]
			require.Equal(t, []int{len(tt.sequence), NumRestypesWithX}, aatype.Shape)

			for i, want := range tt.want {
				row := aatype.Int32[i*NumRestypesWithX : (i+1)*NumRestypesWithX]
				var sum int32
				for _, v := range row {
					sum += v
				}
				assert.Equal(t, int32(1), sum, "residue %d is not one-hot", i)
				assert.Equal(t, int32(1), row[want], "residue %d", i)
			}
		})
	}
}

func TestMSAFeatures(t *testing.T) {
	a := newMsa("ACD", "AC-")
	a.DeletionMatrix[1] = []int{0, 2, 0}
	a.Descriptions = []string{"query", "tr|A0A146SKV9|A0A146SKV9_FUNHE/1-9"}

	f, err := MSAFeatures(a)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3}, f["msa"].Shape)
	assert.Equal(t, []int32{0, 1, 2, 0, 1, 21}, f["msa"].Int32)
	assert.Equal(t, []int32{0, 0, 0, 0, 2, 0}, f["deletion_matrix_int"].Int32)
	assert.Equal(t, []int32{2, 2, 2}, f["num_alignments"].Int32)
	assert.Equal(t, []string{"", "A0A146SKV9"}, f["msa_uniprot_accession_identifiers"].Object)
	assert.Equal(t, []string{"", "FUNHE"}, f["msa_species_identifiers"].Object)
}

func TestMSAFeatures_crossDeduplication(t *testing.T) {
	x, y, z := "MKV", "MRV", "MK-"

	f, err := MSAFeatures(newMsa(x, y), newMsa(y, z))
	require.NoError(t, err)

	assert.Equal(t, []int{3, 3}, f["msa"].Shape)
	assert.Equal(t, []int32{
		10, 8, 17,
		10, 14, 17,
		10, 8, 21,
	}, f["msa"].Int32)
	assert.Equal(t, []int32{3, 3, 3}, f["num_alignments"].Int32)
	assert.Len(t, f["msa_species_identifiers"].Object, 3)
}

func TestMSAFeatures_residueIDs(t *testing.T) {
	f, err := MSAFeatures(newMsa("BJOUXZ-*a"))
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 20, 20, 1, 20, 3, 21, 20, 20}, f["msa"].Int32)
}

func TestMSAFeatures_errors(t *testing.T) {
	tests := []struct {
		name string
		msas []*msa.Msa
		want error
	}{
		{"no msas", nil, perrors.ErrEmptyAlignment},
		{"empty msa", []*msa.Msa{newMsa("MKV"), newMsa()}, perrors.ErrEmptyAlignment},
		{"nil msa", []*msa.Msa{nil}, perrors.ErrEmptyAlignment},
		{"length mismatch", []*msa.Msa{newMsa("MKV"), newMsa("MK")}, perrors.ErrMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MSAFeatures(tt.msas...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMerge(t *testing.T) {
	seq := SequenceFeatures("MKV", "q")
	m, err := MSAFeatures(newMsa("MKV"))
	require.NoError(t, err)
	tmpl := Dict{"template_sum_probs": NewFloat32(0, 1)}

	merged, err := Merge(seq, m, tmpl)
	require.NoError(t, err)
	assert.Len(t, merged, len(seq)+len(m)+len(tmpl))
	assert.Same(t, seq["aatype"], merged["aatype"])

	_, err = Merge(seq, Dict{"aatype": NewInt32(1)})
	assert.ErrorIs(t, err, perrors.ErrAssemblyConflict)
}

func TestArray(t *testing.T) {
	a := NewFloat32(2, 37, 3)
	assert.Equal(t, 222, a.Size())
	assert.Len(t, a.Float32, 222)
	assert.Equal(t, "(2, 37, 3)", a.ShapeString())
	assert.Equal(t, 37, a.Dim(1))
	assert.Equal(t, 0, a.Dim(3))

	empty := NewObject()
	assert.Equal(t, []int{0}, empty.Shape)
	assert.NotNil(t, empty.Object)
}
