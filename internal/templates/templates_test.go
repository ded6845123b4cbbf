package templates

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQuery = "MKVLATAGIKLQ"

func readHHR(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "pdb_hits.hhr"))
	require.NoError(t, err)
	return string(data)
}

func TestParseHHR(t *testing.T) {
	hits, err := ParseHHR(readHHR(t))
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, Hit{
		Index:           1,
		Name:            "1abc_A Lysozyme; hydrolase",
		AlignedCols:     10,
		SumProbs:        9.5,
		Query:           "MKVLA-TAGIKL",
		HitSequence:     "MKVLYQTA-IKL",
		IndicesQuery:    []int{0, 1, 2, 3, 4, -1, 5, 6, 7, 8, 9, 10},
		IndicesHit:      []int{2, 3, 4, 5, 6, 7, 8, 9, -1, 10, 11, 12},
		AlignedResidues: "MKVLYQTA-IKL",
	}, hits[0])

	assert.Equal(t, 2, hits[1].Index)
	assert.Equal(t, 6, hits[1].AlignedCols)
	assert.Equal(t, 12.0, hits[1].SumProbs)
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7}, hits[1].IndicesQuery)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, hits[1].IndicesHit)
}

func TestParseHHR_errors(t *testing.T) {
	tests := []struct {
		name string
		hhr  string
	}{
		{"bad summary", "No 1\n>1abc_A\nProbab=high\n"},
		{"truncated", "No 1\n>1abc_A\n"},
		{"short alignment line", "No 1\n>1abc_A\n" + strings.Split(readHHR(t), "\n")[14] + "\nQ query 1 MK\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHHR(tt.hhr)
			assert.ErrorIs(t, err, perrors.ErrMalformedInput)
		})
	}

	hits, err := ParseHHR("Query query\nNo_of_seqs 1\n")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

const testHmmsearchA3M = `>1abc_A/3-14 mol:protein length:40  LYSOZYME
MKVLyqATAG-IKL
>5dna_B/1-10 mol:na length:10  DNA
ACGTACGTAC
>2xyz_B/5-15 mol:protein length:30  KINASE
--VLATAGIKLQ
`

func TestParseHmmsearchA3M(t *testing.T) {
	hits, err := ParseHmmsearchA3M(testQuery, testHmmsearchA3M, false)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, Hit{
		Index:           1,
		Name:            "1abc_A",
		AlignedCols:     11,
		Query:           testQuery,
		HitSequence:     "MKVLYQATAG-IKL",
		IndicesQuery:    []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		IndicesHit:      []int{2, 3, 4, 5, 8, 9, 10, 11, -1, 12, 13, 14},
		AlignedResidues: "MKVLATAG-IKL",
	}, hits[0])

	assert.Equal(t, 3, hits[1].Index)
	assert.Equal(t, "2xyz_B", hits[1].Name)
	assert.Equal(t, 10, hits[1].AlignedCols)
	assert.Equal(t, []int{-1, -1, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}, hits[1].IndicesHit)

	skipped, err := ParseHmmsearchA3M(testQuery, ">query\n"+testQuery+"\n"+testHmmsearchA3M, true)
	require.NoError(t, err)
	assert.Equal(t, hits, skipped)

	_, err = ParseHmmsearchA3M(testQuery, ">1ABC_A/1-5 mol:protein length:5\nMKVLA\n", false)
	assert.ErrorIs(t, err, perrors.ErrMalformedInput)
}

func TestHit_PDBID(t *testing.T) {
	tests := []struct {
		name      string
		wantID    string
		wantChain string
		wantOK    bool
	}{
		{"1ABC_A Lysozyme", "1abc", "A", true},
		{"7xyz_AA", "7xyz", "AA", true},
		{"UniRef90_Q9XYZ1", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, chain, ok := Hit{Name: tt.name}.PDBID()
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantChain, chain)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestHitFeaturizer_GetTemplates(t *testing.T) {
	hits, err := ParseHHR(readHHR(t))
	require.NoError(t, err)

	f := &HitFeaturizer{MaxHits: 20}
	res, err := f.GetTemplates(context.Background(), testQuery, hits)
	require.NoError(t, err)

	// 2xyz_B ranks first on sum_probs but is too short
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "2xyz_B")
	assert.Empty(t, res.Errors)

	feats := res.Features
	assert.Equal(t, []string{"1abc_A"}, feats["template_domain_names"].Object)
	assert.Equal(t, []string{"MKVLYTA-IKL-"}, feats["template_sequence"].Object)
	assert.Equal(t, []float32{9.5}, feats["template_sum_probs"].Float32)
	assert.Equal(t, []int{1, 12, NumTemplateResidueTypes}, feats["template_aatype"].Shape)
	assert.Equal(t, []int{1, 12, NumAtoms}, feats["template_all_atom_masks"].Shape)
	assert.Equal(t, []int{1, 12, NumAtoms, 3}, feats["template_all_atom_positions"].Shape)

	aatype := feats["template_aatype"].Float32
	assert.Equal(t, float32(1), aatype[0*NumTemplateResidueTypes+10]) // M
	assert.Equal(t, float32(1), aatype[7*NumTemplateResidueTypes+21]) // gap
}

func TestHitFeaturizer_filters(t *testing.T) {
	hit := Hit{
		Index:           1,
		Name:            "1abc_A",
		AlignedCols:     12,
		SumProbs:        10,
		HitSequence:     "MKVLYTAGIKLQ",
		IndicesQuery:    []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		IndicesHit:      []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		AlignedResidues: "MKVLYTAGIKLQ",
	}
	duplicate := hit
	duplicate.Name = "2dup_A"
	duplicate.HitSequence = testQuery
	lowCoverage := hit
	lowCoverage.Name = "3low_A"
	lowCoverage.AlignedCols = 1

	tests := []struct {
		name       string
		featurizer HitFeaturizer
		hits       []Hit
		want       []string
	}{
		{
			"kept",
			HitFeaturizer{},
			[]Hit{hit},
			[]string{"1abc_A"},
		},
		{
			"duplicate of the query",
			HitFeaturizer{},
			[]Hit{duplicate, hit},
			[]string{"1abc_A"},
		},
		{
			"align ratio",
			HitFeaturizer{},
			[]Hit{lowCoverage},
			[]string{},
		},
		{
			"released after the cutoff",
			HitFeaturizer{
				MaxTemplateDate: date("2020-05-14"),
				ReleaseDates:    map[string]time.Time{"1abc": date("2021-01-01")},
			},
			[]Hit{hit},
			[]string{},
		},
		{
			"released before the cutoff",
			HitFeaturizer{
				MaxTemplateDate: date("2020-05-14"),
				ReleaseDates:    map[string]time.Time{"1abc": date("1999-01-01")},
			},
			[]Hit{hit},
			[]string{"1abc_A"},
		},
		{
			"obsolete and replaced",
			HitFeaturizer{ObsoletePDBs: map[string]string{"1abc": "4new"}},
			[]Hit{hit},
			[]string{"4new_A"},
		},
		{
			"obsolete and withdrawn",
			HitFeaturizer{ObsoletePDBs: map[string]string{"1abc": ""}},
			[]Hit{hit},
			[]string{},
		},
		{
			"max hits",
			HitFeaturizer{MaxHits: 1},
			[]Hit{hit, hit},
			[]string{"1abc_A"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.featurizer.GetTemplates(context.Background(), testQuery, tt.hits)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Features["template_domain_names"].Object)
			assert.Equal(t, len(tt.want), res.Features["template_aatype"].Dim(0))
			assert.Equal(t, len(tt.want), res.Features["template_sum_probs"].Dim(0))
		})
	}
}

func TestHitFeaturizer_noHits(t *testing.T) {
	res, err := (&HitFeaturizer{}).GetTemplates(context.Background(), testQuery, nil)
	require.NoError(t, err)

	for _, k := range res.Features.Keys() {
		assert.Equal(t, 0, res.Features[k].Dim(0), k)
	}
	assert.Len(t, res.Features, 6)

	res, err = (&HitFeaturizer{}).GetTemplates(context.Background(), testQuery, []Hit{{Index: 1, Name: "no id"}})
	require.NoError(t, err)
	assert.Len(t, res.Errors, 1)
}

func TestParseObsoletePDBs(t *testing.T) {
	obsolete, err := ParseObsoletePDBs(strings.NewReader(`LIST OF OBSOLETE COORDINATE ENTRIES AND SUCCESSORS
OBSLTE    31-JUL-94 116L     216L
OBSLTE    26-SEP-06 2H33     2JM5 2OWI
OBSLTE    01-MAR-10 1XYZ
`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"116l": "216l", "2h33": "2jm5", "1xyz": ""}, obsolete)
}

func TestParseReleaseDates(t *testing.T) {
	dates, err := ParseReleaseDates(strings.NewReader("1ABC: 1999-01-01\n\n2xyz: 2021-06-30\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]time.Time{"1abc": date("1999-01-01"), "2xyz": date("2021-06-30")}, dates)

	_, err = ParseReleaseDates(strings.NewReader("1abc 1999\n"))
	assert.Error(t, err)
}
