package templates

import (
	"regexp"
	"strconv"
	"strings"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
	"github.com/jarokaz/alphafold-sandbox/internal/msa"
)

// hmmsearchDescription matches the row description of a pdb_seqres hit,
// ex: "1abc_A/12-130 mol:protein length:140  LYSOZYME"
var hmmsearchDescription = regexp.MustCompile(`^>?([a-z0-9]+)_(\w+)/([0-9]+)-([0-9]+).*protein length:([0-9]+) *.*$`)

// ParseHmmsearchA3M parses template hits from an A3M alignment of
// hmmsearch hits against pdb_seqres. Rows that aren't protein chains
// (no "mol:protein" in their description) are skipped. With skipFirst the
// first row (the query) is not a hit.
func ParseHmmsearchA3M(querySequence, a3m string, skipFirst bool) ([]Hit, error) {
	seqs, descs, err := msa.ParseFASTA(a3m)
	if err != nil {
		return nil, err
	}
	first := 0
	if skipFirst {
		first = 1
	}

	indicesQuery := appendIndices(nil, querySequence, 0)

	var hits []Hit
	for i := first; i < len(seqs); i++ {
		seq, desc := seqs[i], descs[i]
		if !strings.Contains(desc, "mol:protein") {
			continue
		}

		m := hmmsearchDescription.FindStringSubmatch(desc)
		if m == nil {
			return nil, perrors.MalformedInput("parse hmmsearch", "could not parse the description of hit %q", desc)
		}
		start, _ := strconv.Atoi(m[3])

		alignedCols := 0
		var aligned strings.Builder
		for j := 0; j < len(seq); j++ {
			c := seq[j]
			if c >= 'a' && c <= 'z' {
				continue
			}
			aligned.WriteByte(c)
			if c != '-' && c >= 'A' && c <= 'Z' {
				alignedCols++
			}
		}

		hits = append(hits, Hit{
			Index:           i - first + 1,
			Name:            m[1] + "_" + m[2],
			AlignedCols:     alignedCols,
			Query:           querySequence,
			HitSequence:     strings.ToUpper(seq),
			IndicesQuery:    indicesQuery,
			IndicesHit:      appendIndices(nil, seq, start-1),
			AlignedResidues: aligned.String(),
		})
	}
	return hits, nil
}
