// Package templates parses template search reports into hits and turns
// hits into template features.
package templates

import (
	"regexp"
	"strings"
)

// Hit is one template found by a template search.
type Hit struct {
	// Index is the 1-based rank of the hit in the report
	Index int

	// Name is the hit identifier line, ex: "1abc_A mol:protein length:120  LYSOZYME"
	Name string

	// AlignedCols is the number of aligned (match) columns
	AlignedCols int

	// SumProbs is the sum of the posterior probabilities of the aligned
	// columns. Reports without it (hmmsearch) leave it zero.
	SumProbs float64

	// Query is the aligned query segment
	Query string

	// HitSequence is the aligned template segment, uppercase
	HitSequence string

	// IndicesQuery holds, per alignment column, the 0-based query residue
	// index or -1 for a gap
	IndicesQuery []int

	// IndicesHit holds, per alignment column, the 0-based template residue
	// index or -1 for a gap
	IndicesHit []int

	// AlignedResidues holds the template residue of each IndicesHit entry
	AlignedResidues string
}

// pdbIDPattern matches a PDB id and chain at the start of a hit name.
var pdbIDPattern = regexp.MustCompile(`^([a-zA-Z\d]{4})_([a-zA-Z0-9.]+)`)

// PDBID returns the lowercase PDB id and chain of the template, ex: "1abc", "A".
func (h Hit) PDBID() (id, chain string, ok bool) {
	m := pdbIDPattern.FindStringSubmatch(strings.TrimSpace(h.Name))
	if m == nil {
		return "", "", false
	}
	return strings.ToLower(m[1]), m[2], true
}

// appendIndices appends, per symbol, the residue index starting at start
// (or -1 for '-'). Lowercase symbols are insertions: they advance the index
// without a column of their own.
func appendIndices(indices []int, aligned string, start int) []int {
	counter := start
	for i := 0; i < len(aligned); i++ {
		switch c := aligned[i]; {
		case c == '-':
			indices = append(indices, -1)
		case c >= 'a' && c <= 'z':
			counter++
		default:
			indices = append(indices, counter)
			counter++
		}
	}
	return indices
}
