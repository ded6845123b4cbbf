// Package msa parses, transforms and re-encodes multiple sequence alignments
// in the Stockholm and A3M text formats.
package msa

import (
	"path/filepath"
	"strings"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
)

// Format is an alignment text encoding.
type Format string

const (
	// Stockholm is the row-oriented format written by jackhmmer and hmmsearch
	Stockholm Format = "sto"

	// A3M is the compact FASTA-like format with lowercase insertions written by hhblits
	A3M Format = "a3m"
)

// FormatFromPath returns the alignment format named by a file's extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	switch Format(ext) {
	case Stockholm, A3M:
		return Format(ext), nil
	}
	return "", perrors.MalformedInput("msa format", "unsupported alignment file extension %q in %s", ext, path)
}

// Msa is a parsed multiple sequence alignment. The first row is the query.
type Msa struct {
	// Sequences are the aligned rows, insertions relative to the query removed
	Sequences []string

	// DeletionMatrix counts, per row and per query column, the residues
	// deleted (inserted relative to the query) before that column
	DeletionMatrix [][]int

	// Descriptions are the row names/descriptions
	Descriptions []string
}

// Len returns the number of rows.
func (m *Msa) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Sequences)
}

// Truncate returns a new Msa with at most n rows.
func (m *Msa) Truncate(n int) *Msa {
	if n > m.Len() {
		n = m.Len()
	}
	return &Msa{
		Sequences:      m.Sequences[:n:n],
		DeletionMatrix: m.DeletionMatrix[:n:n],
		Descriptions:   m.Descriptions[:n:n],
	}
}

// isGap is true for both gap symbols used in alignments.
func isGap(b byte) bool {
	return b == '-' || b == '.'
}

// isLower is true for ASCII lowercase letters, which mark A3M insertions.
func isLower(b byte) bool {
	return b >= 'a' && b <= 'z'
}

// isAlignmentLine is true for Stockholm lines holding aligned residues.
func isAlignmentLine(line string) bool {
	return strings.TrimSpace(line) != "" && !strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "//")
}
