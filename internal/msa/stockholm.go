package msa

import (
	"strings"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
)

// ParseStockholm parses a Stockholm alignment into an Msa.
//
// Columns where the first (query) row has a gap are treated as insertions:
// they are dropped from every aligned row and counted in the deletion matrix
// against the next query column.
func ParseStockholm(sto string) (*Msa, error) {
	names, seqs, err := stockholmRows(sto)
	if err != nil {
		return nil, err
	}

	m := &Msa{
		Sequences:      make([]string, 0, len(names)),
		DeletionMatrix: make([][]int, 0, len(names)),
		Descriptions:   names,
	}

	var query string
	var keep []int
	for i, name := range names {
		seq := seqs[name]
		if i == 0 {
			query = seq
			for c := 0; c < len(query); c++ {
				if !isGap(query[c]) {
					keep = append(keep, c)
				}
			}
		}
		if len(seq) != len(query) {
			return nil, perrors.MalformedInput("parse stockholm", "row %s has %d columns, query has %d", name, len(seq), len(query))
		}

		aligned := make([]byte, len(keep))
		for k, c := range keep {
			aligned[k] = seq[c]
			if aligned[k] == '.' {
				aligned[k] = '-'
			}
		}

		deletions := make([]int, 0, len(keep))
		count := 0
		for c := 0; c < len(seq); c++ {
			if isGap(seq[c]) && isGap(query[c]) {
				continue
			}
			if isGap(query[c]) {
				count++
			} else {
				deletions = append(deletions, count)
				count = 0
			}
		}

		m.Sequences = append(m.Sequences, string(aligned))
		m.DeletionMatrix = append(m.DeletionMatrix, deletions)
	}
	return m, nil
}

// stockholmRows concatenates the blocks of each named row, in first-seen order.
func stockholmRows(sto string) (names []string, seqs map[string]string, err error) {
	seqs = make(map[string]string)
	for _, line := range splitLines(sto) {
		if !isAlignmentLine(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, nil, perrors.MalformedInput("parse stockholm", "expected a name and an aligned sequence, got %q", line)
		}
		name, aligned := fields[0], fields[1]
		if _, ok := seqs[name]; !ok {
			names = append(names, name)
		}
		seqs[name] += aligned
	}
	return names, seqs, nil
}

// TruncateStockholm keeps the first maxSequences rows of a Stockholm
// alignment along with the header, reference annotation, terminator and
// the #=GS lines of kept rows. Other markup is dropped. A maxSequences < 1
// returns the input unchanged.
func TruncateStockholm(sto string, maxSequences int) string {
	if maxSequences < 1 {
		return sto
	}

	names := make(map[string]bool)
	for _, line := range strings.SplitAfter(sto, "\n") {
		if !isAlignmentLine(line) {
			continue
		}
		names[rowName(line)] = true
		if len(names) >= maxSequences {
			break
		}
	}

	var b strings.Builder
	for _, line := range strings.SplitAfter(sto, "\n") {
		if keepLine(line, names) {
			b.WriteString(line)
		}
	}
	return b.String()
}

// DeduplicateStockholm drops rows whose aligned sequence, restricted to the
// query's non-gap columns, equals the one of an earlier row. The first
// occurrence (and its #=GS metadata) is kept in place. Malformed alignment
// rows are an error.
func DeduplicateStockholm(sto string) (string, error) {
	names, seqs, err := stockholmRows(sto)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return sto, nil
	}

	query := seqs[names[0]]
	seen := make(map[string]bool, len(names))
	kept := make(map[string]bool, len(names))
	for _, name := range names {
		masked := maskColumns(seqs[name], query)
		if seen[masked] {
			continue
		}
		seen[masked] = true
		kept[name] = true
	}

	var filtered []string
	for _, line := range splitLines(sto) {
		if keepLine(line, kept) {
			filtered = append(filtered, line)
		}
	}
	return strings.Join(filtered, "\n") + "\n", nil
}

// maskColumns keeps the characters of seq at the query's non-gap columns.
func maskColumns(seq, query string) string {
	var b strings.Builder
	for c := 0; c < len(query) && c < len(seq); c++ {
		if !isGap(query[c]) {
			b.WriteByte(seq[c])
		}
	}
	return b.String()
}

// RemoveEmptyColumnsStockholm removes columns that are gaps in every row.
//
// Each alignment block ends at its "#=GC RF" reference annotation, which is
// masked alongside the rows. A trailing block without a reference line is
// masked on its rows alone. A block made only of empty columns is replaced
// by empty lines.
func RemoveEmptyColumnsStockholm(sto string) string {
	lines := splitLines(sto)
	out := make([]string, len(lines))

	var pending []int
	flush := func(reference int) {
		width := 0
		if reference >= 0 {
			width = len(lastField(lines[reference]))
		} else {
			for _, i := range pending {
				if w := len(lastField(lines[i])); w > width {
					width = w
				}
			}
		}

		mask := make([]bool, width)
		anyKept := false
		for j := 0; j < width; j++ {
			for _, i := range pending {
				aligned := lastField(lines[i])
				if j < len(aligned) && !isGap(aligned[j]) {
					mask[j] = true
					anyKept = true
					break
				}
			}
		}

		if reference >= 0 {
			pending = append(pending, reference)
		}
		for _, i := range pending {
			if !anyKept {
				out[i] = ""
				continue
			}
			prefix, aligned := splitLast(lines[i])
			out[i] = prefix + " " + compress(aligned, mask)
		}
		pending = pending[:0]
	}

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "#=GC RF"):
			flush(i)
		case isAlignmentLine(line):
			pending = append(pending, i)
		default:
			out[i] = line
		}
	}
	if len(pending) > 0 {
		flush(-1)
	}
	return strings.Join(out, "\n")
}

// compress keeps the characters of s whose mask entry is true.
func compress(s string, mask []bool) string {
	var b strings.Builder
	for j := 0; j < len(s) && j < len(mask); j++ {
		if mask[j] {
			b.WriteByte(s[j])
		}
	}
	return b.String()
}

// splitLast splits a line at its last space.
func splitLast(line string) (prefix, last string) {
	i := strings.LastIndexByte(line, ' ')
	if i < 0 {
		return "", line
	}
	return line[:i], line[i+1:]
}

// lastField is the text after the last space of a line.
func lastField(line string) string {
	_, last := splitLast(line)
	return last
}

// rowName is the name of an alignment line (its first field).
func rowName(line string) string {
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i]
	}
	return strings.TrimSpace(line)
}

// keepLine decides whether a Stockholm line survives row filtering.
func keepLine(line string, names map[string]bool) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return true
	case trimmed == "//":
		return true
	case strings.HasPrefix(line, "# STOCKHOLM"):
		return true
	case strings.HasPrefix(line, "#=GC RF"):
		return true
	case strings.HasPrefix(line, "#=GS"):
		fields := strings.Fields(line)
		return len(fields) > 1 && names[fields[1]]
	case strings.HasPrefix(line, "#"):
		return false
	}
	return names[rowName(line)]
}

// splitLines splits text into lines without their terminators; a final
// newline does not produce an extra empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
