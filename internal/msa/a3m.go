package msa

import (
	"fmt"
	"strings"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
)

// ParseFASTA splits FASTA (or A3M) text into sequences and their
// descriptions (the header line without '>'). Blank lines are skipped.
func ParseFASTA(text string) (seqs []string, descs []string, err error) {
	var b []*strings.Builder
	for _, line := range splitLines(text) {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, ">"):
			descs = append(descs, line[1:])
			b = append(b, &strings.Builder{})
		case line == "":
			continue
		case len(b) == 0:
			return nil, nil, perrors.MalformedInput("parse fasta", "sequence data before the first header: %q", line)
		default:
			b[len(b)-1].WriteString(line)
		}
	}

	seqs = make([]string, len(b))
	for i := range b {
		seqs[i] = b[i].String()
	}
	return seqs, descs, nil
}

// ParseA3M parses A3M text into an Msa. Lowercase residues are insertions
// relative to the query: they are removed from the aligned rows and counted
// in the deletion matrix against the next aligned column.
func ParseA3M(a3m string) (*Msa, error) {
	seqs, descs, err := ParseFASTA(a3m)
	if err != nil {
		return nil, err
	}

	m := &Msa{
		Sequences:      make([]string, len(seqs)),
		DeletionMatrix: make([][]int, len(seqs)),
		Descriptions:   descs,
	}
	for i, s := range seqs {
		aligned := make([]byte, 0, len(s))
		deletions := make([]int, 0, len(s))
		count := 0
		for j := 0; j < len(s); j++ {
			if isLower(s[j]) {
				count++
				continue
			}
			aligned = append(aligned, s[j])
			deletions = append(deletions, count)
			count = 0
		}
		m.Sequences[i] = string(aligned)
		m.DeletionMatrix[i] = deletions
	}
	return m, nil
}

// A3MOptions tune the Stockholm to A3M conversion.
type A3MOptions struct {
	// MaxSequences caps the number of rows converted, 0 for all
	MaxSequences int

	// KeepFirstRowGaps keeps every column (only '.' padding is removed)
	// instead of turning the query's gap columns into lowercase insertions
	KeepFirstRowGaps bool
}

// StockholmToA3M re-encodes a Stockholm alignment as A3M. Row order and
// #=GS DE descriptions are kept.
func StockholmToA3M(sto string, opts A3MOptions) string {
	var names []string
	seqs := make(map[string]string)
	for _, line := range splitLines(sto) {
		if !isAlignmentLine(line) {
			continue
		}
		fields := strings.SplitN(strings.TrimSpace(line), " ", 2)
		if len(fields) != 2 {
			continue
		}
		name, aligned := fields[0], strings.TrimSpace(fields[1])
		if _, ok := seqs[name]; !ok {
			if opts.MaxSequences > 0 && len(names) >= opts.MaxSequences {
				continue
			}
			names = append(names, name)
		}
		seqs[name] += aligned
	}

	descs := make(map[string]string)
	for _, line := range splitLines(sto) {
		if !strings.HasPrefix(line, "#=GS") {
			continue
		}
		fields := strings.SplitN(strings.Join(strings.Fields(line), " "), " ", 4)
		if len(fields) < 3 || fields[2] != "DE" {
			continue
		}
		if _, ok := seqs[fields[1]]; !ok {
			continue
		}
		if len(fields) == 4 {
			descs[fields[1]] = fields[3]
		} else {
			descs[fields[1]] = ""
		}
		if len(descs) == len(names) {
			break
		}
	}

	var query string
	if len(names) > 0 {
		query = seqs[names[0]]
	}

	var b strings.Builder
	for _, name := range names {
		b.WriteString(">" + name)
		if d := descs[name]; d != "" {
			b.WriteString(" " + d)
		}
		b.WriteByte('\n')
		if opts.KeepFirstRowGaps {
			b.WriteString(strings.ReplaceAll(seqs[name], ".", ""))
		} else {
			b.WriteString(stockholmRowToA3M(seqs[name], query))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// stockholmRowToA3M keeps the row's residues in query columns and turns its
// residues in query gap columns into lowercase insertions.
func stockholmRowToA3M(row, query string) string {
	var b strings.Builder
	for c := 0; c < len(row) && c < len(query); c++ {
		switch {
		case !isGap(query[c]):
			if row[c] == '.' {
				b.WriteByte('-')
			} else {
				b.WriteByte(row[c])
			}
		case !isGap(row[c]):
			b.WriteString(strings.ToLower(row[c : c+1]))
		}
	}
	return b.String()
}

// A3MToStockholm re-encodes A3M text as a Stockholm alignment. Each run of
// lowercase insertions becomes a block of insert columns, gap-padded in the
// rows (including the query) that insert fewer residues there.
func A3MToStockholm(a3m string) (string, error) {
	seqs, descs, err := ParseFASTA(a3m)
	if err != nil {
		return "", err
	}
	if len(seqs) == 0 {
		return "# STOCKHOLM 1.0\n//\n", nil
	}

	// per row: matched residues and the insertion run before each of them,
	// plus a trailing run after the last one
	type row struct {
		match   []byte
		inserts []string
	}
	rows := make([]row, len(seqs))
	for i, s := range seqs {
		var r row
		start := 0
		for j := 0; j < len(s); j++ {
			if isLower(s[j]) {
				continue
			}
			r.inserts = append(r.inserts, s[start:j])
			r.match = append(r.match, s[j])
			start = j + 1
		}
		r.inserts = append(r.inserts, s[start:])
		if i > 0 && len(r.match) != len(rows[0].match) {
			return "", perrors.MalformedInput("a3m to stockholm", "row %d has %d aligned columns, query has %d", i, len(r.match), len(rows[0].match))
		}
		rows[i] = r
	}

	width := make([]int, len(rows[0].inserts))
	for _, r := range rows {
		for j, ins := range r.inserts {
			if len(ins) > width[j] {
				width[j] = len(ins)
			}
		}
	}

	names := stockholmNames(descs)
	nameWidth := len("#=GC RF")
	for _, n := range names {
		if len(n) > nameWidth {
			nameWidth = len(n)
		}
	}

	var b strings.Builder
	b.WriteString("# STOCKHOLM 1.0\n\n")
	for i, n := range names {
		if _, rest := splitDescription(descs[i]); rest != "" {
			fmt.Fprintf(&b, "#=GS %s DE %s\n", n, rest)
		}
	}
	b.WriteByte('\n')

	for i, r := range rows {
		fmt.Fprintf(&b, "%-*s ", nameWidth, names[i])
		for j := range width {
			b.WriteString(r.inserts[j])
			b.WriteString(strings.Repeat("-", width[j]-len(r.inserts[j])))
			if j < len(r.match) {
				b.WriteByte(r.match[j])
			}
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "%-*s ", nameWidth, "#=GC RF")
	for j := range width {
		b.WriteString(strings.Repeat(".", width[j]))
		if j < len(rows[0].match) {
			b.WriteByte('x')
		}
	}
	b.WriteString("\n//\n")
	return b.String(), nil
}

// stockholmNames turns descriptions into unique single-token row names.
func stockholmNames(descs []string) []string {
	names := make([]string, len(descs))
	seen := make(map[string]bool, len(descs))
	for i, d := range descs {
		name, _ := splitDescription(d)
		if name == "" {
			name = "seq"
		}
		if seen[name] {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

// splitDescription splits a description at its first whitespace.
func splitDescription(desc string) (name, rest string) {
	fields := strings.SplitN(strings.TrimSpace(desc), " ", 2)
	name = fields[0]
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}
	return name, rest
}

// Convert re-encodes alignment text from one format to another.
func Convert(text string, from, to Format) (string, error) {
	switch {
	case from == to:
		return text, nil
	case from == Stockholm && to == A3M:
		return StockholmToA3M(text, A3MOptions{}), nil
	case from == A3M && to == Stockholm:
		return A3MToStockholm(text)
	}
	return "", perrors.UnsupportedFormat("convert msa", "cannot convert %q to %q", from, to)
}

// A3M encodes the Msa as A3M text. Deleted residues, whose identity the Msa
// does not keep, are written as lowercase 'x'. Lowercase residues in
// Sequences would read back as insertions and are rejected.
func (m *Msa) A3M() (string, error) {
	var b strings.Builder
	for i, s := range m.Sequences {
		for j := 0; j < len(s); j++ {
			if isLower(s[j]) {
				return "", perrors.MalformedInput("encode a3m", "row %d has lowercase residue %q at column %d", i, s[j], j)
			}
		}

		b.WriteString(">" + m.Descriptions[i] + "\n")
		for j := 0; j < len(s); j++ {
			if j < len(m.DeletionMatrix[i]) {
				b.WriteString(strings.Repeat("x", m.DeletionMatrix[i][j]))
			}
			b.WriteByte(s[j])
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Stockholm encodes the Msa as Stockholm text. Deleted residues are written
// as lowercase 'x' in insert columns. Gaps in the query row would read back
// as insert columns and are rejected.
func (m *Msa) Stockholm() (string, error) {
	if m.Len() > 0 {
		if c := strings.IndexAny(m.Sequences[0], "-."); c >= 0 {
			return "", perrors.MalformedInput("encode stockholm", "query row has a gap at column %d", c)
		}
	}
	a3m, err := m.A3M()
	if err != nil {
		return "", err
	}
	return A3MToStockholm(a3m)
}
