package templates

import (
	"regexp"
	"strconv"
	"strings"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
)

var (
	// hhrSummary is the statistics line under a hit's name
	hhrSummary = regexp.MustCompile(`Probab=(\S+)\s+E-value=(\S+)\s+Score=(\S+)\s+Aligned_cols=(\S+)\s+Identities=(\S+)%\s+Similarity=(\S+)\s+Sum_probs=(\S+)\s+Template_Neff=(\S+)`)

	// hhrQueryLine is a query alignment line from column 17 on: start, residues, end, length
	hhrQueryLine = regexp.MustCompile(`^[\t ]*([0-9]*) ([A-Z-]*)[\t ]*([0-9]*) \([0-9]*\)`)

	// hhrTemplateLine is a template alignment line from column 17 on
	hhrTemplateLine = regexp.MustCompile(`^[\t ]*([0-9]*) ([A-Z-]*)[\t ]*[0-9]* \([0-9]*\)`)
)

// hhrColumn is where the alignment of Q and T lines starts.
const hhrColumn = 17

// ParseHHR parses the hits of an HHsearch/HHblits ".hhr" report. Each hit
// block starts at a "No <n>" line.
func ParseHHR(hhr string) ([]Hit, error) {
	lines := strings.Split(hhr, "\n")

	var starts []int
	for i, line := range lines {
		if strings.HasPrefix(line, "No ") {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return nil, nil
	}
	starts = append(starts, len(lines))

	hits := make([]Hit, 0, len(starts)-1)
	for i := 0; i < len(starts)-1; i++ {
		hit, err := parseHHRHit(lines[starts[i]:starts[i+1]])
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func parseHHRHit(block []string) (Hit, error) {
	const op = "parse hhr"
	if len(block) < 3 {
		return Hit{}, perrors.MalformedInput(op, "truncated hit block %q", block[0])
	}

	fields := strings.Fields(block[0])
	index, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return Hit{}, perrors.MalformedInput(op, "bad hit number in %q", block[0])
	}

	hit := Hit{
		Index: index,
		Name:  strings.TrimPrefix(strings.TrimRight(block[1], "\r"), ">"),
	}

	summary := hhrSummary.FindStringSubmatch(block[2])
	if summary == nil {
		return Hit{}, perrors.MalformedInput(op, "could not parse the hit summary of hit %d: %q", index, block[2])
	}
	alignedCols, err := strconv.ParseFloat(summary[4], 64)
	if err != nil {
		return Hit{}, perrors.MalformedInput(op, "bad Aligned_cols in hit %d: %q", index, summary[4])
	}
	hit.AlignedCols = int(alignedCols)
	if hit.SumProbs, err = strconv.ParseFloat(summary[7], 64); err != nil {
		return Hit{}, perrors.MalformedInput(op, "bad Sum_probs in hit %d: %q", index, summary[7])
	}

	var query, target strings.Builder
	blockLen := -1
	for _, line := range block[3:] {
		line = strings.TrimRight(line, "\r")
		switch {
		case isHHRAlignmentLine(line, "Q "):
			groups, err := hhrGroups(hhrQueryLine, line, index)
			if err != nil {
				return Hit{}, err
			}
			start, _ := strconv.Atoi(groups[1])
			end, _ := strconv.Atoi(groups[3])
			delta := groups[2]

			blockLen = end - (start - 1) + strings.Count(delta, "-")
			if blockLen != len(delta) {
				return Hit{}, perrors.MalformedInput(op, "query segment of hit %d spans %d columns but has %d", index, blockLen, len(delta))
			}
			query.WriteString(delta)
			hit.IndicesQuery = appendIndices(hit.IndicesQuery, delta, start-1)

		case isHHRAlignmentLine(line, "T "):
			groups, err := hhrGroups(hhrTemplateLine, line, index)
			if err != nil {
				return Hit{}, err
			}
			start, _ := strconv.Atoi(groups[1])
			delta := groups[2]

			if blockLen != len(delta) {
				return Hit{}, perrors.MalformedInput(op, "template segment of hit %d has %d columns, query has %d", index, len(delta), blockLen)
			}
			target.WriteString(delta)
			hit.IndicesHit = appendIndices(hit.IndicesHit, delta, start-1)
		}
	}

	hit.Query = query.String()
	hit.HitSequence = target.String()
	hit.AlignedResidues = hit.HitSequence
	return hit, nil
}

// isHHRAlignmentLine is true for the residue lines of a Q or T block, not
// their secondary structure or consensus annotations.
func isHHRAlignmentLine(line, prefix string) bool {
	if !strings.HasPrefix(line, prefix) {
		return false
	}
	for _, annotation := range []string{"ss_dssp", "ss_pred", "Consensus"} {
		if strings.HasPrefix(line, prefix+annotation) {
			return false
		}
	}
	return true
}

func hhrGroups(pattern *regexp.Regexp, line string, index int) ([]string, error) {
	if len(line) < hhrColumn {
		return nil, perrors.MalformedInput("parse hhr", "short alignment line in hit %d: %q", index, line)
	}
	groups := pattern.FindStringSubmatch(line[hhrColumn:])
	if groups == nil || groups[1] == "" {
		return nil, perrors.MalformedInput("parse hhr", "could not parse alignment line in hit %d: %q", index, line)
	}
	return groups, nil
}
