package templates

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jarokaz/alphafold-sandbox/internal/features"
)

const (
	// NumTemplateResidueTypes is the depth of template_aatype: 20 residues, X and gap
	NumTemplateResidueTypes = 22

	// NumAtoms is the number of heavy atom slots per residue
	NumAtoms = 37

	// minAlignRatio is the aligned fraction of the query at or under which a hit is rejected
	minAlignRatio = 0.1

	// maxSubsequenceRatio is the length ratio above which a template contained in the query is a duplicate
	maxSubsequenceRatio = 0.95

	// minTemplateLength is the shortest usable template
	minTemplateLength = 10
)

// Result is the output of a Featurizer.
type Result struct {
	// Features are the template features, leading dimension the number of templates
	Features features.Dict

	// Errors are the reasons hits could not be used
	Errors []string

	// Warnings are the reasons hits were filtered out
	Warnings []string
}

// Featurizer turns template hits into template features.
type Featurizer interface {
	GetTemplates(ctx context.Context, querySequence string, hits []Hit) (*Result, error)
}

// HitFeaturizer builds template features from the hit alignments alone.
// Templates are ranked by sum_probs and filtered on alignment coverage,
// near-identity to the query, length and release date. Atom positions and
// masks are zero: no structure file is read.
type HitFeaturizer struct {
	// MaxHits is the maximum number of templates kept
	MaxHits int

	// MaxTemplateDate excludes templates released after it, zero for no cutoff
	MaxTemplateDate time.Time

	// ReleaseDates of PDB entries by lowercase id. Entries absent from it
	// are never excluded by date.
	ReleaseDates map[string]time.Time

	// ObsoletePDBs maps obsolete PDB ids to the ids that replaced them, or
	// to "" when the entry was withdrawn
	ObsoletePDBs map[string]string

	// Logger defaults to slog.Default()
	Logger *slog.Logger
}

// GetTemplates featurizes up to MaxHits usable hits.
func (f *HitFeaturizer) GetTemplates(ctx context.Context, querySequence string, hits []Hit) (*Result, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "template_featurizer")

	sorted := make([]Hit, len(hits))
	copy(sorted, hits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SumProbs > sorted[j].SumProbs })

	numRes := len(querySequence)
	result := &Result{}

	var (
		sequences []string
		names     []string
		sumProbs  []float32
	)
	for _, hit := range sorted {
		if f.MaxHits > 0 && len(names) >= f.MaxHits {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id, chain, ok := hit.PDBID()
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("hit %d: no PDB id in %q", hit.Index, hit.Name))
			continue
		}
		if replacement, obsolete := f.ObsoletePDBs[id]; obsolete {
			if replacement == "" {
				result.Warnings = append(result.Warnings, fmt.Sprintf("hit %d: %s is obsolete", hit.Index, id))
				continue
			}
			id = replacement
		}

		if reason := f.assess(querySequence, id, hit); reason != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("hit %d (%s_%s): %s", hit.Index, id, chain, reason))
			continue
		}

		sequences = append(sequences, templateSequence(hit, numRes))
		names = append(names, id+"_"+chain)
		sumProbs = append(sumProbs, float32(hit.SumProbs))
	}

	n := len(names)
	aatype := features.NewFloat32(n, numRes, NumTemplateResidueTypes)
	for i, seq := range sequences {
		for j := 0; j < numRes; j++ {
			aatype.Float32[(i*numRes+j)*NumTemplateResidueTypes+int(features.MSAResidueID(seq[j]))] = 1
		}
	}
	probs := features.NewFloat32(n, 1)
	copy(probs.Float32, sumProbs)

	result.Features = features.Dict{
		"template_aatype":             aatype,
		"template_all_atom_masks":     features.NewFloat32(n, numRes, NumAtoms),
		"template_all_atom_positions": features.NewFloat32(n, numRes, NumAtoms, 3),
		"template_domain_names":       features.NewObject(names...),
		"template_sequence":           features.NewObject(sequences...),
		"template_sum_probs":          probs,
	}

	logger.Info("featurized templates", "hits", len(hits), "templates", n, "errors", len(result.Errors), "warnings", len(result.Warnings))
	return result, nil
}

// assess returns why a hit is unusable, "" if it is usable.
func (f *HitFeaturizer) assess(querySequence, pdbID string, hit Hit) string {
	if released, ok := f.ReleaseDates[pdbID]; ok && !f.MaxTemplateDate.IsZero() && released.After(f.MaxTemplateDate) {
		return fmt.Sprintf("released %s, after the cutoff %s", released.Format(time.DateOnly), f.MaxTemplateDate.Format(time.DateOnly))
	}

	if len(querySequence) == 0 {
		return "empty query"
	}
	alignRatio := float64(hit.AlignedCols) / float64(len(querySequence))
	if alignRatio <= minAlignRatio {
		return fmt.Sprintf("align ratio %.3f too small", alignRatio)
	}

	template := strings.ReplaceAll(hit.HitSequence, "-", "")
	lengthRatio := float64(len(template)) / float64(len(querySequence))
	if strings.Contains(querySequence, template) && lengthRatio > maxSubsequenceRatio {
		return fmt.Sprintf("duplicate of the query, length ratio %.3f", lengthRatio)
	}

	if len(template) < minTemplateLength {
		return fmt.Sprintf("template too short (%d residues)", len(template))
	}
	return ""
}

// templateSequence is the template residue aligned to each query residue,
// '-' where nothing is aligned.
func templateSequence(hit Hit, numRes int) string {
	seq := []byte(strings.Repeat("-", numRes))
	for k, qi := range hit.IndicesQuery {
		if k >= len(hit.IndicesHit) || k >= len(hit.AlignedResidues) {
			break
		}
		if qi < 0 || qi >= numRes || hit.IndicesHit[k] < 0 {
			continue
		}
		seq[qi] = upper(hit.AlignedResidues[k])
	}
	return string(seq)
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// ParseObsoletePDBs reads a PDB obsolete.dat listing into a map of obsolete
// id to replacement id ("" when withdrawn without replacement).
func ParseObsoletePDBs(r io.Reader) (map[string]string, error) {
	obsolete := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		// OBSLTE    31-JUL-94 116L     216L
		if !strings.HasPrefix(line, "OBSLTE") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		from, to := strings.ToLower(fields[2]), ""
		if len(fields) > 3 {
			to = strings.ToLower(fields[3])
		}
		obsolete[from] = to
	}
	return obsolete, sc.Err()
}

// ParseReleaseDates reads "pdb_id: YYYY-MM-DD" lines into a map of
// lowercase id to release date.
func ParseReleaseDates(r io.Reader) (map[string]time.Time, error) {
	dates := make(map[string]time.Time)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		id, date, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("bad release date line %q", line)
		}
		t, err := time.Parse(time.DateOnly, strings.TrimSpace(date))
		if err != nil {
			return nil, fmt.Errorf("bad release date line %q: %w", line, err)
		}
		dates[strings.ToLower(strings.TrimSpace(id))] = t
	}
	return dates, sc.Err()
}
