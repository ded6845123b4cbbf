package tools

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
	"github.com/jarokaz/alphafold-sandbox/internal/msa"
	"github.com/jarokaz/alphafold-sandbox/internal/templates"
)

// Hmmbuild builds profile HMMs from alignments.
type Hmmbuild struct {
	// BinaryPath to the hmmbuild executable
	BinaryPath string

	logger *slog.Logger
}

// NewHmmbuild creates an Hmmbuild.
func NewHmmbuild(binaryPath string) *Hmmbuild {
	return &Hmmbuild{
		BinaryPath: binaryPath,
		logger:     slog.Default().With("component", "hmmbuild"),
	}
}

// BuildFromStockholm builds a profile whose match columns are the reference
// annotation (#=GC RF) of the alignment.
func (h *Hmmbuild) BuildFromStockholm(ctx context.Context, sto string) (string, error) {
	if !strings.Contains(sto, "#=GC RF") {
		return "", perrors.MalformedInput("hmmbuild", "stockholm alignment has no #=GC RF reference annotation")
	}
	return h.build(ctx, sto, true)
}

// BuildFromA3M builds a profile from an A3M alignment, its insertions
// removed, letting hmmbuild pick the match columns.
func (h *Hmmbuild) BuildFromA3M(ctx context.Context, a3m string) (string, error) {
	var b strings.Builder
	for _, line := range strings.Split(a3m, "\n") {
		if !strings.HasPrefix(line, ">") {
			line = strings.Map(func(r rune) rune {
				if r >= 'a' && r <= 'z' {
					return -1
				}
				return r
			}, line)
		}
		b.WriteString(line + "\n")
	}
	return h.build(ctx, b.String(), false)
}

func (h *Hmmbuild) build(ctx context.Context, alignment string, hand bool) (string, error) {
	dir, cleanup, err := tempDir("hmmbuild")
	if err != nil {
		return "", err
	}
	defer cleanup()

	inPath := filepath.Join(dir, "query.msa")
	hmmPath := filepath.Join(dir, "output.hmm")
	if err := os.WriteFile(inPath, []byte(alignment), 0o644); err != nil {
		return "", perrors.ToolExecution("hmmbuild", err, "failed to write input")
	}

	var args []string
	if hand {
		args = append(args, "--hand")
	}
	args = append(args, "--amino", hmmPath, inPath)

	logger := h.logger
	if logger == nil {
		logger = slog.Default().With("component", "hmmbuild")
	}
	if err := run(ctx, logger, "hmmbuild", h.BinaryPath, args...); err != nil {
		return "", err
	}
	return readOutput("hmmbuild", hmmPath)
}

// Hmmsearch searches a sequence database (ex: pdb_seqres.txt) with a profile
// built from an MSA and reports hits as a Stockholm alignment.
type Hmmsearch struct {
	// BinaryPath to the hmmsearch executable
	BinaryPath string

	// Hmmbuild builds the query profile
	Hmmbuild *Hmmbuild

	// DatabasePath is the FASTA database searched
	DatabasePath string

	// Flags are the search options, defaults to DefaultHmmsearchFlags
	Flags []string

	logger *slog.Logger
}

// DefaultHmmsearchFlags are permissive thresholds: filtering is left to
// the template featurizer.
var DefaultHmmsearchFlags = []string{
	"--F1", "0.1",
	"--F2", "0.1",
	"--F3", "0.1",
	"--incE", "100",
	"-E", "100",
	"--domE", "100",
	"--incdomE", "100",
}

// NewHmmsearch creates an Hmmsearch template searcher.
func NewHmmsearch(binaryPath, hmmbuildPath, databasePath string, nCPU int) *Hmmsearch {
	flags := append([]string{"--cpu", strconv.Itoa(nCPU)}, DefaultHmmsearchFlags...)
	return &Hmmsearch{
		BinaryPath:   binaryPath,
		Hmmbuild:     NewHmmbuild(hmmbuildPath),
		DatabasePath: databasePath,
		Flags:        flags,
		logger:       slog.Default().With("component", "hmmsearch"),
	}
}

// Name returns "hmmsearch".
func (h *Hmmsearch) Name() string { return "hmmsearch" }

// InputFormat returns msa.Stockholm. A3M is accepted too.
func (h *Hmmsearch) InputFormat() msa.Format { return msa.Stockholm }

// OutputFormat returns "sto".
func (h *Hmmsearch) OutputFormat() string { return "sto" }

// Query builds a profile from the alignment and searches with it. A
// Stockholm alignment keeps its reference columns as match states; an A3M
// one is converted first.
func (h *Hmmsearch) Query(ctx context.Context, alignment string) (string, error) {
	var (
		hmm string
		err error
	)
	if strings.HasPrefix(strings.TrimSpace(alignment), "# STOCKHOLM") {
		hmm, err = h.Hmmbuild.BuildFromStockholm(ctx, alignment)
	} else {
		hmm, err = h.Hmmbuild.BuildFromA3M(ctx, alignment)
	}
	if err != nil {
		return "", err
	}
	return h.QueryWithHMM(ctx, hmm)
}

// QueryWithHMM searches the database with a profile HMM.
func (h *Hmmsearch) QueryWithHMM(ctx context.Context, hmm string) (string, error) {
	if err := checkDatabase(h.Name(), h.DatabasePath, false); err != nil {
		return "", err
	}

	dir, cleanup, err := tempDir(h.Name())
	if err != nil {
		return "", err
	}
	defer cleanup()

	hmmPath := filepath.Join(dir, "query.hmm")
	stoPath := filepath.Join(dir, "output.sto")
	if err := os.WriteFile(hmmPath, []byte(hmm), 0o644); err != nil {
		return "", perrors.ToolExecution(h.Name(), err, "failed to write the profile")
	}

	flags := h.Flags
	if flags == nil {
		flags = DefaultHmmsearchFlags
	}
	args := append([]string{"--noali"}, flags...)
	args = append(args, "-A", stoPath, hmmPath, h.DatabasePath)

	logger := h.logger
	if logger == nil {
		logger = slog.Default().With("component", h.Name())
	}
	if err := run(ctx, logger, h.Name(), h.BinaryPath, args...); err != nil {
		return "", err
	}
	return readOutput(h.Name(), stoPath)
}

// TemplateHits parses the protein hits of an hmmsearch alignment against
// the query sequence.
func (h *Hmmsearch) TemplateHits(output, querySequence string) ([]templates.Hit, error) {
	a3m := msa.StockholmToA3M(output, msa.A3MOptions{KeepFirstRowGaps: true})
	return templates.ParseHmmsearchA3M(querySequence, a3m, false)
}
