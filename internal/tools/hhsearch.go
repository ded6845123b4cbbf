package tools

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
	"github.com/jarokaz/alphafold-sandbox/internal/msa"
	"github.com/jarokaz/alphafold-sandbox/internal/templates"
)

// HHSearch searches HH-suite template databases (ex: pdb70) with an A3M
// alignment and reports hits in .hhr format.
type HHSearch struct {
	// BinaryPath to the hhsearch executable
	BinaryPath string

	// DatabasePaths are the database prefixes, each passed with -d
	DatabasePaths []string

	// MaxSeq caps the sequences passed the prefilter (-maxseq)
	MaxSeq int

	logger *slog.Logger
}

// NewHHSearch creates an HHSearch template searcher.
func NewHHSearch(binaryPath string, databasePaths []string) *HHSearch {
	return &HHSearch{
		BinaryPath:    binaryPath,
		DatabasePaths: databasePaths,
		MaxSeq:        1_000_000,
		logger:        slog.Default().With("component", "hhsearch"),
	}
}

// Name returns "hhsearch".
func (h *HHSearch) Name() string { return "hhsearch" }

// InputFormat returns msa.A3M.
func (h *HHSearch) InputFormat() msa.Format { return msa.A3M }

// OutputFormat returns "hhr".
func (h *HHSearch) OutputFormat() string { return "hhr" }

// Query runs hhsearch with an A3M alignment.
func (h *HHSearch) Query(ctx context.Context, a3m string) (string, error) {
	for _, db := range h.DatabasePaths {
		if err := checkDatabase(h.Name(), db, true); err != nil {
			return "", err
		}
	}

	dir, cleanup, err := tempDir(h.Name())
	if err != nil {
		return "", err
	}
	defer cleanup()

	inPath := filepath.Join(dir, "query.a3m")
	hhrPath := filepath.Join(dir, "output.hhr")
	if err := os.WriteFile(inPath, []byte(a3m), 0o644); err != nil {
		return "", perrors.ToolExecution(h.Name(), err, "failed to write input")
	}

	args := []string{
		"-i", inPath,
		"-o", hhrPath,
		"-maxseq", strconv.Itoa(h.MaxSeq),
	}
	for _, db := range h.DatabasePaths {
		args = append(args, "-d", db)
	}

	logger := h.logger
	if logger == nil {
		logger = slog.Default().With("component", h.Name())
	}
	if err := run(ctx, logger, h.Name(), h.BinaryPath, args...); err != nil {
		return "", err
	}
	return readOutput(h.Name(), hhrPath)
}

// TemplateHits parses the hits of an .hhr report.
func (h *HHSearch) TemplateHits(output, _ string) ([]templates.Hit, error) {
	return templates.ParseHHR(output)
}
