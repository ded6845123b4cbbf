package tools

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
	"github.com/jarokaz/alphafold-sandbox/internal/msa"
)

// HHBlits searches one or more HH-suite databases. Its alignment is A3M and
// is never capped.
type HHBlits struct {
	// BinaryPath to the hhblits executable
	BinaryPath string

	// DatabasePaths are the database prefixes, each passed with -d
	DatabasePaths []string

	// NCPU is passed as -cpu
	NCPU int

	// NIter is the number of search iterations (-n)
	NIter int

	// EValue is the inclusion threshold (-e)
	EValue float64

	// MaxSeq caps the sequences passed the prefilter (-maxseq)
	MaxSeq int

	// RealignMax caps the hits realigned (-realign_max)
	RealignMax int

	// MaxFilt caps the hits passed the second prefilter (-maxfilt)
	MaxFilt int

	// MinPrefilterHits is the minimum number of prefilter hits (-min_prefilter_hits)
	MinPrefilterHits int

	// AllSeqs shows all sequences in the result alignment (-all)
	AllSeqs bool

	// Alt is the number of alternative alignments (-alt), 0 to leave unset
	Alt int

	// P is the minimum probability of a hit (-p), 20 is hhblits' own default
	P int

	// Z is the maximum number of lines in the summary hit list (-Z), 500 is hhblits' own default
	Z int

	logger *slog.Logger
}

// NewHHBlits creates an HHBlits runner with the default thresholds.
func NewHHBlits(binaryPath string, databasePaths []string, nCPU int) *HHBlits {
	return &HHBlits{
		BinaryPath:       binaryPath,
		DatabasePaths:    databasePaths,
		NCPU:             nCPU,
		NIter:            3,
		EValue:           0.001,
		MaxSeq:           1_000_000,
		RealignMax:       100_000,
		MaxFilt:          100_000,
		MinPrefilterHits: 1000,
		P:                20,
		Z:                500,
		logger:           slog.Default().With("component", "hhblits"),
	}
}

// Name returns "hhblits".
func (h *HHBlits) Name() string { return "hhblits" }

// Format returns msa.A3M.
func (h *HHBlits) Format() msa.Format { return msa.A3M }

// Query runs hhblits with the sequence in fastaPath. A row cap is an
// UnsupportedFormatError: A3M output is never truncated.
func (h *HHBlits) Query(ctx context.Context, fastaPath string, maxSequences int) (string, error) {
	if maxSequences > 0 {
		return "", perrors.UnsupportedFormat(h.Name(), "row cap %d requested but a3m output cannot be capped", maxSequences)
	}
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
	a3mPath := filepath.Join(dir, "output.a3m")

	if err := run(ctx, h.log(), h.Name(), h.BinaryPath, h.args(fastaPath, a3mPath)...); err != nil {
		return "", err
	}
	return readOutput(h.Name(), a3mPath)
}

func (h *HHBlits) args(fastaPath, a3mPath string) []string {
	args := []string{
		"-i", fastaPath,
		"-cpu", strconv.Itoa(h.NCPU),
		"-oa3m", a3mPath,
		"-o", "/dev/null",
		"-n", strconv.Itoa(h.NIter),
		"-e", formatFloat(h.EValue),
		"-maxseq", strconv.Itoa(h.MaxSeq),
		"-realign_max", strconv.Itoa(h.RealignMax),
		"-maxfilt", strconv.Itoa(h.MaxFilt),
		"-min_prefilter_hits", strconv.Itoa(h.MinPrefilterHits),
	}
	if h.AllSeqs {
		args = append(args, "-all")
	}
	if h.Alt > 0 {
		args = append(args, "-alt", strconv.Itoa(h.Alt))
	}
	if h.P != 20 {
		args = append(args, "-p", strconv.Itoa(h.P))
	}
	if h.Z != 500 {
		args = append(args, "-Z", strconv.Itoa(h.Z))
	}
	for _, db := range h.DatabasePaths {
		args = append(args, "-d", db)
	}
	return args
}

func (h *HHBlits) log() *slog.Logger {
	if h.logger == nil {
		return slog.Default().With("component", h.Name())
	}
	return h.logger
}
