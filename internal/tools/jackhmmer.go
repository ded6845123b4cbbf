package tools

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/jarokaz/alphafold-sandbox/internal/msa"
)

// Jackhmmer iteratively searches one sequence database with a profile HMM.
// Its alignment is Stockholm.
type Jackhmmer struct {
	// BinaryPath to the jackhmmer executable
	BinaryPath string

	// DatabasePath is the FASTA database searched
	DatabasePath string

	// NCPU is passed as --cpu
	NCPU int

	// NIter is the number of search iterations (-N)
	NIter int

	// EValue is the reporting and inclusion threshold (-E, --incE)
	EValue float64

	// ZValue is the effective database size (-Z), 0 to let jackhmmer count
	ZValue int

	// DomEValue is the domain reporting and inclusion threshold (--domE,
	// --incdomE), 0 to leave unset
	DomEValue float64

	// F1, F2 and F3 are the MSV, Viterbi and forward filter thresholds
	F1, F2, F3 float64

	logger *slog.Logger
}

// NewJackhmmer creates a Jackhmmer runner with the default thresholds.
func NewJackhmmer(binaryPath, databasePath string, nCPU int) *Jackhmmer {
	return &Jackhmmer{
		BinaryPath:   binaryPath,
		DatabasePath: databasePath,
		NCPU:         nCPU,
		NIter:        1,
		EValue:       0.0001,
		F1:           0.0005,
		F2:           0.00005,
		F3:           0.0000005,
		logger:       slog.Default().With("component", "jackhmmer", "database", filepath.Base(databasePath)),
	}
}

// Name returns "jackhmmer".
func (j *Jackhmmer) Name() string { return "jackhmmer" }

// Format returns msa.Stockholm.
func (j *Jackhmmer) Format() msa.Format { return msa.Stockholm }

// Query runs jackhmmer with the sequence in fastaPath. maxSequences > 0
// truncates the alignment to its first rows.
func (j *Jackhmmer) Query(ctx context.Context, fastaPath string, maxSequences int) (string, error) {
	if err := checkDatabase(j.Name(), j.DatabasePath, false); err != nil {
		return "", err
	}

	dir, cleanup, err := tempDir(j.Name())
	if err != nil {
		return "", err
	}
	defer cleanup()
	stoPath := filepath.Join(dir, "output.sto")

	if err := run(ctx, j.log(), j.Name(), j.BinaryPath, j.args(fastaPath, stoPath)...); err != nil {
		return "", err
	}

	sto, err := readOutput(j.Name(), stoPath)
	if err != nil {
		return "", err
	}
	if maxSequences > 0 {
		sto = msa.TruncateStockholm(sto, maxSequences)
	}
	return sto, nil
}

func (j *Jackhmmer) args(fastaPath, stoPath string) []string {
	args := []string{
		// don't pollute stdout with jackhmmer output
		"-o", "/dev/null",
		"-A", stoPath,
		"--noali",
		"--F1", formatFloat(j.F1),
		"--F2", formatFloat(j.F2),
		"--F3", formatFloat(j.F3),
		"--incE", formatFloat(j.EValue),
		"-E", formatFloat(j.EValue),
		"--cpu", strconv.Itoa(j.NCPU),
		"-N", strconv.Itoa(j.NIter),
	}
	if j.DomEValue > 0 {
		args = append(args, "--domE", formatFloat(j.DomEValue), "--incdomE", formatFloat(j.DomEValue))
	}
	if j.ZValue > 0 {
		args = append(args, "-Z", strconv.Itoa(j.ZValue))
	}
	return append(args, fastaPath, j.DatabasePath)
}

func (j *Jackhmmer) log() *slog.Logger {
	if j.logger == nil {
		return slog.Default().With("component", j.Name())
	}
	return j.logger
}
