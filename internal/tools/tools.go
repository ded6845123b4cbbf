// Package tools runs the external sequence and template search binaries
// (HMMER and HH-suite) and returns their raw output.
package tools

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
	"github.com/jarokaz/alphafold-sandbox/internal/msa"
	"github.com/jarokaz/alphafold-sandbox/internal/templates"
)

// MSARunner searches sequence databases with a single-sequence query.
type MSARunner interface {
	// Name of the tool, ex: "jackhmmer"
	Name() string

	// Format of the alignment returned by Query
	Format() msa.Format

	// Query searches with the sequence in fastaPath and returns the raw
	// alignment. maxSequences > 0 caps the number of alignment rows.
	Query(ctx context.Context, fastaPath string, maxSequences int) (string, error)
}

// TemplateSearcher searches a structure database with an MSA.
type TemplateSearcher interface {
	// Name of the tool, ex: "hhsearch"
	Name() string

	// InputFormat is the MSA format Query expects
	InputFormat() msa.Format

	// OutputFormat is the extension of the raw report, ex: "hhr"
	OutputFormat() string

	// Query searches with an MSA and returns the raw hit report.
	Query(ctx context.Context, msaText string) (string, error)

	// TemplateHits parses the hits of a raw report.
	TemplateHits(output, querySequence string) ([]templates.Hit, error)
}

// stderrTail is how much of a failed tool's output goes into its error.
const stderrTail = 2000

// run executes a tool and waits for it to finish. The context's deadline
// or cancellation kills the process.
func run(ctx context.Context, logger *slog.Logger, name, binary string, args ...string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	// don't hang on output pipes held open by orphaned children after a kill
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Info("launching subprocess", "cmd", strings.Join(cmd.Args, " "))
	start := time.Now()
	err := cmd.Run()
	logger.Info("finished subprocess", "tool", name, "elapsed", time.Since(start).Round(time.Millisecond))

	if err != nil {
		return perrors.ToolExecution(name, err, "failed\nstdout:\n%s\nstderr:\n%s", tail(stdout.String()), tail(stderr.String()))
	}
	return nil
}

func tail(s string) string {
	if len(s) > stderrTail {
		return "..." + s[len(s)-stderrTail:]
	}
	return s
}

// checkDatabase fails if a database is missing. HH-suite databases are
// prefixes of several files (ex: uniclust30_2018_08_a3m.ffdata), so with
// prefix any file starting with "<path>_" will do.
func checkDatabase(name, path string, prefix bool) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if prefix {
		if matches, _ := filepath.Glob(path + "_*"); len(matches) > 0 {
			return nil
		}
	}
	return perrors.ToolExecution(name, os.ErrNotExist, "could not find database %s", path)
}

// tempDir creates a scratch directory for one tool invocation.
func tempDir(name string) (string, func(), error) {
	dir, err := os.MkdirTemp("", name+"-")
	if err != nil {
		return "", nil, perrors.ToolExecution(name, err, "failed to create a temp dir")
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// readOutput reads a file a tool wrote.
func readOutput(name, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", perrors.ToolExecution(name, err, "failed to read output")
	}
	return string(data), nil
}

// formatFloat formats a threshold in the shortest exact form, ex: 5e-07.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
