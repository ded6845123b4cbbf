// Package cache runs MSA tools behind an on-disk cache keyed by output path.
//
// A non-empty file at the output path is a cache hit. Nothing records which
// query, database or options produced it: reusing an output directory for a
// different query returns stale alignments.
package cache

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
	"github.com/jarokaz/alphafold-sandbox/internal/msa"
	"github.com/jarokaz/alphafold-sandbox/internal/tools"
)

// Result is the alignment text of a tool run, tagged with its format.
type Result struct {
	// Format of Text
	Format msa.Format

	// Text is the raw alignment
	Text string

	// Cached is true when Text was read from a previous run's output
	Cached bool
}

// Options of a cached tool run.
type Options struct {
	// UseCache reads an existing output instead of running the tool
	UseCache bool

	// MaxSequences caps the rows of a Stockholm alignment, 0 for no cap.
	// It is ignored for A3M.
	MaxSequences int
}

func logger() *slog.Logger {
	return slog.Default().With("component", "cache")
}

// RunMSATool returns the alignment of runner for the query in fastaPath.
//
// When caching is off, or outPath is missing or empty, the runner is
// invoked and its output written verbatim to outPath (truncating any
// previous content). Otherwise outPath is read and the runner is not
// invoked; a Stockholm row cap is re-applied on every read since the cached
// file may have been written with another cap or none.
func RunMSATool(ctx context.Context, runner tools.MSARunner, fastaPath, outPath string, format msa.Format, opts Options) (*Result, error) {
	if runner.Format() != format {
		return nil, perrors.UnsupportedFormat(runner.Name(), "runner produces %q, %q requested", runner.Format(), format)
	}

	maxSequences := 0
	if format == msa.Stockholm {
		maxSequences = opts.MaxSequences
	}

	if opts.UseCache {
		text, ok, err := read(runner.Name(), outPath)
		if err != nil {
			return nil, err
		}
		if ok {
			logger().Warn("reading cached alignment, not checked against the query", "tool", runner.Name(), "path", outPath)
			if maxSequences > 0 {
				text = msa.TruncateStockholm(text, maxSequences)
			}
			return &Result{Format: format, Text: text, Cached: true}, nil
		}
	}

	text, err := runner.Query(ctx, fastaPath, maxSequences)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
		return nil, perrors.ToolExecution(runner.Name(), err, "failed to write %s", outPath)
	}
	return &Result{Format: format, Text: text}, nil
}

// read returns the content of path and whether it counts as a cache hit.
func read(name, path string) (string, bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, perrors.ToolExecution(name, err, "failed to stat %s", path)
	}
	if info.Size() == 0 {
		return "", false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, perrors.ToolExecution(name, err, "failed to read %s", path)
	}
	return string(data), true, nil
}
