package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jarokaz/alphafold-sandbox/config"
	"github.com/jarokaz/alphafold-sandbox/internal/templates"
	"github.com/jarokaz/alphafold-sandbox/internal/tools"
)

// newMSARunner creates the runner searching one database by name:
// uniref90, mgnify, small_bfd or bfd (BFD plus Uniclust30)
func newMSARunner(c *config.Config, database string) (tools.MSARunner, error) {
	switch database {
	case "uniref90":
		return tools.NewJackhmmer(c.Binaries.Jackhmmer, c.Uniref90DatabasePath, c.NCPU), nil
	case "mgnify":
		return tools.NewJackhmmer(c.Binaries.Jackhmmer, c.MgnifyDatabasePath, c.NCPU), nil
	case "small_bfd":
		return tools.NewJackhmmer(c.Binaries.Jackhmmer, c.SmallBFDDatabasePath, c.NCPU), nil
	case "bfd":
		return tools.NewHHBlits(c.Binaries.HHBlits, []string{c.BFDDatabasePath, c.UniclustDatabasePath}, c.NCPU), nil
	}
	return nil, fmt.Errorf("unknown database %q, expected one of uniref90, mgnify, small_bfd or bfd", database)
}

// newTemplateSearcher creates the configured template searcher
func newTemplateSearcher(c *config.Config) tools.TemplateSearcher {
	if c.TemplateSearcher == config.Hmmsearch {
		return tools.NewHmmsearch(c.Binaries.Hmmsearch, c.Binaries.Hmmbuild, c.PDBSeqresDatabasePath, c.NCPU)
	}
	return tools.NewHHSearch(c.Binaries.HHSearch, []string{c.PDB70DatabasePath})
}

// newTemplateFeaturizer creates a featurizer with the configured cutoffs.
// The obsolete entries and release dates files are optional.
func newTemplateFeaturizer(c *config.Config) (*templates.HitFeaturizer, error) {
	f := &templates.HitFeaturizer{
		MaxHits:         c.MaxTemplateHits,
		MaxTemplateDate: c.TemplateCutoff,
	}

	var err error
	if f.ObsoletePDBs, err = readOptional(c.ObsoletePDBsPath, templates.ParseObsoletePDBs); err != nil {
		return nil, err
	}
	if f.ReleaseDates, err = readOptional(c.ReleaseDatesPath, templates.ParseReleaseDates); err != nil {
		return nil, err
	}
	return f, nil
}

// readOptional parses the file at path, a zero T when path is empty or missing
func readOptional[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	if path == "" {
		return zero, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("skipping missing file", "path", path)
		return zero, nil
	}
	if err != nil {
		return zero, err
	}
	defer f.Close()

	v, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return v, nil
}
