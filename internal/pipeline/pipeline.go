// Package pipeline runs the sequence and template searches for one query and
// assembles their results into a feature record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jarokaz/alphafold-sandbox/internal/cache"
	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
	"github.com/jarokaz/alphafold-sandbox/internal/features"
	"github.com/jarokaz/alphafold-sandbox/internal/io"
	"github.com/jarokaz/alphafold-sandbox/internal/msa"
	"github.com/jarokaz/alphafold-sandbox/internal/templates"
	"github.com/jarokaz/alphafold-sandbox/internal/tools"
)

// Stage names, in run order.
const (
	StageInput            = "input"
	StageUniref90         = "uniref90"
	StageMgnify           = "mgnify"
	StageTemplateInput    = "template_input"
	StageTemplateSearch   = "template_search"
	StageBFD              = "bfd"
	StageTemplateFeatures = "template_features"
	StageAssemble         = "assemble"
)

// Stages lists every stage of a run, in order.
var Stages = []string{
	StageInput,
	StageUniref90,
	StageMgnify,
	StageTemplateInput,
	StageTemplateSearch,
	StageBFD,
	StageTemplateFeatures,
	StageAssemble,
}

// Output file names, relative to the output directory.
const (
	Uniref90File     = "uniref90_hits.sto"
	MgnifyFile       = "mgnify_hits.sto"
	SmallBFDFile     = "small_bfd_hits.sto"
	BFDUniclustFile  = "bfd_uniclust_hits.a3m"
	templateHitsFile = "pdb_hits"
)

// Options configure a DataPipeline.
type Options struct {
	// Uniref90 searches uniref90, its alignment seeds the template search
	Uniref90 tools.MSARunner

	// Mgnify searches mgnify
	Mgnify tools.MSARunner

	// SmallBFD searches the reduced BFD, used when UseSmallBFD
	SmallBFD tools.MSARunner

	// BFDUniclust searches BFD and Uniclust30, used unless UseSmallBFD
	BFDUniclust tools.MSARunner

	// UseSmallBFD picks SmallBFD over BFDUniclust
	UseSmallBFD bool

	// TemplateSearcher searches the template database
	TemplateSearcher tools.TemplateSearcher

	// TemplateFeaturizer turns template hits into features
	TemplateFeaturizer templates.Featurizer

	// UnirefMaxHits caps the uniref90 alignment rows
	UnirefMaxHits int

	// MgnifyMaxHits caps the mgnify alignment rows
	MgnifyMaxHits int

	// SmallBFDMaxHits caps the small BFD alignment rows, 0 for no cap
	SmallBFDMaxHits int

	// UsePrecomputedMSAs reuses alignments found in the output directory
	UsePrecomputedMSAs bool

	// Observer, if set, is called after each stage completes
	Observer func(stage string, elapsed time.Duration)

	// RunID tags the logs of every run, a new UUID per run when empty
	RunID string
}

// DataPipeline builds the features of a query sequence.
type DataPipeline struct {
	opts   Options
	logger *slog.Logger
}

// New checks the options and creates a DataPipeline.
func New(opts Options) (*DataPipeline, error) {
	var missing []error
	check := func(ok bool, name string) {
		if !ok {
			missing = append(missing, fmt.Errorf("%s is required", name))
		}
	}
	check(opts.Uniref90 != nil, "uniref90 runner")
	check(opts.Mgnify != nil, "mgnify runner")
	if opts.UseSmallBFD {
		check(opts.SmallBFD != nil, "small bfd runner")
	} else {
		check(opts.BFDUniclust != nil, "bfd/uniclust runner")
	}
	check(opts.TemplateSearcher != nil, "template searcher")
	check(opts.TemplateFeaturizer != nil, "template featurizer")
	if err := errors.Join(missing...); err != nil {
		return nil, fmt.Errorf("invalid pipeline options: %w", err)
	}

	return &DataPipeline{
		opts:   opts,
		logger: slog.Default().With("component", "pipeline"),
	}, nil
}

// run is the state of one Process call.
type run struct {
	id        string
	fastaPath string
	outDir    string
	logger    *slog.Logger

	query         io.Record
	uniref90      *cache.Result
	mgnify        *cache.Result
	bfd           *cache.Result
	templateInput string
	hits          []templates.Hit
	templates     *templates.Result
	features      features.Dict
}

// Process runs every stage for the single sequence in fastaPath, writing
// raw tool outputs to outDir, and returns the feature record. The first
// failing stage aborts the run with a *errors.StageError; outputs of the
// stages that completed stay on disk.
func (p *DataPipeline) Process(ctx context.Context, fastaPath, outDir string) (features.Dict, error) {
	id := p.opts.RunID
	if id == "" {
		id = uuid.NewString()
	}
	r := &run{
		id:        id,
		fastaPath: fastaPath,
		outDir:    outDir,
	}
	r.logger = p.logger.With("run_id", r.id)
	r.logger.Info("starting run", "fasta", fastaPath, "out", outDir)

	steps := []struct {
		stage string
		fn    func(context.Context, *run) error
	}{
		{StageInput, p.input},
		{StageUniref90, p.searchUniref90},
		{StageMgnify, p.searchMgnify},
		{StageTemplateInput, p.prepareTemplateInput},
		{StageTemplateSearch, p.searchTemplates},
		{StageBFD, p.searchBFD},
		{StageTemplateFeatures, p.featurizeTemplates},
		{StageAssemble, p.assemble},
	}

	start := time.Now()
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, &perrors.StageError{Stage: s.stage, Err: err}
		}

		stageStart := time.Now()
		if err := s.fn(ctx, r); err != nil {
			r.logger.Error("stage failed", "stage", s.stage, "error", err)
			return nil, &perrors.StageError{Stage: s.stage, Err: err}
		}
		elapsed := time.Since(stageStart)
		r.logger.Debug("stage done", "stage", s.stage, "elapsed", elapsed.Round(time.Millisecond))
		if p.opts.Observer != nil {
			p.opts.Observer(s.stage, elapsed)
		}
	}

	r.logger.Info("finished run", "elapsed", time.Since(start).Round(time.Millisecond), "features", len(r.features))
	return r.features, nil
}

func (p *DataPipeline) input(_ context.Context, r *run) error {
	query, err := io.ReadOne(r.fastaPath)
	if err != nil {
		return err
	}
	r.query = query

	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return perrors.ToolExecution("create output dir", err, "failed to create %s", r.outDir)
	}
	r.logger.Info("read query", "description", query.Description, "length", len(query.Sequence))
	return nil
}

func (p *DataPipeline) searchUniref90(ctx context.Context, r *run) (err error) {
	r.uniref90, err = cache.RunMSATool(ctx, p.opts.Uniref90, r.fastaPath, filepath.Join(r.outDir, Uniref90File), msa.Stockholm, cache.Options{
		UseCache:     p.opts.UsePrecomputedMSAs,
		MaxSequences: p.opts.UnirefMaxHits,
	})
	return err
}

func (p *DataPipeline) searchMgnify(ctx context.Context, r *run) (err error) {
	r.mgnify, err = cache.RunMSATool(ctx, p.opts.Mgnify, r.fastaPath, filepath.Join(r.outDir, MgnifyFile), msa.Stockholm, cache.Options{
		UseCache:     p.opts.UsePrecomputedMSAs,
		MaxSequences: p.opts.MgnifyMaxHits,
	})
	return err
}

// prepareTemplateInput derives the template search MSA from the uniref90
// alignment, converted to the searcher's input format.
func (p *DataPipeline) prepareTemplateInput(_ context.Context, r *run) (err error) {
	r.templateInput, err = TemplateInput(r.uniref90.Text, 0, p.opts.TemplateSearcher.InputFormat())
	return err
}

// TemplateInput prepares a Stockholm alignment for a template search: it
// keeps the first maxSequences rows (all when maxSequences < 1), drops
// duplicate rows and all-gap columns, and converts the result to format.
func TemplateInput(sto string, maxSequences int, format msa.Format) (string, error) {
	sto, err := msa.DeduplicateStockholm(msa.TruncateStockholm(sto, maxSequences))
	if err != nil {
		return "", err
	}
	sto = msa.RemoveEmptyColumnsStockholm(sto)
	return msa.Convert(sto, msa.Stockholm, format)
}

func (p *DataPipeline) searchTemplates(ctx context.Context, r *run) error {
	searcher := p.opts.TemplateSearcher

	output, err := searcher.Query(ctx, r.templateInput)
	if err != nil {
		return err
	}

	path := filepath.Join(r.outDir, templateHitsFile+"."+searcher.OutputFormat())
	if err := os.WriteFile(path, []byte(output), 0o644); err != nil {
		return perrors.ToolExecution(searcher.Name(), err, "failed to write %s", path)
	}

	r.hits, err = searcher.TemplateHits(output, r.query.Sequence)
	return err
}

func (p *DataPipeline) searchBFD(ctx context.Context, r *run) (err error) {
	if p.opts.UseSmallBFD {
		r.bfd, err = cache.RunMSATool(ctx, p.opts.SmallBFD, r.fastaPath, filepath.Join(r.outDir, SmallBFDFile), msa.Stockholm, cache.Options{
			UseCache:     p.opts.UsePrecomputedMSAs,
			MaxSequences: p.opts.SmallBFDMaxHits,
		})
		return err
	}
	r.bfd, err = cache.RunMSATool(ctx, p.opts.BFDUniclust, r.fastaPath, filepath.Join(r.outDir, BFDUniclustFile), msa.A3M, cache.Options{
		UseCache: p.opts.UsePrecomputedMSAs,
	})
	return err
}

func (p *DataPipeline) featurizeTemplates(ctx context.Context, r *run) (err error) {
	r.templates, err = p.opts.TemplateFeaturizer.GetTemplates(ctx, r.query.Sequence, r.hits)
	return err
}

func (p *DataPipeline) assemble(_ context.Context, r *run) error {
	var msas []*msa.Msa
	for _, res := range []*cache.Result{r.uniref90, r.bfd, r.mgnify} {
		m, err := parse(res)
		if err != nil {
			return err
		}
		msas = append(msas, m)
	}
	uniref90, bfd, mgnify := msas[0], msas[1], msas[2]

	sequenceFeatures := features.SequenceFeatures(r.query.Sequence, r.query.Description)
	msaFeatures, err := features.MSAFeatures(uniref90, bfd, mgnify)
	if err != nil {
		return err
	}

	var templateFeatures features.Dict
	if r.templates != nil {
		templateFeatures = r.templates.Features
	}
	r.features, err = features.Merge(sequenceFeatures, msaFeatures, templateFeatures)
	if err != nil {
		return err
	}

	r.logger.Info("msa sizes",
		"uniref90", uniref90.Len(),
		"bfd", bfd.Len(),
		"mgnify", mgnify.Len(),
		"deduplicated", msaFeatures["msa"].Dim(0),
	)
	numTemplates := 0
	if names, ok := templateFeatures["template_domain_names"]; ok {
		numTemplates = names.Dim(0)
	}
	r.logger.Info("templates", "hits", len(r.hits), "templates", numTemplates)
	return nil
}

// parse reads a tool alignment in its format.
func parse(res *cache.Result) (*msa.Msa, error) {
	switch res.Format {
	case msa.Stockholm:
		return msa.ParseStockholm(res.Text)
	case msa.A3M:
		return msa.ParseA3M(res.Text)
	}
	return nil, perrors.UnsupportedFormat("parse msa", "unknown msa format %q", res.Format)
}
