package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jarokaz/alphafold-sandbox/config"
	"github.com/jarokaz/alphafold-sandbox/internal/io"
	"github.com/jarokaz/alphafold-sandbox/internal/pipeline"
	"github.com/spf13/cobra"
	"gopkg.in/cheggaaa/pb.v1"
)

// FeaturesFile is written to the output directory by the features command
const FeaturesFile = "features.json"

// featuresCmd runs every search for a query and writes its features.
var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Search all databases for a sequence and assemble its features",
	Long: `Search all databases for a sequence and assemble its features

"afdata features" runs the data pipeline for the single sequence in a FASTA file:

1. jackhmmer searches uniref90 and mgnify
2. the deduplicated uniref90 alignment seeds a template search (hhsearch
   against pdb70 or hmmsearch against pdb_seqres)
3. hhblits searches BFD and Uniclust30, or jackhmmer the small BFD
   with --db-preset reduced_dbs
4. sequence, alignment and template features are assembled

Raw tool outputs are written to the output directory alongside features.json.`,
	RunE:                       featuresExec,
	SuggestionsMinimumDistance: 2,
	Example:                    "  afdata features --fasta T1083.fasta --out out/T1083 --data-dir /data",
}

// featuresExec builds and runs the pipeline from the settings
func featuresExec(cmd *cobra.Command, _ []string) error {
	bindFlags(cmd, "db-preset", "template-searcher", "max-template-date", "use-precomputed-msas")
	c, err := config.NewConfig()
	if err != nil {
		return err
	}
	fastaPath, _ := cmd.Flags().GetString("fasta")
	outDir, _ := cmd.Flags().GetString("out")

	opts, err := pipelineOptions(c)
	if err != nil {
		return err
	}
	opts.RunID = uuid.NewString()

	bar := pb.New(len(pipeline.Stages))
	bar.Output = cmd.ErrOrStderr()
	bar.ShowTimeLeft = false
	bar.Prefix("features ")
	opts.Observer = func(stage string, _ time.Duration) {
		bar.Prefix(stage + " ")
		bar.Increment()
	}

	p, err := pipeline.New(opts)
	if err != nil {
		return err
	}

	bar.Start()
	feats, err := p.Process(cmd.Context(), fastaPath, outDir)
	bar.Finish()
	if err != nil {
		return err
	}

	out := filepath.Join(outDir, FeaturesFile)
	if err := io.Write(out, opts.RunID, feats); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	color.New(color.FgGreen, color.Bold).Fprintf(w, "wrote %d features to %s\n", len(feats), out)
	fmt.Fprintln(w)
	return io.Summary(w, feats)
}

// pipelineOptions creates the runners, searcher and featurizer of a run
func pipelineOptions(c *config.Config) (pipeline.Options, error) {
	opts := pipeline.Options{
		UseSmallBFD:        c.UseSmallBFD,
		TemplateSearcher:   newTemplateSearcher(c),
		UnirefMaxHits:      c.UnirefMaxHits,
		MgnifyMaxHits:      c.MgnifyMaxHits,
		SmallBFDMaxHits:    c.SmallBFDMaxHits,
		UsePrecomputedMSAs: c.UsePrecomputedMSAs,
	}

	var err error
	if opts.Uniref90, err = newMSARunner(c, "uniref90"); err != nil {
		return opts, err
	}
	if opts.Mgnify, err = newMSARunner(c, "mgnify"); err != nil {
		return opts, err
	}
	if c.UseSmallBFD {
		opts.SmallBFD, err = newMSARunner(c, "small_bfd")
	} else {
		opts.BFDUniclust, err = newMSARunner(c, "bfd")
	}
	if err != nil {
		return opts, err
	}

	featurizer, err := newTemplateFeaturizer(c)
	if err != nil {
		return opts, err
	}
	opts.TemplateFeaturizer = featurizer
	return opts, nil
}

// set flags
func init() {
	featuresCmd.Flags().StringP("fasta", "f", "", "path to a FASTA file with a single query sequence")
	featuresCmd.Flags().StringP("out", "o", "", "output directory")
	featuresCmd.Flags().String("db-preset", "full_dbs", "full_dbs or reduced_dbs (small BFD)")
	featuresCmd.Flags().String("template-searcher", "hhsearch", "hhsearch or hmmsearch")
	featuresCmd.Flags().String("max-template-date", "2020-05-14", "skip templates released after this date (YYYY-MM-DD)")
	featuresCmd.Flags().Bool("use-precomputed-msas", false, "reuse alignments found in the output directory")

	featuresCmd.MarkFlagRequired("fasta")
	featuresCmd.MarkFlagRequired("out")

	RootCmd.AddCommand(featuresCmd)
}
