package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/jarokaz/alphafold-sandbox/config"
	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
	"github.com/jarokaz/alphafold-sandbox/internal/io"
	"github.com/jarokaz/alphafold-sandbox/internal/msa"
	"github.com/jarokaz/alphafold-sandbox/internal/pipeline"
	"github.com/spf13/cobra"
)

// templatesCmd searches the template database seeded by an existing alignment.
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Search the template database with an existing alignment",
	Long: `Search the template database with an existing alignment

The alignment (.sto or .a3m, usually uniref90_hits.sto from "afdata features"
or "afdata msa") is truncated to --max-sequences rows, deduplicated, stripped
of all-gap columns and converted to the searcher's input format. The raw search
output is written to the output directory as pdb_hits.hhr or pdb_hits.sto and
the usable templates are listed.`,
	RunE:                       templatesExec,
	SuggestionsMinimumDistance: 2,
	Example:                    "  afdata templates --msa out/uniref90_hits.sto --fasta T1083.fasta --out out",
}

func templatesExec(cmd *cobra.Command, _ []string) error {
	bindFlags(cmd, "template-searcher", "max-template-date")
	c, err := config.NewConfig()
	if err != nil {
		return err
	}
	msaPath, _ := cmd.Flags().GetString("msa")
	fastaPath, _ := cmd.Flags().GetString("fasta")
	outDir, _ := cmd.Flags().GetString("out")
	maxSequences, _ := cmd.Flags().GetInt("max-sequences")

	query, err := io.ReadOne(fastaPath)
	if err != nil {
		return err
	}

	format, err := msa.FormatFromPath(msaPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(msaPath)
	if err != nil {
		return err
	}
	sto, err := msa.Convert(string(data), format, msa.Stockholm)
	if err != nil {
		return err
	}

	searcher := newTemplateSearcher(c)
	input, err := pipeline.TemplateInput(sto, maxSequences, searcher.InputFormat())
	if err != nil {
		return err
	}

	output, err := searcher.Query(cmd.Context(), input)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	outPath := filepath.Join(outDir, "pdb_hits."+searcher.OutputFormat())
	if err := os.WriteFile(outPath, []byte(output), 0o644); err != nil {
		return perrors.ToolExecution(searcher.Name(), err, "failed to write %s", outPath)
	}

	hits, err := searcher.TemplateHits(output, query.Sequence)
	if err != nil {
		return err
	}
	featurizer, err := newTemplateFeaturizer(c)
	if err != nil {
		return err
	}
	res, err := featurizer.GetTemplates(cmd.Context(), query.Sequence, hits)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	names := res.Features["template_domain_names"].Object
	probs := res.Features["template_sum_probs"].Float32
	color.New(color.FgGreen, color.Bold).Fprintf(w, "%d hits, %d templates, raw output in %s\n", len(hits), len(names), outPath)
	for _, warning := range res.Warnings {
		color.New(color.FgYellow).Fprintln(w, warning)
	}
	for _, e := range res.Errors {
		color.New(color.FgRed).Fprintln(w, e)
	}
	if len(names) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "template\tsum_probs")
	for i, name := range names {
		fmt.Fprintf(tw, "%s\t%.2f\n", name, probs[i])
	}
	return tw.Flush()
}

// set flags
func init() {
	templatesCmd.Flags().StringP("msa", "m", "", "alignment seeding the search, .sto or .a3m")
	templatesCmd.Flags().StringP("fasta", "f", "", "path to a FASTA file with the query sequence")
	templatesCmd.Flags().StringP("out", "o", "", "output directory")
	templatesCmd.Flags().IntP("max-sequences", "n", 0, "keep the first rows of the alignment, 0 for all")
	templatesCmd.Flags().String("template-searcher", "hhsearch", "hhsearch or hmmsearch")
	templatesCmd.Flags().String("max-template-date", "2020-05-14", "skip templates released after this date (YYYY-MM-DD)")

	templatesCmd.MarkFlagRequired("msa")
	templatesCmd.MarkFlagRequired("fasta")
	templatesCmd.MarkFlagRequired("out")

	RootCmd.AddCommand(templatesCmd)
}
