package cmd

import (
	"github.com/fatih/color"
	"github.com/jarokaz/alphafold-sandbox/config"
	"github.com/jarokaz/alphafold-sandbox/internal/cache"
	perrors "github.com/jarokaz/alphafold-sandbox/internal/errors"
	"github.com/jarokaz/alphafold-sandbox/internal/io"
	"github.com/jarokaz/alphafold-sandbox/internal/msa"
	"github.com/spf13/cobra"
)

// msaCmd runs one alignment tool against one database.
var msaCmd = &cobra.Command{
	Use:   "msa",
	Short: "Search one database for a sequence and write the alignment",
	Long: `Search one database for a sequence and write the alignment

The output file's extension picks the alignment format, .sto for Stockholm or
.a3m for A3M, and must match the tool searching the database: jackhmmer
(uniref90, mgnify, small_bfd) writes Stockholm, hhblits (bfd) writes A3M.
With --use-cache an existing, non-empty output is returned without searching.`,
	RunE:                       msaExec,
	SuggestionsMinimumDistance: 2,
	Example:                    "  afdata msa --database uniref90 --fasta T1083.fasta --out out/uniref90_hits.sto --max-sequences 10000",
}

func msaExec(cmd *cobra.Command, _ []string) error {
	c, err := config.NewConfig()
	if err != nil {
		return err
	}
	database, _ := cmd.Flags().GetString("database")
	fastaPath, _ := cmd.Flags().GetString("fasta")
	outPath, _ := cmd.Flags().GetString("out")
	maxSequences, _ := cmd.Flags().GetInt("max-sequences")
	useCache, _ := cmd.Flags().GetBool("use-cache")

	// the tools search with every record of the file
	if _, err := io.ReadOne(fastaPath); err != nil {
		return err
	}
	format, err := msa.FormatFromPath(outPath)
	if err != nil {
		return err
	}
	runner, err := newMSARunner(c, database)
	if err != nil {
		return err
	}

	res, err := cache.RunMSATool(cmd.Context(), runner, fastaPath, outPath, format, cache.Options{
		UseCache:     useCache,
		MaxSequences: maxSequences,
	})
	if err != nil {
		return err
	}

	m, err := parseResult(res)
	if err != nil {
		return err
	}
	if m.Len() == 0 {
		return perrors.EmptyAlignment(database, "%s has no sequences", outPath)
	}
	source := "searched"
	if res.Cached {
		source = "cached"
	}
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s %s: %d sequences of length %d in %s\n", source, database, m.Len(), len(m.Sequences[0]), outPath)
	return nil
}

// parseResult reads a tool result in its format
func parseResult(res *cache.Result) (*msa.Msa, error) {
	if res.Format == msa.A3M {
		return msa.ParseA3M(res.Text)
	}
	return msa.ParseStockholm(res.Text)
}

// set flags
func init() {
	msaCmd.Flags().StringP("database", "b", "uniref90", "database to search: uniref90, mgnify, small_bfd or bfd")
	msaCmd.Flags().StringP("fasta", "f", "", "path to a FASTA file with a single query sequence")
	msaCmd.Flags().StringP("out", "o", "", "output alignment, .sto or .a3m")
	msaCmd.Flags().IntP("max-sequences", "m", 0, "keep the first rows of a Stockholm alignment, 0 for all")
	msaCmd.Flags().Bool("use-cache", false, "return an existing output instead of searching")

	msaCmd.MarkFlagRequired("fasta")
	msaCmd.MarkFlagRequired("out")

	RootCmd.AddCommand(msaCmd)
}
