// Package cmd is for command line interactions with the afdata application
package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jarokaz/alphafold-sandbox/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use: "afdata",
	Short: `Search genetic and template databases for a protein sequence
and assemble the results into model input features`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
// An interrupt cancels the running command, killing any search tool it started.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := RootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Fatalf("%v", err)
	}
}

// setup installs the logger and reads the settings file, if any
func setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if settings, _ := cmd.Flags().GetString("settings"); settings != "" {
		return config.ReadSettings(viper.GetViper(), settings)
	}
	return nil
}

// bindFlags binds the named flags of the running command to their settings,
// "db-preset" to db_preset. Commands share settings, so binding happens when
// a command runs rather than in init.
func bindFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		viper.BindPFlag(strings.ReplaceAll(name, "-", "_"), cmd.Flags().Lookup(name))
	}
}

// set flags
func init() {
	config.SetDefaults(viper.GetViper())

	RootCmd.PersistentFlags().StringP("settings", "s", "", "settings file (YAML), overridden by AFDATA_* variables and flags")
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug messages")
	RootCmd.PersistentFlags().StringP("data-dir", "d", "", "root of the genetic and template databases")
	RootCmd.PersistentFlags().IntP("n-cpu", "c", 8, "threads given to each search tool")

	viper.BindPFlag("data_dir", RootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("n_cpu", RootCmd.PersistentFlags().Lookup("n-cpu"))
}
