// Package commands holds the evcal command tree.
package commands

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appLog "evcal/internal/log"
)

// Version is the release reported by "evcal version".
var Version = "0.1.0"

// New returns the root command with every subcommand attached.
func New() *cobra.Command {
	var envFiles []string
	cmd := &cobra.Command{
		Use:           "evcal",
		Short:         "Personal event calendar served over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return loadEnvFiles(envFiles)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"},
		"Files with EVCAL_* variables to load before reading the config; missing files are skipped")

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addServe(topLevel)
	addConfig(topLevel)
	addVersion(topLevel)
}

func addVersion(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the evcal version.",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "evcal "+Version)
		},
	}
	topLevel.AddCommand(cmd)
}

// loadEnvFiles exports the variables of each existing file. Variables that
// are already set win; earlier files win over later ones.
func loadEnvFiles(files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", f, err)
		}
		appLog.Debug("env file loaded", "path", f)
	}
	return nil
}
