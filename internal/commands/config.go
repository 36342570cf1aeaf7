package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"evcal/internal/config"
)

func addConfig(topLevel *cobra.Command) {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the evcal config file.",
	}
	cmd.PersistentFlags().StringVar(&path, "config", defaultConfigPath, "Path to config file")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with defaults and a fresh JWT secret.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if _, err := config.Load(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config file and print the effective settings.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("config %s: %w", path, err)
			}
			conf, err := config.Load(path)
			if err != nil {
				return err
			}
			bold := color.New(color.Bold)
			tbl := uitable.New()
			tbl.Separator = "  "
			tbl.AddRow(bold.Sprint("Setting"), bold.Sprint("Value"))
			tbl.AddRow("listen", conf.Listen)
			tbl.AddRow("log", conf.Log.Level+"/"+conf.Log.Format)
			tbl.AddRow("token ttl", conf.Auth.TokenTTL)
			tbl.AddRow("google", conf.Auth.Google.Enabled())
			tbl.AddRow("session ttl", conf.Session.IdleTTL)
			tbl.AddRow("session sweep", conf.Session.Sweep)
			tbl.AddRow("preview", conf.Preview.Enabled)
			tbl.AddRow("import max bytes", conf.Import.MaxBytes)
			tbl.AddRow("import private hosts", conf.Import.AllowPrivate)

			_, err = fmt.Fprintln(cmd.OutOrStdout(), tbl)
			return err
		},
	}

	cmd.AddCommand(initCmd, checkCmd)
	topLevel.AddCommand(cmd)
}
