package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fivetwenty-io/rdm-client/cmd/rdm/commands"
	"github.com/fivetwenty-io/rdm-client/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rdm",
		Short: "InvenioRDM REST API CLI",
		Long: `A command-line interface for InvenioRDM repositories such as Zenodo.

This CLI searches and curates records, drafts, files and communities
through the InvenioRDM REST API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.rdm/config.yml)")
	rootCmd.PersistentFlags().StringP("api", "a", "", "API root URL, e.g. https://zenodo.org/api")
	rootCmd.PersistentFlags().StringP("token", "t", "", "personal access token")
	rootCmd.PersistentFlags().String("output", constants.FormatTable, "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log every HTTP request")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Bool("skip-ssl-validation", false, "skip SSL certificate validation (requires "+constants.DevModeEnv+")")

	// Bind flags to viper
	for _, name := range []string{"config", "api", "token", "output", "verbose", "no-color", "skip-ssl-validation"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewLogoutCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewRecordsCommand())
	rootCmd.AddCommand(commands.NewDraftsCommand())
	rootCmd.AddCommand(commands.NewCommunitiesCommand())

	return rootCmd
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in ~/.rdm/config.yml
		viper.AddConfigPath(filepath.Join(home, constants.ConfigDirName))
		viper.SetConfigType(constants.ConfigFileType)
		viper.SetConfigName(constants.ConfigFileName)
	}

	// Read in environment variables that match, e.g. RDM_API and RDM_TOKEN
	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	cobra.OnInitialize(initConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		commands.PrintError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
