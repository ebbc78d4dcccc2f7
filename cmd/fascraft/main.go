package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LexxLuey/fascraft/internal/project"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "fascraft",
		Short:         "Module dependency analysis for generated projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file path (defaults and FASCRAFT_* env when empty)")
	rootCmd.PersistentFlags().StringVar(&a.manifestPath, "manifest", project.DefaultManifest, "Project manifest path")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(newDepsCmd(a), newServeCmd(a), newSnapshotCmd(a))
	return rootCmd
}
