package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/grindlab/exicon/internal/app"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "exicon"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "Exercise lexicon server and batch tools",
		Long:    "Fuzzy exercise lexicon search over MCP, plus the offline cleanup and cross-linking pipelines",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Running the bare binary serves, matching common MCP
			// client expectations.
			return runWithFlags(cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)
	app.RegisterFlags(rootCmd.Flags())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lexicon over MCP (stdio or SSE)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithFlags(cmd.Flags(), version)
		},
	}
	app.RegisterFlags(serveCmd.Flags())

	rootCmd.AddCommand(
		serveCmd,
		newCrossRefCommand(),
		newCleanupCommand(),
		newReindexCommand(),
		newSeedCommand(),
	)

	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func runWithFlags(flags *pflag.FlagSet, version string) error {
	return app.RunWithDeps(context.Background(), app.DefaultRunParams(), flags, version)
}
