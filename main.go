// Package main provides the tlr CLI entry point.
// tlr recovers trace links between architecture models and their documentation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otherjamesbrown/penf-tracelink/cmd"
	"github.com/otherjamesbrown/penf-tracelink/config"
	"github.com/otherjamesbrown/penf-tracelink/pkg/buildinfo"
	tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
)

// Global flags and state.
var (
	cfgFile      string
	outputFormat string
	debug        bool
	assignments  []string

	// cfg holds the loaded configuration.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tlr",
	Short: "Trace link recovery between architecture models and documentation",
	Long: `tlr links the elements of an architecture model to the places the
documentation talks about them.

Given model entities and relations, and candidate instances and relations
extracted from documentation, tlr links each entity to its most similar
candidates and each model relation to the candidate relations whose endpoints
correspond. Names are compared with configurable fuzzy measures.

COMMON WORKFLOWS:
  Run a project:      tlr match teastore.yaml
  Tune a threshold:   tlr --set matching.min_proportion=0.6 match teastore.yaml
  Inspect a decision: tlr compare OrderService "order service"
  Check settings:     tlr config show  |  tlr config validate

DISCOVERY:
  tlr <command> --help       Subcommands, flags, and examples for any command`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for commands that don't need it.
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		loaded, err := loadConfiguration()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cfg = loaded

		logging.SetGlobal(newLogger(cfg))
		return nil
	},
}

// loadConfiguration loads the file and environment, then applies flags.
func loadConfiguration() (*config.Config, error) {
	var (
		loaded *config.Config
		err    error
	)
	if cfgFile != "" {
		loaded, err = config.LoadConfigFrom(cfgFile)
	} else {
		loaded, err = config.LoadConfig()
	}
	if err != nil {
		return nil, err
	}

	values, err := config.ParseAssignments(assignments)
	if err != nil {
		return nil, err
	}
	if err := loaded.ApplyFlat(values); err != nil {
		return nil, err
	}
	if outputFormat != "" {
		loaded.OutputFormat = config.OutputFormat(outputFormat)
	}
	if debug {
		loaded.Debug = true
	}

	if err := loaded.Validate(); err != nil {
		return nil, err
	}
	return loaded, nil
}

// newLogger builds the process logger. Colour is used only on a terminal.
func newLogger(c *config.Config) logging.Logger {
	lc := c.LoggingConfig()
	lc.NoColor = !shouldUseColor()
	return logging.NewLogger(lc)
}

// shouldUseColor honours NO_COLOR and falls back to TTY detection on stderr.
func shouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// currentConfig hands the configuration loaded by the root command to subcommands.
func currentConfig() (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	return loadConfiguration()
}

// Version command flags.
var versionOutputJSON bool

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit hash, and build time of the tlr CLI.

Examples:
  tlr version
  tlr version --output-json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildinfo.Get("tlr")
		out := cmd.OutOrStdout()

		if versionOutputJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		fmt.Fprintf(out, "tlr version %s\n", info.Version)
		fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
		fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go:         %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tlr/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "", "output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringArrayVar(&assignments, "set", nil, "override a setting, e.g. --set matching.min_proportion=0.6 (repeatable)")

	rootCmd.Version = buildinfo.String()
	versionCmd.Flags().BoolVar(&versionOutputJSON, "output-json", false, "Output version information as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "linking", Title: "Linking:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	matchCmd := cmd.NewMatchCommand(&cmd.MatchCommandDeps{
		LoadConfig: currentConfig,
	})
	matchCmd.GroupID = "linking"
	rootCmd.AddCommand(matchCmd)

	compareCmd := cmd.NewCompareCommand(&cmd.CompareCommandDeps{
		LoadConfig: currentConfig,
	})
	compareCmd.GroupID = "linking"
	rootCmd.AddCommand(compareCmd)

	abbreviationsCmd := cmd.NewAbbreviationsCommand(&cmd.AbbreviationsCommandDeps{
		LoadConfig: currentConfig,
	})
	abbreviationsCmd.GroupID = "setup"
	rootCmd.AddCommand(abbreviationsCmd)

	configCmd := cmd.NewConfigCommand(&cmd.ConfigCommandDeps{
		LoadConfig: currentConfig,
	})
	configCmd.GroupID = "setup"
	rootCmd.AddCommand(configCmd)

	versionCmd.GroupID = "setup"
	rootCmd.AddCommand(versionCmd)
}

func main() {
	// Set up signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if info, ok := tlerrors.Describe(err); ok && info.SuggestedAction != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", info.SuggestedAction)
		}
		stop()
		os.Exit(1)
	}
}
