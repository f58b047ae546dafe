package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/penf-tracelink/config"
	tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/matching"
	"github.com/otherjamesbrown/penf-tracelink/pkg/similarity"
)

// ConfigCommandDeps holds the dependencies for config commands.
type ConfigCommandDeps struct {
	Config     *config.Config
	LoadConfig func() (*config.Config, error)
}

// DefaultConfigDeps returns the default dependencies for production use.
func DefaultConfigDeps() *ConfigCommandDeps {
	return &ConfigCommandDeps{
		LoadConfig: config.LoadConfig,
	}
}

func (d *ConfigCommandDeps) resolveConfig() (*config.Config, error) {
	if d.Config != nil {
		return d.Config, nil
	}
	return d.LoadConfig()
}

// NewConfigCommand creates the config command with its subcommands.
func NewConfigCommand(deps *ConfigCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultConfigDeps()
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
		Long: `Inspect the configuration tlr runs with.

Settings come from defaults, then ~/.tlr/config.yaml (or $TLR_CONFIG_DIR),
then TLR_* environment variables, then --set flags. Every setting has a flat
key; its environment variable is TLR_ followed by the key upper-cased with
dots replaced by underscores.

Examples:
  tlr config show
  tlr config show --output yaml
  tlr --set similarity.strategy=majority config validate`,
	}

	cmd.AddCommand(newConfigShowCommand(deps))
	cmd.AddCommand(newConfigValidateCommand(deps))

	return cmd
}

func newConfigShowCommand(deps *ConfigCommandDeps) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print every setting with its flat key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.resolveConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return outputConfig(cmd.OutOrStdout(), outputFormat(output, cfg), cfg)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: text, json, yaml")
	return cmd
}

func newConfigValidateCommand(deps *ConfigCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the measures it names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.resolveConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return runConfigValidate(cmd.OutOrStdout(), cfg)
		},
	}
}

// runConfigValidate builds the comparator and matchers so that unknown
// measures are reported as well as out-of-range values.
func runConfigValidate(w io.Writer, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return tlerrors.ClassifyError(err, "configure")
	}
	comparator, err := similarity.New(cfg.Similarity, similarity.WithLogger(logging.NewNopLogger()))
	if err != nil {
		return tlerrors.ClassifyError(err, "configure")
	}
	if _, err := matching.NewStage(comparator, cfg.Matching, matching.WithLogger(logging.NewNopLogger())); err != nil {
		return tlerrors.ClassifyError(err, "configure")
	}

	fmt.Fprintln(w, "Configuration is valid.")
	fmt.Fprintf(w, "  %s\n", comparator)
	return nil
}

// outputConfig prints the flattened configuration.
func outputConfig(w io.Writer, format config.OutputFormat, cfg *config.Config) error {
	flat := cfg.Flatten()

	switch format {
	case config.OutputFormatJSON:
		return outputJSON(w, flat)
	case config.OutputFormatYAML:
		return outputYAML(w, flat)
	case config.OutputFormatText:
		for _, k := range config.Keys() {
			v := flat[k]
			if v == "" {
				v = "-"
			}
			fmt.Fprintf(w, "%-44s %s\n", k, v)
		}
		return nil
	default:
		return fmt.Errorf("%w: invalid output format %q", tlerrors.ErrInvalidConfig, format)
	}
}
