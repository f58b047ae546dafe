package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/penf-tracelink/config"
	"github.com/otherjamesbrown/penf-tracelink/pkg/abbreviations"
	tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
)

// AbbreviationsCommandDeps holds the dependencies for abbreviation commands.
type AbbreviationsCommandDeps struct {
	Config       *config.Config
	LoadConfig   func() (*config.Config, error)
	Logger       logging.Logger
	ConnectStore func(ctx context.Context, cfg config.AbbreviationsConfig, logger logging.Logger) (AbbreviationStore, func(), error)
}

// DefaultAbbreviationsDeps returns the default dependencies for production use.
func DefaultAbbreviationsDeps() *AbbreviationsCommandDeps {
	return &AbbreviationsCommandDeps{
		LoadConfig:   config.LoadConfig,
		ConnectStore: connectAbbreviationStore,
	}
}

func (d *AbbreviationsCommandDeps) resolveConfig() (*config.Config, error) {
	if d.Config != nil {
		return d.Config, nil
	}
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func (d *AbbreviationsCommandDeps) logger() logging.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logging.MustGlobal()
}

func (d *AbbreviationsCommandDeps) connect() func(context.Context, config.AbbreviationsConfig, logging.Logger) (AbbreviationStore, func(), error) {
	if d.ConnectStore != nil {
		return d.ConnectStore
	}
	return connectAbbreviationStore
}

// NewAbbreviationsCommand creates the abbreviations command with its subcommands.
func NewAbbreviationsCommand(deps *AbbreviationsCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAbbreviationsDeps()
	}

	cmd := &cobra.Command{
		Use:     "abbreviations",
		Aliases: []string{"abbr"},
		Short:   "Manage the abbreviation dictionary",
		Long: `Manage the abbreviation dictionary used when comparing names.

The dictionary is read from abbreviations.file and from the Redis hash at
abbreviations.redis_key. push replaces the shared hash with a YAML file so
every run picks up the same dictionary.

Examples:
  tlr abbreviations list
  tlr abbreviations push abbreviations.yaml
  tlr abbreviations push extra.yaml --merge
  tlr --set abbreviations.redis_addr=localhost:6379 abbreviations push abbreviations.yaml --key tlr:staging`,
	}

	cmd.AddCommand(newAbbreviationsPushCommand(deps))
	cmd.AddCommand(newAbbreviationsListCommand(deps))

	return cmd
}

// abbreviationsPushOptions holds the flags of one push invocation.
type abbreviationsPushOptions struct {
	key   string
	merge bool
}

func newAbbreviationsPushCommand(deps *AbbreviationsCommandDeps) *cobra.Command {
	opts := &abbreviationsPushOptions{}

	cmd := &cobra.Command{
		Use:   "push <file>",
		Short: "Replace the shared dictionary with a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAbbreviationsPush(cmd.Context(), deps, opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.key, "key", "", "Redis hash to write (default: abbreviations.redis_key)")
	cmd.Flags().BoolVar(&opts.merge, "merge", false, "Keep the meanings already stored and add the file's")

	return cmd
}

func runAbbreviationsPush(ctx context.Context, deps *AbbreviationsCommandDeps, opts *abbreviationsPushOptions, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := deps.resolveConfig()
	if err != nil {
		return err
	}
	target := cfg.Abbreviations
	if target.RedisAddr == "" {
		return fmt.Errorf("%w: abbreviations.redis_addr is not set", tlerrors.ErrInvalidConfig)
	}
	if opts.key != "" {
		target.RedisKey = opts.key
	}

	abbr, err := abbreviations.LoadFile(path)
	if err != nil {
		return tlerrors.ClassifyError(err, "abbreviations")
	}

	logger := deps.logger()
	store, closeStore, err := deps.connect()(ctx, target, logger)
	if err != nil {
		return tlerrors.ClassifyError(fmt.Errorf("connecting to abbreviation store: %w", err), "abbreviations")
	}
	defer closeStore()

	if opts.merge {
		existing, err := store.Load(ctx)
		if err != nil {
			return tlerrors.ClassifyError(err, "abbreviations")
		}
		mergeAbbreviations(existing, abbr)
		abbr = existing
	}

	if err := store.Save(ctx, abbr); err != nil {
		return tlerrors.ClassifyError(err, "abbreviations")
	}
	logger.Info("abbreviations pushed",
		logging.F("key", store.Key()),
		logging.F("count", abbr.Len()),
		logging.F("merge", opts.merge),
	)

	fmt.Fprintf(out, "Pushed %d abbreviations to %s\n", abbr.Len(), store.Key())
	return nil
}

func newAbbreviationsListCommand(deps *AbbreviationsCommandDeps) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the dictionary a match run would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAbbreviationsList(cmd.Context(), deps, output, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: text, json, yaml")
	return cmd
}

// AbbreviationEntry is one dictionary entry in list output.
type AbbreviationEntry struct {
	Abbreviation string   `json:"abbreviation" yaml:"abbreviation"`
	Meanings     []string `json:"meanings" yaml:"meanings"`
}

func runAbbreviationsList(ctx context.Context, deps *AbbreviationsCommandDeps, output string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := deps.resolveConfig()
	if err != nil {
		return err
	}
	format := outputFormat(output, cfg)
	if !format.IsValid() {
		return fmt.Errorf("%w: invalid output format %q", tlerrors.ErrInvalidConfig, format)
	}

	// Listing ignores similarity.consider_abbreviations.
	listCfg := *cfg
	listCfg.Similarity.ConsiderAbbreviations = true

	connect := deps.connect()
	abbr, err := loadAbbreviations(ctx, &listCfg,
		func(ctx context.Context, c config.AbbreviationsConfig, l logging.Logger) (AbbreviationLoader, func(), error) {
			store, closer, err := connect(ctx, c, l)
			if err != nil {
				return nil, nil, err
			}
			return store, closer, nil
		},
		deps.logger(),
	)
	if err != nil {
		return tlerrors.ClassifyError(err, "abbreviations")
	}

	entries := make([]AbbreviationEntry, 0, abbr.Len())
	if abbr != nil {
		for _, k := range abbr.Keys() {
			entries = append(entries, AbbreviationEntry{Abbreviation: k, Meanings: abbr.Meanings(k)})
		}
	}

	switch format {
	case config.OutputFormatJSON:
		return outputJSON(out, entries)
	case config.OutputFormatYAML:
		return outputYAML(out, entries)
	default:
		return outputAbbreviationsText(out, entries)
	}
}

func outputAbbreviationsText(w io.Writer, entries []AbbreviationEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No abbreviations configured.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%-12s %s\n", e.Abbreviation, strings.Join(e.Meanings, ", "))
	}
	fmt.Fprintf(w, "\n%d abbreviations\n", len(entries))
	return nil
}
