package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/penf-tracelink/config"
	tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/model"
	"github.com/otherjamesbrown/penf-tracelink/pkg/similarity"
)

// CompareCommandDeps holds the dependencies for the compare command.
type CompareCommandDeps struct {
	Config               *config.Config
	LoadConfig           func() (*config.Config, error)
	Logger               logging.Logger
	ConnectAbbreviations func(ctx context.Context, cfg config.AbbreviationsConfig, logger logging.Logger) (AbbreviationLoader, func(), error)
}

// DefaultCompareDeps returns the default dependencies for production use.
func DefaultCompareDeps() *CompareCommandDeps {
	return &CompareCommandDeps{
		LoadConfig:           config.LoadConfig,
		ConnectAbbreviations: connectToRedis,
	}
}

// compareOptions holds the flags of one compare invocation.
type compareOptions struct {
	output      string
	charMatch   string
	aggregation string
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(deps *CompareCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultCompareDeps()
	}
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare <first> <second>",
		Short: "Show the similarity decision for two names",
		Long: `Compare two names with the configured measures and strategy.

Prints the overall decision, the aggregated score, and every measure's own
verdict and score. Use it to tune thresholds before a match run.

Examples:
  tlr compare OrderService "order service"
  tlr compare database DB
  tlr compare Payment Раyment --char-match homoglyph
  tlr --set similarity.measures=ngram compare cart carts --output json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), deps, opts, args[0], args[1], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output format: text, json, yaml")
	cmd.Flags().StringVar(&opts.charMatch, "char-match", "", "Character match policy: exact, casefold, homoglyph")
	cmd.Flags().StringVar(&opts.aggregation, "aggregation", "", "Score aggregation: max, min, average")

	return cmd
}

// CompareReport is the output of a comparison.
type CompareReport struct {
	First      string                    `json:"first" yaml:"first"`
	Second     string                    `json:"second" yaml:"second"`
	Similar    bool                      `json:"similar" yaml:"similar"`
	Score      float64                   `json:"score" yaml:"score"`
	Strategy   string                    `json:"strategy" yaml:"strategy"`
	CharMatch  string                    `json:"char_match" yaml:"char_match"`
	Measures   []similarity.MeasureScore `json:"measures" yaml:"measures"`
	Normalized []string                  `json:"normalized,omitempty" yaml:"normalized,omitempty"`
}

func runCompare(ctx context.Context, deps *CompareCommandDeps, opts *compareOptions, first, second string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := deps.Config
	if cfg == nil {
		var err error
		if cfg, err = deps.LoadConfig(); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}
	format := outputFormat(opts.output, cfg)
	if !format.IsValid() {
		return fmt.Errorf("%w: invalid output format %q", tlerrors.ErrInvalidConfig, format)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.MustGlobal()
	}

	simCfg := cfg.Similarity
	if opts.charMatch != "" {
		simCfg.CharMatch = similarity.CharMatch(opts.charMatch)
	}
	if opts.aggregation != "" {
		simCfg.Scoring = similarity.Aggregation(opts.aggregation)
	}

	abbr, err := loadAbbreviations(ctx, cfg, deps.ConnectAbbreviations, logger)
	if err != nil {
		return tlerrors.ClassifyError(err, "abbreviations")
	}
	comparator, err := similarity.New(simCfg,
		similarity.WithAbbreviations(abbr),
		similarity.WithLogger(logger),
	)
	if err != nil {
		return tlerrors.ClassifyError(err, "configure")
	}

	report := &CompareReport{
		First:     first,
		Second:    second,
		Similar:   comparator.Compare(similarity.Comparison{First: model.NewTerm(first), Second: model.NewTerm(second)}),
		Score:     comparator.Score(first, second, ""),
		Strategy:  string(simCfg.Strategy),
		CharMatch: string(simCfg.CharMatch),
		Measures:  comparator.Explain(first, second),
	}
	if abbr != nil {
		a1, a2 := abbr.Ambiguate(first), abbr.Ambiguate(second)
		if a1 != first || a2 != second {
			report.Normalized = []string{a1, a2}
		}
	}

	switch format {
	case config.OutputFormatJSON:
		return outputJSON(out, report)
	case config.OutputFormatYAML:
		return outputYAML(out, report)
	default:
		return outputCompareText(out, report)
	}
}

// outputCompareText outputs the comparison in human-readable format.
func outputCompareText(w io.Writer, r *CompareReport) error {
	verdict := "not similar"
	if r.Similar {
		verdict = "similar"
	}
	fmt.Fprintf(w, "%q vs %q: %s (score %.3f)\n", r.First, r.Second, verdict, r.Score)
	fmt.Fprintf(w, "  strategy: %s, char match: %s\n", r.Strategy, r.CharMatch)
	if len(r.Normalized) == 2 {
		fmt.Fprintf(w, "  abbreviated: %q vs %q\n", r.Normalized[0], r.Normalized[1])
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  MEASURE       SIMILAR  SCORE")
	fmt.Fprintln(w, "  -------       -------  -----")
	for _, m := range r.Measures {
		fmt.Fprintf(w, "  %-13s %-7t  %.3f\n", m.Measure, m.Similar, m.Score)
	}
	return nil
}
