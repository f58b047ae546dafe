package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/penf-tracelink/config"
	tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
	"github.com/otherjamesbrown/penf-tracelink/pkg/links"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/matching"
	"github.com/otherjamesbrown/penf-tracelink/pkg/observability"
	"github.com/otherjamesbrown/penf-tracelink/pkg/project"
	"github.com/otherjamesbrown/penf-tracelink/pkg/similarity"
)

// MatchCommandDeps holds the dependencies for the match command.
type MatchCommandDeps struct {
	Config     *config.Config
	LoadConfig func() (*config.Config, error)
	Logger     logging.Logger

	// Tracer defaults to the global OpenTelemetry provider.
	Tracer *observability.Tracer

	// Registry receives the run metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry

	ConnectExporter      func(ctx context.Context, databaseURL string, logger logging.Logger) (LinkExporter, func(), error)
	ConnectAbbreviations func(ctx context.Context, cfg config.AbbreviationsConfig, logger logging.Logger) (AbbreviationLoader, func(), error)
}

// DefaultMatchDeps returns the default dependencies for production use.
func DefaultMatchDeps() *MatchCommandDeps {
	return &MatchCommandDeps{
		LoadConfig:           config.LoadConfig,
		ConnectExporter:      connectToDatabase,
		ConnectAbbreviations: connectToRedis,
	}
}

func (d *MatchCommandDeps) resolveConfig() (*config.Config, error) {
	if d.Config != nil {
		return d.Config, nil
	}
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func (d *MatchCommandDeps) logger() logging.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logging.MustGlobal()
}

// matchOptions holds the flags of one match invocation.
type matchOptions struct {
	output      string
	export      bool
	databaseURL string
	metricsFile string
	runID       string
}

// NewMatchCommand creates the match command.
func NewMatchCommand(deps *MatchCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultMatchDeps()
	}
	opts := &matchOptions{}

	cmd := &cobra.Command{
		Use:   "match <project-file>",
		Short: "Link documentation candidates to model elements",
		Long: `Run instance linking and relation matching over a project file.

The project file (YAML or JSON) holds the model entities and relations and the
candidate instances and relations extracted from documentation. Every model
entity is linked to its most similar candidates; every model relation is then
linked to candidate relations whose endpoints correspond.

Examples:
  # Print links as a table
  tlr match teastore.yaml

  # Machine-readable output
  tlr match teastore.yaml --output json

  # Store the run in PostgreSQL and write metrics for the textfile collector
  tlr match teastore.yaml --export --metrics-file /var/lib/node_exporter/tlr.prom

  # Tune a threshold for one run
  tlr --set matching.min_proportion=0.6 match teastore.yaml

Related Commands:
  tlr compare        Inspect the similarity decision for two names
  tlr config show    Print the effective thresholds`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd.Context(), deps, opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output format: text, json, yaml")
	cmd.Flags().BoolVar(&opts.export, "export", false, "Write the links to PostgreSQL (export.database_url)")
	cmd.Flags().StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection string (overrides config)")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	cmd.Flags().StringVar(&opts.runID, "run-id", "", "Run identifier (default: generated UUID)")

	return cmd
}

// MatchReport is the output of a match run.
type MatchReport struct {
	Project       string               `json:"project" yaml:"project"`
	RunID         string               `json:"run_id" yaml:"run_id"`
	DurationMS    int64                `json:"duration_ms" yaml:"duration_ms"`
	InstanceLinks []InstanceLinkView   `json:"instance_links" yaml:"instance_links"`
	RelationLinks []RelationLinkView   `json:"relation_links" yaml:"relation_links"`
	Stages        []StageSummaryView   `json:"stages" yaml:"stages"`
	Exported      bool                 `json:"exported" yaml:"exported"`
	Stats         MatchReportStatsView `json:"stats" yaml:"stats"`
}

// InstanceLinkView is one instance link in a report.
type InstanceLinkView struct {
	CandidateID string   `json:"candidate_id" yaml:"candidate_id"`
	Candidate   string   `json:"candidate" yaml:"candidate"`
	EntityID    string   `json:"entity_id" yaml:"entity_id"`
	Entity      string   `json:"entity" yaml:"entity"`
	Weight      float64  `json:"weight" yaml:"weight"`
	Claimants   []string `json:"claimants" yaml:"claimants"`
}

// RelationLinkView is one relation link in a report.
type RelationLinkView struct {
	CandidateRelationID string   `json:"candidate_relation_id" yaml:"candidate_relation_id"`
	CandidateRelation   string   `json:"candidate_relation" yaml:"candidate_relation"`
	RelationID          string   `json:"relation_id" yaml:"relation_id"`
	Relation            string   `json:"relation" yaml:"relation"`
	Weight              float64  `json:"weight" yaml:"weight"`
	Claimants           []string `json:"claimants" yaml:"claimants"`
}

// StageSummaryView summarises one stage event.
type StageSummaryView struct {
	Stage      string `json:"stage" yaml:"stage"`
	Status     string `json:"status" yaml:"status"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
	Inputs     int    `json:"inputs" yaml:"inputs"`
	Links      int    `json:"links" yaml:"links"`
}

// MatchReportStatsView counts the linked elements.
type MatchReportStatsView struct {
	Entities  int `json:"linked_entities" yaml:"linked_entities"`
	Relations int `json:"linked_relations" yaml:"linked_relations"`
}

func runMatch(ctx context.Context, deps *MatchCommandDeps, opts *matchOptions, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := deps.resolveConfig()
	if err != nil {
		return err
	}
	format := outputFormat(opts.output, cfg)
	if !format.IsValid() {
		return fmt.Errorf("%w: invalid output format %q", tlerrors.ErrInvalidConfig, format)
	}
	logger := deps.logger().With(logging.F("command", "match"))

	p, err := project.LoadFile(path)
	if err != nil {
		return tlerrors.ClassifyError(err, "load")
	}
	if p.Name == "" {
		p.Name = path
	}
	p.Input.RunID = opts.runID

	abbr, err := loadAbbreviations(ctx, cfg, deps.ConnectAbbreviations, logger)
	if err != nil {
		return tlerrors.ClassifyError(err, "abbreviations")
	}

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := observability.NewMetrics(reg)

	comparator, err := similarity.New(cfg.Similarity,
		similarity.WithAbbreviations(abbr),
		similarity.WithObserver(metrics),
		similarity.WithLogger(logger),
	)
	if err != nil {
		return tlerrors.ClassifyError(err, "configure")
	}

	stageOpts := []matching.Option{
		matching.WithLogger(logger),
		matching.WithRecorder(metrics),
	}
	if deps.Tracer != nil {
		stageOpts = append(stageOpts, matching.WithTracer(deps.Tracer))
	}
	stage, err := matching.NewStage(comparator, cfg.Matching, stageOpts...)
	if err != nil {
		return tlerrors.ClassifyError(err, "configure")
	}

	start := time.Now()
	result, err := stage.Run(ctx, p.Input)
	if err != nil {
		return tlerrors.ClassifyError(err, "match")
	}
	report := buildMatchReport(p.Name, result, time.Since(start))

	if opts.export {
		if err := exportRun(ctx, deps, cfg, opts, p.Name, result.Store, logger); err != nil {
			return err
		}
		report.Exported = true
	}

	metricsFile := opts.metricsFile
	if metricsFile == "" {
		metricsFile = cfg.Metrics.TextfilePath
	}
	if metricsFile != "" {
		if err := observability.WriteTextfile(metricsFile, reg); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		logger.Debug("metrics written", logging.F("path", metricsFile))
	}

	switch format {
	case config.OutputFormatJSON:
		return outputJSON(out, report)
	case config.OutputFormatYAML:
		return outputYAML(out, report)
	default:
		return outputMatchText(out, report)
	}
}

func exportRun(ctx context.Context, deps *MatchCommandDeps, cfg *config.Config, opts *matchOptions, name string, store *links.Store, logger logging.Logger) error {
	url := opts.databaseURL
	if url == "" {
		url = cfg.Export.DatabaseURL
	}
	if url == "" {
		return fmt.Errorf("%w: --export needs export.database_url or --database-url", tlerrors.ErrInvalidConfig)
	}

	connect := deps.ConnectExporter
	if connect == nil {
		connect = connectToDatabase
	}
	exp, closeDB, err := connect(ctx, url, logger)
	if err != nil {
		return &tlerrors.StageError{
			Code:    tlerrors.ErrCodeUnavailable,
			Stage:   "export",
			Message: err.Error(),
			Cause:   err,
		}
	}
	defer closeDB()

	if err := exp.Export(ctx, name, store); err != nil {
		return &tlerrors.StageError{
			Code:    tlerrors.ErrCodeExportFailed,
			Stage:   "export",
			Message: err.Error(),
			Cause:   err,
		}
	}
	return nil
}

func buildMatchReport(name string, result *matching.Result, elapsed time.Duration) *MatchReport {
	store := result.Store
	stats := store.Stats()
	report := &MatchReport{
		Project:       name,
		RunID:         store.RunID(),
		DurationMS:    elapsed.Milliseconds(),
		InstanceLinks: []InstanceLinkView{},
		RelationLinks: []RelationLinkView{},
		Stats: MatchReportStatsView{
			Entities:  stats.Entities,
			Relations: stats.Relations,
		},
	}

	for _, l := range store.InstanceLinks() {
		report.InstanceLinks = append(report.InstanceLinks, InstanceLinkView{
			CandidateID: l.Candidate.ID,
			Candidate:   l.Candidate.Name,
			EntityID:    l.Entity.ID,
			Entity:      l.Entity.Name,
			Weight:      l.Weight,
			Claimants:   l.Claimants,
		})
	}
	for _, l := range store.RelationLinks() {
		report.RelationLinks = append(report.RelationLinks, RelationLinkView{
			CandidateRelationID: l.Candidate.ID,
			CandidateRelation:   l.Candidate.String(),
			RelationID:          l.Relation.ID,
			Relation:            l.Relation.String(),
			Weight:              l.Weight,
			Claimants:           l.Claimants,
		})
	}
	for _, ev := range result.Events {
		report.Stages = append(report.Stages, StageSummaryView{
			Stage:      ev.Stage,
			Status:     ev.Status,
			DurationMS: ev.DurationMs,
			Inputs:     ev.Inputs,
			Links:      ev.Links,
		})
	}
	return report
}

// outputMatchText outputs the report in table format.
func outputMatchText(w io.Writer, r *MatchReport) error {
	fmt.Fprintf(w, "Project: %s\n", r.Project)
	fmt.Fprintf(w, "Run:     %s (%dms)\n\n", r.RunID, r.DurationMS)

	if len(r.InstanceLinks) == 0 {
		fmt.Fprintln(w, "No instance links found.")
	} else {
		fmt.Fprintf(w, "Instance links (%d):\n\n", len(r.InstanceLinks))
		fmt.Fprintln(w, "  CANDIDATE                      ENTITY                         WEIGHT  CLAIMANTS")
		fmt.Fprintln(w, "  ---------                      ------                         ------  ---------")
		for _, l := range r.InstanceLinks {
			fmt.Fprintf(w, "  %-30s %-30s %6.3f  %s\n",
				truncateString(l.Candidate, 30),
				truncateString(l.Entity, 30),
				l.Weight,
				joinClaimants(l.Claimants))
		}
	}
	fmt.Fprintln(w)

	if len(r.RelationLinks) == 0 {
		fmt.Fprintln(w, "No relation links found.")
	} else {
		fmt.Fprintf(w, "Relation links (%d):\n\n", len(r.RelationLinks))
		fmt.Fprintln(w, "  CANDIDATE RELATION             RELATION                       WEIGHT  CLAIMANTS")
		fmt.Fprintln(w, "  ------------------             --------                       ------  ---------")
		for _, l := range r.RelationLinks {
			fmt.Fprintf(w, "  %-30s %-30s %6.3f  %s\n",
				truncateString(l.CandidateRelation, 30),
				truncateString(l.Relation, 30),
				l.Weight,
				joinClaimants(l.Claimants))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Linked entities: %d, linked relations: %d\n", r.Stats.Entities, r.Stats.Relations)
	if r.Exported {
		fmt.Fprintln(w, "Exported to PostgreSQL.")
	}
	return nil
}

func joinClaimants(claimants []string) string {
	if len(claimants) == 0 {
		return "-"
	}
	return strings.Join(claimants, ", ")
}
