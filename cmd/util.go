// Package cmd provides CLI commands for the tlr tool.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/penf-tracelink/config"
	"github.com/otherjamesbrown/penf-tracelink/pkg/abbreviations"
	"github.com/otherjamesbrown/penf-tracelink/pkg/linkexport"
	"github.com/otherjamesbrown/penf-tracelink/pkg/links"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
	"github.com/otherjamesbrown/penf-tracelink/pkg/similarity"
)

// LinkExporter persists the links of a run.
type LinkExporter interface {
	Export(ctx context.Context, projectName string, store *links.Store) error
}

// AbbreviationLoader reads an abbreviation dictionary.
type AbbreviationLoader interface {
	Load(ctx context.Context) (*similarity.Abbreviations, error)
}

// AbbreviationStore reads and replaces a shared abbreviation dictionary.
type AbbreviationStore interface {
	AbbreviationLoader
	Save(ctx context.Context, abbr *similarity.Abbreviations) error
	Key() string
}

// connectToDatabase opens the export database and makes sure the tables exist.
func connectToDatabase(ctx context.Context, databaseURL string, logger logging.Logger) (LinkExporter, func(), error) {
	pool, err := linkexport.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}

	exp := linkexport.NewExporter(pool, logger)
	if err := exp.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return exp, pool.Close, nil
}

// connectToRedis opens the abbreviation hash described by cfg for reading.
func connectToRedis(ctx context.Context, cfg config.AbbreviationsConfig, logger logging.Logger) (AbbreviationLoader, func(), error) {
	store, closer, err := connectAbbreviationStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, closer, nil
}

// connectAbbreviationStore opens the abbreviation hash described by cfg.
func connectAbbreviationStore(ctx context.Context, cfg config.AbbreviationsConfig, logger logging.Logger) (AbbreviationStore, func(), error) {
	client, err := abbreviations.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, nil, err
	}
	closer := func() { client.Close() }
	return abbreviations.NewRedisStore(client, cfg.RedisKey, logger), closer, nil
}

// loadAbbreviations merges the file and Redis dictionaries. It returns nil
// when abbreviations are disabled or no source is configured.
func loadAbbreviations(
	ctx context.Context,
	cfg *config.Config,
	connect func(context.Context, config.AbbreviationsConfig, logging.Logger) (AbbreviationLoader, func(), error),
	logger logging.Logger,
) (*similarity.Abbreviations, error) {
	if !cfg.Similarity.ConsiderAbbreviations {
		return nil, nil
	}
	src := cfg.Abbreviations
	if src.File == "" && src.RedisAddr == "" {
		return nil, nil
	}

	merged := similarity.NewAbbreviations()
	if src.File != "" {
		abbr, err := abbreviations.LoadFile(src.File)
		if err != nil {
			return nil, err
		}
		mergeAbbreviations(merged, abbr)
	}

	if src.RedisAddr != "" {
		if connect == nil {
			connect = connectToRedis
		}
		store, closeStore, err := connect(ctx, src, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to abbreviation store: %w", err)
		}
		defer closeStore()

		abbr, err := store.Load(ctx)
		if err != nil {
			return nil, err
		}
		mergeAbbreviations(merged, abbr)
	}

	logger.Debug("abbreviations ready", logging.F("count", merged.Len()))
	return merged, nil
}

func mergeAbbreviations(dst, src *similarity.Abbreviations) {
	if src.Len() == 0 {
		return
	}
	for _, k := range src.Keys() {
		dst.Add(k, src.Meanings(k)...)
	}
}

// outputFormat returns the output format from flag or config.
func outputFormat(flag string, cfg *config.Config) config.OutputFormat {
	if flag != "" {
		return config.OutputFormat(flag)
	}
	if cfg != nil {
		return cfg.OutputFormat
	}
	return config.OutputFormatText
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
