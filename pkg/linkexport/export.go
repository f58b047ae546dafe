// Package linkexport persists the links of a run to PostgreSQL.
package linkexport

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/otherjamesbrown/penf-tracelink/pkg/links"
	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
)

var (
	instanceColumns = []string{"run_id", "candidate_id", "entity_id", "candidate", "entity", "weight", "claimants"}
	relationColumns = []string{"run_id", "candidate_relation_id", "relation_id", "candidate_relation", "relation", "weight", "claimants"}
)

// TxBeginner starts transactions. *pgxpool.Pool and *pgx.Conn satisfy it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Exporter writes runs to PostgreSQL.
type Exporter struct {
	db     TxBeginner
	logger logging.Logger
}

// NewExporter returns an exporter writing through db.
func NewExporter(db TxBeginner, logger logging.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Exporter{
		db:     db,
		logger: logger.With(logging.F("component", "link_exporter")),
	}
}

// Export writes the run row and every link of store in one transaction.
// Nothing is written when any statement fails.
func (e *Exporter) Export(ctx context.Context, projectName string, store *links.Store) error {
	instances := store.InstanceLinks()
	relations := store.RelationLinks()

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO tlr_runs (run_id, project, instance_links, relation_links, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, store.RunID(), projectName, len(instances), len(relations), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	if len(instances) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"tlr_instance_links"},
			instanceColumns,
			pgx.CopyFromSlice(len(instances), func(i int) ([]any, error) {
				l := instances[i]
				return []any{
					store.RunID(),
					l.Candidate.ID,
					l.Entity.ID,
					l.Candidate.Name,
					l.Entity.Name,
					l.Weight,
					l.Claimants,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copying instance links: %w", err)
		}
	}

	if len(relations) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"tlr_relation_links"},
			relationColumns,
			pgx.CopyFromSlice(len(relations), func(i int) ([]any, error) {
				l := relations[i]
				return []any{
					store.RunID(),
					l.Candidate.ID,
					l.Relation.ID,
					l.Candidate.String(),
					l.Relation.String(),
					l.Weight,
					l.Claimants,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copying relation links: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	e.logger.Info("links exported",
		logging.F("run_id", store.RunID()),
		logging.F("project", projectName),
		logging.F("instance_links", len(instances)),
		logging.F("relation_links", len(relations)),
	)
	return nil
}

// Connect opens a pool for databaseURL and checks it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolCfg.MaxConns = 4
	poolCfg.MinConns = 0
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("testing connection: %w", err)
	}

	return pool, nil
}
