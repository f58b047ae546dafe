//go:build integration

package linkexport

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a PostgreSQL database at TLR_TEST_DATABASE_URL.
func TestExport_Postgres(t *testing.T) {
	url := os.Getenv("TLR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TLR_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	exp := NewExporter(pool, nil)
	require.NoError(t, exp.EnsureSchema(ctx))

	result, err := exp.Migrate(ctx, mustMigrations(t))
	require.NoError(t, err)
	assert.Empty(t, result.Applied, "migrations apply once")

	store := populatedStore()
	project := "it-" + uuid.New().String()
	require.NoError(t, exp.Export(ctx, project, store))
	defer pool.Exec(ctx, "DELETE FROM tlr_runs WHERE run_id = $1", store.RunID())

	var instances, relations int
	err = pool.QueryRow(ctx,
		"SELECT instance_links, relation_links FROM tlr_runs WHERE run_id = $1", store.RunID(),
	).Scan(&instances, &relations)
	require.NoError(t, err)
	assert.Equal(t, 2, instances)
	assert.Equal(t, 1, relations)

	var claimants []string
	err = pool.QueryRow(ctx,
		"SELECT claimants FROM tlr_instance_links WHERE run_id = $1 AND candidate_id = 'c-order'", store.RunID(),
	).Scan(&claimants)
	require.NoError(t, err)
	assert.Equal(t, []string{"instance-matcher"}, claimants)

	// The run id is the primary key, so a second export of the same store fails as a whole.
	assert.Error(t, exp.Export(ctx, project, store))
}
