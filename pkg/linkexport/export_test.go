package linkexport

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/penf-tracelink/pkg/links"
	"github.com/otherjamesbrown/penf-tracelink/pkg/model"
)

// fakeTx records statements. Methods it does not override panic through the
// nil embedded interface.
type fakeTx struct {
	pgx.Tx

	execs      []string
	execArgs   [][]any
	copies     map[string][][]any
	execErr    error
	copyErr    error
	failOn     string
	applied    map[string]bool
	commits    int
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx.execErr != nil {
		return pgconn.CommandTag{}, tx.execErr
	}
	if tx.failOn != "" && strings.Contains(sql, tx.failOn) {
		return pgconn.CommandTag{}, errors.New("syntax error")
	}
	if strings.HasPrefix(sql, "INSERT INTO tlr_schema_migrations") {
		version := args[0].(string)
		if tx.applied[version] {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		if tx.applied == nil {
			tx.applied = make(map[string]bool)
		}
		tx.applied[version] = true
	}
	tx.execs = append(tx.execs, sql)
	tx.execArgs = append(tx.execArgs, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (tx *fakeTx) CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if tx.copyErr != nil {
		return 0, tx.copyErr
	}
	if tx.copies == nil {
		tx.copies = make(map[string][][]any)
	}
	var n int64
	for src.Next() {
		row, err := src.Values()
		if err != nil {
			return n, err
		}
		if len(row) != len(columns) {
			return n, errors.New("column count mismatch")
		}
		tx.copies[table.Sanitize()] = append(tx.copies[table.Sanitize()], row)
		n++
	}
	return n, src.Err()
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.committed = true
	tx.commits++
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	tx       *fakeTx
	beginErr error
}

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	return db.tx, nil
}

func populatedStore() *links.Store {
	order := &model.NamedEntity{ID: "e-order", Name: "OrderService"}
	payment := &model.NamedEntity{ID: "e-payment", Name: "PaymentService"}
	cOrder := &model.CandidateInstance{ID: "c-order", Name: "order service"}
	cPayment := &model.CandidateInstance{ID: "c-payment", Name: "payment service"}

	store := links.NewStore("run-1")
	store.AddInstanceLink(cOrder, order, 1.0, "instance-matcher")
	store.AddInstanceLink(cPayment, payment, 0.8, "name-linker")
	store.AddRelationLink(
		&model.CandidateRelation{ID: "rr-1", Endpoints: []*model.CandidateInstance{cPayment, cOrder}},
		&model.Relation{ID: "r-1", Endpoints: []*model.NamedEntity{order, payment}},
		1.0, "relation-matcher",
	)
	return store
}

func TestExport(t *testing.T) {
	tx := &fakeTx{}
	exp := NewExporter(&fakeDB{tx: tx}, nil)

	require.NoError(t, exp.Export(context.Background(), "teastore", populatedStore()))

	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	require.Len(t, tx.execs, 1)
	assert.Contains(t, tx.execs[0], "INSERT INTO tlr_runs")
	assert.Equal(t, []any{"run-1", "teastore", 2, 1}, tx.execArgs[0][:4])

	instances := tx.copies[`"tlr_instance_links"`]
	require.Len(t, instances, 2)
	assert.Equal(t, []any{"run-1", "c-order", "e-order", "order service", "OrderService", 1.0, []string{"instance-matcher"}}, instances[0])

	relations := tx.copies[`"tlr_relation_links"`]
	require.Len(t, relations, 1)
	assert.Equal(t, "payment service -> order service", relations[0][3])
	assert.Equal(t, "OrderService -> PaymentService", relations[0][4])
}

func TestExport_EmptyStoreWritesRunOnly(t *testing.T) {
	tx := &fakeTx{}
	exp := NewExporter(&fakeDB{tx: tx}, nil)

	require.NoError(t, exp.Export(context.Background(), "empty", links.NewStore("run-2")))
	assert.Len(t, tx.execs, 1)
	assert.Empty(t, tx.copies)
	assert.True(t, tx.committed)
}

func TestExport_RollsBackOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		db      *fakeDB
		wantErr string
	}{
		{
			name:    "begin",
			db:      &fakeDB{beginErr: errors.New("connection refused")},
			wantErr: "starting transaction",
		},
		{
			name:    "run row",
			db:      &fakeDB{tx: &fakeTx{execErr: errors.New("duplicate key")}},
			wantErr: "inserting run",
		},
		{
			name:    "copy",
			db:      &fakeDB{tx: &fakeTx{copyErr: errors.New("disk full")}},
			wantErr: "copying instance links",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewExporter(tt.db, nil).Export(context.Background(), "p", populatedStore())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			if tt.db.tx != nil {
				assert.False(t, tt.db.tx.committed)
				assert.True(t, tt.db.tx.rolledBack)
			}
		})
	}
}

func TestMigrations(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, "001_create_link_tables", migrations[0].Version)
	assert.Equal(t, "001_create_link_tables.sql", migrations[0].Name)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS tlr_instance_links")
	assert.Equal(t, "002_index_link_targets", migrations[1].Version)
}

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"001_test.sql", "001_test"},
		{"002_test.SQL", "002_test"},
		{"003_test", "003_test"},
		{".sql", ".sql"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeVersion(tt.input))
		})
	}
}

func TestEnsureSchema(t *testing.T) {
	tx := &fakeTx{}
	exp := NewExporter(&fakeDB{tx: tx}, nil)

	require.NoError(t, exp.EnsureSchema(context.Background()))
	// Tracking table, then a claim and a body per migration.
	require.Len(t, tx.execs, 5)
	assert.Contains(t, tx.execs[0], "tlr_schema_migrations")
	assert.Contains(t, tx.execs[2], "CREATE TABLE IF NOT EXISTS tlr_runs")
	assert.Contains(t, tx.execs[4], "CREATE INDEX")
	assert.Equal(t, 3, tx.commits)

	// A second run finds every version claimed.
	result, err := exp.Migrate(context.Background(), mustMigrations(t))
	require.NoError(t, err)
	assert.Empty(t, result.Applied)
	assert.Equal(t, []string{"001_create_link_tables", "002_index_link_targets"}, result.Skipped)
}

func TestMigrate_StopsAtFailure(t *testing.T) {
	tx := &fakeTx{failOn: "broken"}
	exp := NewExporter(&fakeDB{tx: tx}, nil)

	migrations := []Migration{
		{Version: "001_ok", SQL: "CREATE TABLE a (id TEXT)"},
		{Version: "002_bad", SQL: "CREATE broken"},
		{Version: "003_never", SQL: "CREATE TABLE c (id TEXT)"},
	}
	result, err := exp.Migrate(context.Background(), migrations)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 002_bad failed")
	assert.Equal(t, []string{"001_ok"}, result.Applied)
	assert.False(t, tx.applied["003_never"])
}

func TestLoadMigrations_Errors(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/001_empty.sql": {Data: []byte("  \n")},
	}
	_, err := loadMigrations(fsys, "sql")
	assert.ErrorContains(t, err, "is empty")

	_, err = loadMigrations(fsys, "missing")
	assert.Error(t, err)
}

func TestLoadMigrations_Order(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/010_late.sql":  {Data: []byte("SELECT 10")},
		"sql/002_early.SQL": {Data: []byte("SELECT 2")},
		"sql/README.md":     {Data: []byte("notes")},
	}
	migrations, err := loadMigrations(fsys, "sql")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "002_early", migrations[0].Version)
	assert.Equal(t, "010_late", migrations[1].Version)
}

func mustMigrations(t *testing.T) []Migration {
	t.Helper()
	migrations, err := Migrations()
	require.NoError(t, err)
	return migrations
}
