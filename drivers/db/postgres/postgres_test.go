package postgres_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/drivers/db/postgres"
	"github.com/ezdb/ezdb/types"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name   string
		target ezdb.Target
		want   string
	}{
		{
			name:   "defaults",
			target: ezdb.Target{Database: "metrics"},
			want:   "host=localhost port=5432 dbname=metrics sslmode=disable",
		},
		{
			name: "credentials and options",
			target: ezdb.Target{
				Host: "pg", Port: 6543, Database: "metrics", User: "app", Password: "pw",
				Options: map[string]string{"sslmode": "require", "connect_timeout": "3"},
			},
			want: "host=pg port=6543 dbname=metrics sslmode=require user=app password=pw connect_timeout=3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := postgres.DSN(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBothDriversRegistered(t *testing.T) {
	pq, err := ezdb.LookupDialect(postgres.Name)
	require.NoError(t, err)
	pgx, err := ezdb.LookupDialect(postgres.NamePgx)
	require.NoError(t, err)
	assert.Equal(t, "postgres", pq.Driver)
	assert.Equal(t, "pgx", pgx.Driver)
	assert.Equal(t, pq.TypeNames, pgx.TypeNames)
}

func TestStatements(t *testing.T) {
	d := postgres.Dialect()
	table, err := ezdb.NewTable("samples", 0,
		ezdb.Column{Name: "id", Kind: types.Int64},
		ezdb.Column{Name: "at", Kind: types.Timestamp},
	)
	require.NoError(t, err)

	batch, err := ezdb.BuildCreateTables(d, []*ezdb.Table{table}, nil)
	require.NoError(t, err)
	require.Len(t, batch, 5)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS samples (id BIGSERIAL PRIMARY KEY, at TIMESTAMP(3) NOT NULL)", batch[0])
	assert.Equal(t, "INSERT INTO samples_count (id, rowCount) VALUES (1, 0) ON CONFLICT (id) DO NOTHING", batch[2])
	assert.True(t, strings.HasPrefix(batch[3], "CREATE OR REPLACE FUNCTION samples_trigger_add_fn()"))
	assert.Contains(t, batch[4], "CREATE TRIGGER samples_trigger_sub AFTER DELETE ON samples FOR EACH ROW EXECUTE FUNCTION samples_trigger_sub_fn()")

	drop, err := ezdb.BuildDropTables(d, "samples")
	require.NoError(t, err)
	assert.Equal(t, ezdb.Batch{
		"DROP TABLE IF EXISTS samples",
		"DROP FUNCTION IF EXISTS samples_trigger_add_fn()",
		"DROP FUNCTION IF EXISTS samples_trigger_sub_fn()",
		"DROP TABLE IF EXISTS samples_count",
	}, drop)

	assert.Equal(t, "DELETE FROM samples WHERE id IN (SELECT id FROM samples ORDER BY id ASC LIMIT 10)",
		ezdb.BuildDeleteOldest(d, table, 10))
}

func TestLongTextNotSupported(t *testing.T) {
	table, err := ezdb.NewTable("docs", 0,
		ezdb.Column{Name: "id", Kind: types.Int32},
		ezdb.Column{Name: "body", Kind: types.LongText},
	)
	require.NoError(t, err)

	_, err = ezdb.BuildCreateTables(postgres.Dialect(), []*ezdb.Table{table}, nil)
	var ns *ezdb.NotSupportedError
	require.True(t, errors.As(err, &ns))
	assert.Equal(t, postgres.Name, ns.Dialect)
}

func TestIntrospectFoldsName(t *testing.T) {
	q := postgres.Dialect().Introspect("metrics", "Samples")
	assert.Contains(t, q, "table_name = 'samples'")
	assert.Contains(t, q, "current_schema()")
}
