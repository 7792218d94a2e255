package duckdb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/drivers/db/duckdb"
	"github.com/ezdb/ezdb/types"
)

func TestStatements(t *testing.T) {
	d := duckdb.Dialect()
	assert.False(t, d.SupportsTriggers())

	table, err := ezdb.NewTable("ticks", 50,
		ezdb.Column{Name: "id", Kind: types.Int64},
		ezdb.Column{Name: "price", Kind: types.Float64},
	)
	require.NoError(t, err)

	batch, err := ezdb.BuildCreateTables(d, []*ezdb.Table{table}, nil)
	require.NoError(t, err)
	assert.Equal(t, ezdb.Batch{
		"CREATE SEQUENCE IF NOT EXISTS ticks_id_seq START 1",
		"CREATE TABLE IF NOT EXISTS ticks (id BIGINT PRIMARY KEY DEFAULT nextval('ticks_id_seq'), price DOUBLE NOT NULL)",
	}, batch)

	drop, err := ezdb.BuildDropTables(d, "ticks")
	require.NoError(t, err)
	assert.Equal(t, ezdb.Batch{"DROP TABLE IF EXISTS ticks", "DROP SEQUENCE IF EXISTS ticks_id_seq"}, drop)

	assert.Equal(t, "SELECT COUNT(id) FROM ticks", ezdb.BuildRowCount(d, table).SQL)
}

func TestDSN(t *testing.T) {
	dsn, err := duckdb.DSN(ezdb.Target{Path: "ticks.duckdb", Options: map[string]string{"threads": "4", "access_mode": "READ_WRITE"}})
	require.NoError(t, err)
	assert.Equal(t, "ticks.duckdb?access_mode=READ_WRITE&threads=4", dsn)
}
