package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLAdapterExec(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	base := &BaseSQLAdapter{DB: db}

	mock.ExpectExec("DROP TABLE IF EXISTS t").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, base.Exec(context.Background(), "DROP TABLE IF EXISTS t"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapterQuery(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	base := &BaseSQLAdapter{DB: db}

	mock.ExpectQuery("SELECT unit FROM t").
		WillReturnRows(sqlmock.NewRows([]string{"unit"}).AddRow("kWh"))

	rows, err := base.Query(context.Background(), "SELECT unit FROM t")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next())
	var unit string
	require.NoError(t, rows.Scan(&unit))
	assert.Equal(t, "kWh", unit)
	require.NoError(t, rows.Err())
}
