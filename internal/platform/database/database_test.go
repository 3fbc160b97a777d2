package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriver(t *testing.T) {
	driver, dsn, err := Driver("postgres://user:pw@localhost:5432/ai_doctor?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, driver)
	assert.Equal(t, "postgres://user:pw@localhost:5432/ai_doctor?sslmode=disable", dsn)

	driver, dsn, err = Driver("sqlite3://ai_doctor.db")
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, driver)
	assert.Equal(t, "ai_doctor.db", dsn)

	_, _, err = Driver("mysql://localhost")
	assert.Error(t, err)
}

func TestMigrateSQLiteIsIdempotent(t *testing.T) {
	db, driver, err := Open("sqlite3://:memory:", 1, nil)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db, driver))
	require.NoError(t, Migrate(db, driver))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM consultations`).Scan(&n))
	assert.Zero(t, n)
}
