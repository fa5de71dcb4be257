package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	db, err := Initialize(t.Context(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.writeDb.Exec(`CREATE TABLE station_names (name TEXT NOT NULL UNIQUE)`)
	require.NoError(t, err)
	_, err = db.writeDb.Exec(`INSERT INTO station_names (name) VALUES ('SCS')`)
	require.NoError(t, err)

	_, err = db.writeDb.Exec(`INSERT INTO station_names (name) VALUES ('SCS')`)
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))

	_, err = db.writeDb.Exec(`INSERT INTO station_names (name) VALUES (NULL)`)
	require.Error(t, err)
	assert.False(t, isUniqueViolation(err), "a NOT NULL failure is not a duplicate")

	assert.False(t, isUniqueViolation(errors.New("UNIQUE constraint failed: station_names.name")))
	assert.False(t, isUniqueViolation(nil))
}
