package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedMigrationsAreOrdered(t *testing.T) {
	m := NewMigrator(nil, nil)

	migrations, err := Load(m.source)
	require.NoError(t, err)

	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "001_catalog.sql", migrations[0].Name)
	assert.Contains(t, migrations[1].SQL, "EXCLUDE USING gist")
}

func TestLoad_SkipsUnversionedFiles(t *testing.T) {
	source := fstest.MapFS{
		"010_late.sql":  {Data: []byte("SELECT 10")},
		"002_early.sql": {Data: []byte("SELECT 2")},
		"README.md":     {Data: []byte("notes")},
		"seed.sql":      {Data: []byte("SELECT 0")},
		"x_bad.sql":     {Data: []byte("SELECT 0")},
	}

	migrations, err := Load(source)
	require.NoError(t, err)

	require.Len(t, migrations, 2)
	assert.Equal(t, []int{2, 10}, []int{migrations[0].Version, migrations[1].Version})
}

func TestLoad_RejectsDuplicateVersions(t *testing.T) {
	source := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1")},
		"01_b.sql":  {Data: []byte("SELECT 1")},
	}

	_, err := Load(source)

	assert.ErrorContains(t, err, "duplicate migration version 1")
}
