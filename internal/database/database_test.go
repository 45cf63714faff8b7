package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID   uint `gorm:"primarykey"`
	Name string
}

func TestOpenSQLite_Memory(t *testing.T) {
	db, err := OpenSQLite("", zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&sample{}))
	require.NoError(t, db.Create(&sample{Name: "a"}).Error)

	var n int64
	require.NoError(t, db.Model(&sample{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestOpenSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.db")
	db, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&sample{}))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestDumpToDisk(t *testing.T) {
	db, err := OpenSQLite("", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&sample{}))
	require.NoError(t, db.Create(&sample{Name: "dumped"}).Error)

	path := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, DumpToDisk(db, path, zerolog.Nop()))
	// second dump replaces the first
	require.NoError(t, DumpToDisk(db, path, zerolog.Nop()))

	disk, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)

	var got sample
	require.NoError(t, disk.First(&got).Error)
	assert.Equal(t, "dumped", got.Name)
}

func TestDumpToDisk_NoPath(t *testing.T) {
	db, err := OpenSQLite("", zerolog.Nop())
	require.NoError(t, err)

	err = DumpToDisk(db, "", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path not set")
}
