package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const validBody = `-- +goose Up
CREATE TABLE widgets (id uuid PRIMARY KEY);

-- +goose Down
DROP TABLE widgets;
`

func TestValidateDirAcceptsWellFormedMigrations(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260101120000_create_widgets.sql", validBody)
	writeMigration(t, dir, "20260102120000_add_index.sql", validBody)

	assert.NoError(t, ValidateDir(dir))
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "create_widgets.sql", validBody)

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid migration filename")
}

func TestValidateDirRejectsDuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260101120000_first.sql", validBody)
	writeMigration(t, dir, "20260101120000_second.sql", validBody)

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate migration version")
}

func TestValidateDirRequiresGooseMarkers(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260101120000_broken.sql", "CREATE TABLE widgets (id uuid);")

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "+goose Up")
}

func TestValidateDirIgnoresNonSQLFiles(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "README.md", "notes")
	writeMigration(t, dir, "20260101120000_ok.sql", validBody)

	assert.NoError(t, ValidateDir(dir))
}

func TestShippedMigrationsAreValid(t *testing.T) {
	assert.NoError(t, ValidateDir("migrations"))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add Loyalty Points!")
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "_add_loyalty_points.sql")

	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationRequiresName(t *testing.T) {
	_, err := CreateSQLMigration(t.TempDir(), "")
	assert.Error(t, err)

	_, err = CreateSQLMigration(t.TempDir(), "!!!")
	assert.Error(t, err)
}
