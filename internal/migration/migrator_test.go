package migration

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appdb "github.com/BaSui01/rewardflow/internal/database"
)

func openSQLite(t *testing.T) *appdb.PoolManager {
	t.Helper()
	pool, err := appdb.Open(appdb.Config{
		Driver: appdb.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func newSQLiteMigrator(t *testing.T) (*DefaultMigrator, *appdb.PoolManager) {
	t.Helper()
	pool := openSQLite(t)
	m, err := NewMigratorFromPool(pool)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, pool
}

func TestParseDatabaseType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected DatabaseType
		wantErr  bool
	}{
		{"postgres", "postgres", DatabaseTypePostgres, false},
		{"postgresql", "postgresql", DatabaseTypePostgres, false},
		{"pg", "pg", DatabaseTypePostgres, false},
		{"mysql", "mysql", DatabaseTypeMySQL, false},
		{"mariadb", "mariadb", DatabaseTypeMySQL, false},
		{"sqlite", "sqlite", DatabaseTypeSQLite, false},
		{"sqlite3", "sqlite3", DatabaseTypeSQLite, false},
		{"uppercase", "POSTGRES", DatabaseTypePostgres, false},
		{"invalid", "invalid", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseDatabaseType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestGetMigrationsPath(t *testing.T) {
	assert.Equal(t, "migrations/postgres", GetMigrationsPath(DatabaseTypePostgres))
	assert.Equal(t, "migrations/mysql", GetMigrationsPath(DatabaseTypeMySQL))
	assert.Equal(t, "migrations/sqlite", GetMigrationsPath(DatabaseTypeSQLite))
}

func TestNewMigrator_InvalidConfig(t *testing.T) {
	_, err := NewMigrator(nil, Config{DatabaseType: DatabaseTypeSQLite})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection is required")

	pool := openSQLite(t)
	_, err = NewMigrator(pool.SQLDB(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database type is required")

	_, err = NewMigrator(pool.SQLDB(), Config{DatabaseType: "oracle"})
	assert.Error(t, err)

	_, err = NewMigratorFromPool(nil)
	assert.Error(t, err)
}

func TestAvailableMigrations_AllDialects(t *testing.T) {
	for _, dbType := range []DatabaseType{DatabaseTypePostgres, DatabaseTypeMySQL, DatabaseTypeSQLite} {
		t.Run(string(dbType), func(t *testing.T) {
			migrations, err := availableMigrations(dbType)
			require.NoError(t, err)
			require.NotEmpty(t, migrations)
			assert.Equal(t, "create_credentials", migrations[0].name)
			for i := 1; i < len(migrations); i++ {
				assert.Greater(t, migrations[i].version, migrations[i-1].version)
			}
		})
	}

	_, err := availableMigrations("oracle")
	assert.Error(t, err)
}

func TestMigrator_SQLite_Integration(t *testing.T) {
	m, pool := newSQLiteMigrator(t)
	ctx := context.Background()

	version, dirty, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, m.Up(ctx))
	require.NoError(t, m.Up(ctx), "re-running up is a no-op")

	version, dirty, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Greater(t, version, uint(0))
	assert.False(t, dirty)
	assert.True(t, pool.DB().Migrator().HasTable("credentials"))

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, statuses)
	for _, s := range statuses {
		assert.True(t, s.Applied)
	}

	info, err := m.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, info.TotalMigrations, info.AppliedMigrations)
	assert.Zero(t, info.PendingMigrations)

	require.NoError(t, m.Down(ctx))
	newVersion, _, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Less(t, newVersion, version)
	assert.False(t, pool.DB().Migrator().HasTable("credentials"))

	require.NoError(t, m.Steps(ctx, 1))
	assert.True(t, pool.DB().Migrator().HasTable("credentials"))
}

func TestMigrator_CloseKeepsPoolOpen(t *testing.T) {
	pool := openSQLite(t)
	m, err := NewMigratorFromPool(pool)
	require.NoError(t, err)
	require.NoError(t, m.Up(context.Background()))
	require.NoError(t, m.Close())

	assert.NoError(t, pool.Ping(context.Background()))
}

func TestCLI_Output(t *testing.T) {
	m, _ := newSQLiteMigrator(t)
	cli := NewCLI(m)
	var buf bytes.Buffer
	cli.SetOutput(&buf)
	ctx := context.Background()

	require.NoError(t, cli.RunVersion(ctx))
	assert.Contains(t, buf.String(), "No migrations applied yet")

	buf.Reset()
	require.NoError(t, cli.RunStatus(ctx))
	assert.Contains(t, buf.String(), "create_credentials")
	assert.Contains(t, buf.String(), "Pending")

	buf.Reset()
	require.NoError(t, cli.RunUp(ctx))
	assert.Contains(t, buf.String(), "Migrations complete. Current version: 1")

	buf.Reset()
	require.NoError(t, cli.RunUp(ctx))
	assert.Contains(t, buf.String(), "Schema is up to date")

	buf.Reset()
	require.NoError(t, cli.RunVersion(ctx))
	assert.Contains(t, buf.String(), "Current version: 1")

	buf.Reset()
	require.NoError(t, cli.RunDown(ctx))
	assert.Contains(t, buf.String(), "Rollback complete. Current version: 0")

	assert.Error(t, cli.RunSteps(ctx, 0))
	buf.Reset()
	require.NoError(t, cli.RunSteps(ctx, 1))
	assert.Contains(t, buf.String(), "Applying 1 migration(s)")
}
