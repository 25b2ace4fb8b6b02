package migration

import (
	"fmt"

	appdb "github.com/BaSui01/rewardflow/internal/database"
)

// NewMigratorFromPool creates a migrator that shares the pool's connections.
// The dialect is taken from the pool's GORM dialector.
func NewMigratorFromPool(pool *appdb.PoolManager) (*DefaultMigrator, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is required")
	}

	dbType, err := ParseDatabaseType(pool.Driver())
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}

	return NewMigrator(pool.SQLDB(), Config{
		DatabaseType: dbType,
		TableName:    "schema_migrations",
	})
}
