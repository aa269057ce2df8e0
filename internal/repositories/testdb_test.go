package repositories

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"zubari/internal/infra"
)

// newTestDB opens a private in-memory SQLite database with the production
// schema. A single connection mirrors the sqlite store driver.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, infra.Migrate(db))
	return db
}

// accountStores runs a subtest against both store implementations.
func accountStores(t *testing.T, fn func(t *testing.T, repo AccountRepository)) {
	t.Run("gorm", func(t *testing.T) { fn(t, NewAccountRepository(newTestDB(t))) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryAccountRepository()) })
}
