package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"zubari/internal/infra"
	"zubari/internal/models/db_models"
	"zubari/internal/repositories"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newSQLiteRepos(t *testing.T) (repositories.AccountRepository, repositories.PaymentRepository) {
	t.Helper()
	db := newSQLiteDB(t)
	return repositories.NewAccountRepository(db), repositories.NewPaymentRepository(db)
}

func newSQLiteDB(t *testing.T) *gorm.DB {
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

func seedAccount(t *testing.T, repo repositories.AccountRepository, email string) *db_models.Account {
	t.Helper()
	account := &db_models.Account{
		Email:        email,
		PasswordHash: "hash",
		Role:         db_models.RoleUser,
		Tier:         db_models.TierFree,
	}
	require.NoError(t, repo.Insert(context.Background(), account))
	return account
}

// setUsage drives the counter to n through the real consume path.
func setUsage(t *testing.T, repo repositories.AccountRepository, id uuid.UUID, n int, now time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := repo.ConsumeUsage(context.Background(), id, 1<<30, db_models.CapabilitySummarization, now)
		require.NoError(t, err)
	}
}
