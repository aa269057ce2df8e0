package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zubari/internal/models/db_models"
	"zubari/internal/repositories"
	"zubari/pkg/metrics"
	"zubari/pkg/utils"
)

func newGate(repo repositories.AccountRepository, clock *fakeClock) EntitlementService {
	return NewEntitlementService(repo, 5, WithClock(clock.Now), WithMetrics(metrics.New()))
}

func TestEvaluate_FreeAccountBelowQuota(t *testing.T) {
	clock := newFakeClock()
	for k := 0; k < 5; k++ {
		repo := repositories.NewMemoryAccountRepository()
		account := seedAccount(t, repo, "free@example.com")
		setUsage(t, repo, account.ID, k, clock.Now())

		d, err := newGate(repo, clock).Evaluate(context.Background(), account.ID)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "k=%d", k)
		assert.Equal(t, 5-k, d.Remaining, "k=%d", k)
		assert.Equal(t, db_models.TierFree, d.EffectiveTier)
	}
}

func TestEvaluate_FreeAccountAtOrAboveQuota(t *testing.T) {
	clock := newFakeClock()
	for _, k := range []int{5, 6, 9} {
		repo := repositories.NewMemoryAccountRepository()
		account := seedAccount(t, repo, "full@example.com")
		setUsage(t, repo, account.ID, k, clock.Now())

		d, err := newGate(repo, clock).Evaluate(context.Background(), account.ID)
		require.NoError(t, err)
		assert.False(t, d.Allowed, "k=%d", k)
		assert.Zero(t, d.Remaining, "k=%d", k)
	}
}

func TestEvaluate_IsSideEffectFree(t *testing.T) {
	clock := newFakeClock()
	repo := repositories.NewMemoryAccountRepository()
	account := seedAccount(t, repo, "readonly@example.com")
	gate := newGate(repo, clock)

	for i := 0; i < 10; i++ {
		_, err := gate.Evaluate(context.Background(), account.ID)
		require.NoError(t, err)
	}

	stored, err := repo.FindById(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.UsageCount)
}

func TestEvaluate_UnknownAccount(t *testing.T) {
	gate := newGate(repositories.NewMemoryAccountRepository(), newFakeClock())

	_, err := gate.Evaluate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, utils.ErrAccountNotFound)

	_, err = gate.TryConsume(context.Background(), uuid.New(), db_models.CapabilitySummarization)
	assert.ErrorIs(t, err, utils.ErrAccountNotFound)

	_, err = gate.Promote(context.Background(), uuid.New(), db_models.PlanMonthly, time.Now())
	assert.ErrorIs(t, err, utils.ErrAccountNotFound)
}

func TestCommit_CountsEveryCall(t *testing.T) {
	clock := newFakeClock()
	for n := 0; n <= 5; n++ {
		repo := repositories.NewMemoryAccountRepository()
		account := seedAccount(t, repo, "commit@example.com")
		gate := newGate(repo, clock)

		for i := 0; i < n; i++ {
			require.NoError(t, gate.Commit(context.Background(), account.ID, db_models.CapabilityQuestionGeneration))
		}

		stored, err := repo.FindById(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, n, stored.UsageCount)
	}
}

func TestCommit_RefusesPastQuota(t *testing.T) {
	clock := newFakeClock()
	repo := repositories.NewMemoryAccountRepository()
	account := seedAccount(t, repo, "over@example.com")
	setUsage(t, repo, account.ID, 5, clock.Now())

	err := newGate(repo, clock).Commit(context.Background(), account.ID, db_models.CapabilitySummarization)
	assert.ErrorIs(t, err, utils.ErrQuotaExceeded)

	stored, err := repo.FindById(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.UsageCount)
}

func TestPromote_Monthly(t *testing.T) {
	clock := newFakeClock()
	repo := repositories.NewMemoryAccountRepository()
	account := seedAccount(t, repo, "monthly@example.com")
	setUsage(t, repo, account.ID, 4, clock.Now())
	gate := newGate(repo, clock)

	at := clock.Now()
	promoted, err := gate.Promote(context.Background(), account.ID, db_models.PlanMonthly, at)
	require.NoError(t, err)
	assert.Equal(t, db_models.TierPremium, promoted.Tier)
	assert.Zero(t, promoted.UsageCount)
	require.NotNil(t, promoted.PremiumExpiresAt)
	assert.Equal(t, at.Add(30*24*time.Hour).UnixMilli(), *promoted.PremiumExpiresAt)

	d, err := gate.Evaluate(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.True(t, d.Unbounded())
	assert.Equal(t, db_models.TierPremium, d.EffectiveTier)
}

func TestPromote_DoesNotStack(t *testing.T) {
	clock := newFakeClock()
	repo := repositories.NewMemoryAccountRepository()
	account := seedAccount(t, repo, "nostack@example.com")
	gate := newGate(repo, clock)

	first := clock.Now()
	_, err := gate.Promote(context.Background(), account.ID, db_models.PlanMonthly, first)
	require.NoError(t, err)

	second := first.Add(24 * time.Hour)
	promoted, err := gate.Promote(context.Background(), account.ID, db_models.PlanMonthly, second)
	require.NoError(t, err)
	assert.Equal(t, second.AddDate(0, 0, 30).UnixMilli(), *promoted.PremiumExpiresAt)
}

func TestPromote_InvalidPlan(t *testing.T) {
	repo := repositories.NewMemoryAccountRepository()
	account := seedAccount(t, repo, "badplan@example.com")

	_, err := newGate(repo, newFakeClock()).Promote(context.Background(), account.ID, db_models.Plan("weekly"), time.Now())
	assert.ErrorIs(t, err, utils.ErrInvalidPlan)
}

func TestEvaluate_ExpiredPremiumIsDemotedOnRead(t *testing.T) {
	clock := newFakeClock()
	repo := repositories.NewMemoryAccountRepository()
	account := seedAccount(t, repo, "lapsed@example.com")
	gate := newGate(repo, clock)

	_, err := gate.Promote(context.Background(), account.ID, db_models.PlanMonthly, clock.Now())
	require.NoError(t, err)

	// Premium calls leave the stale counter at zero; leave one free call used
	// after expiry to check quota math on a demoted account.
	clock.Advance(30 * 24 * time.Hour)

	d, err := gate.Evaluate(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, db_models.TierFree, d.EffectiveTier, "expiring exactly now is expired")
	assert.True(t, d.Allowed)
	assert.Equal(t, 5, d.Remaining)

	_, err = gate.TryConsume(context.Background(), account.ID, db_models.CapabilitySummarization)
	require.NoError(t, err)

	d, err = gate.Evaluate(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, d.Remaining)

	status, err := gate.Status(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "premium", status.SubscriptionType)
	assert.False(t, status.IsSubscribed)
}

func TestEvaluate_SubSecondExpiry(t *testing.T) {
	stores := map[string]func(t *testing.T) repositories.AccountRepository{
		"memory": func(t *testing.T) repositories.AccountRepository { return repositories.NewMemoryAccountRepository() },
		"sqlite": func(t *testing.T) repositories.AccountRepository {
			accounts, _ := newSQLiteRepos(t)
			return accounts
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 900_000_000, time.UTC)}
			repo := open(t)
			account := seedAccount(t, repo, "subsecond@example.com")
			gate := newGate(repo, clock)

			_, err := gate.Promote(ctx, account.ID, db_models.PlanMonthly, clock.Now())
			require.NoError(t, err)

			// 10:00:00.4 on the expiry day, half a second before the window closes.
			clock.Advance(30*24*time.Hour - 500*time.Millisecond)

			d, err := gate.Evaluate(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, db_models.TierPremium, d.EffectiveTier)
			assert.True(t, d.Unbounded())

			d, err = gate.TryConsume(ctx, account.ID, db_models.CapabilitySummarization)
			require.NoError(t, err)
			assert.True(t, d.Unbounded())

			clock.Advance(500 * time.Millisecond)

			d, err = gate.Evaluate(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, db_models.TierFree, d.EffectiveTier)
		})
	}
}

func TestTryConsume_PremiumIsUnmetered(t *testing.T) {
	clock := newFakeClock()
	repo := repositories.NewMemoryAccountRepository()
	account := seedAccount(t, repo, "unmetered@example.com")
	gate := newGate(repo, clock)

	_, err := gate.Promote(context.Background(), account.ID, db_models.PlanYearly, clock.Now())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		d, err := gate.TryConsume(context.Background(), account.ID, db_models.CapabilityQuestionAnswering)
		require.NoError(t, err)
		assert.True(t, d.Unbounded())
	}

	events, err := gate.UsageHistory(context.Background(), account.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStatus_Projection(t *testing.T) {
	clock := newFakeClock()
	repo := repositories.NewMemoryAccountRepository()
	account := seedAccount(t, repo, "status@example.com")
	setUsage(t, repo, account.ID, 2, clock.Now())
	gate := newGate(repo, clock)

	status, err := gate.Status(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "status@example.com", status.Email)
	assert.Equal(t, "free", status.SubscriptionType)
	assert.False(t, status.IsSubscribed)
	assert.Nil(t, status.SubscriptionEnds)
	assert.Equal(t, 2, status.RequestsUsed)
	assert.EqualValues(t, 3, status.RequestsRemaining)

	_, err = gate.Promote(context.Background(), account.ID, db_models.PlanYearly, clock.Now())
	require.NoError(t, err)

	status, err = gate.Status(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, status.IsSubscribed)
	assert.EqualValues(t, Unlimited, status.RequestsRemaining)
	require.NotNil(t, status.SubscriptionEnds)
}

func TestUpgradeScenario(t *testing.T) {
	stores := map[string]func(t *testing.T) repositories.AccountRepository{
		"memory": func(t *testing.T) repositories.AccountRepository { return repositories.NewMemoryAccountRepository() },
		"sqlite": func(t *testing.T) repositories.AccountRepository {
			accounts, _ := newSQLiteRepos(t)
			return accounts
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := newFakeClock()
			repo := open(t)
			account := seedAccount(t, repo, "scenario@example.com")
			gate := newGate(repo, clock)

			for i := 0; i < 5; i++ {
				d, err := gate.Evaluate(ctx, account.ID)
				require.NoError(t, err)
				require.True(t, d.Allowed)
				require.NoError(t, gate.Commit(ctx, account.ID, db_models.CapabilitySummarization))
			}

			d, err := gate.Evaluate(ctx, account.ID)
			require.NoError(t, err)
			assert.False(t, d.Allowed)

			_, err = gate.TryConsume(ctx, account.ID, db_models.CapabilitySummarization)
			assert.ErrorIs(t, err, utils.ErrQuotaExceeded)

			_, err = gate.Promote(ctx, account.ID, db_models.PlanYearly, clock.Now())
			require.NoError(t, err)

			d, err = gate.Evaluate(ctx, account.ID)
			require.NoError(t, err)
			assert.True(t, d.Allowed)

			status, err := gate.Status(ctx, account.ID)
			require.NoError(t, err)
			assert.True(t, status.IsSubscribed)
			assert.Zero(t, status.RequestsUsed)
			require.NotNil(t, status.SubscriptionEnds)
			assert.WithinDuration(t, clock.Now().Add(365*24*time.Hour), *status.SubscriptionEnds, 24*time.Hour)
		})
	}
}

func TestConcurrentPairAtFour(t *testing.T) {
	stores := map[string]func(t *testing.T) repositories.AccountRepository{
		"memory": func(t *testing.T) repositories.AccountRepository { return repositories.NewMemoryAccountRepository() },
		"sqlite": func(t *testing.T) repositories.AccountRepository {
			accounts, _ := newSQLiteRepos(t)
			return accounts
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := newFakeClock()
			repo := open(t)
			account := seedAccount(t, repo, "pair@example.com")
			setUsage(t, repo, account.ID, 4, clock.Now())
			gate := newGate(repo, clock)

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				allowed  int
				exceeded int
			)
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					d, err := gate.Evaluate(ctx, account.ID)
					if !assert.NoError(t, err) || !d.Allowed {
						return
					}
					err = gate.Commit(ctx, account.ID, db_models.CapabilityQuestionGeneration)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						allowed++
					case errors.Is(err, utils.ErrQuotaExceeded):
						exceeded++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, allowed)
			stored, err := repo.FindById(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, 5, stored.UsageCount)
		})
	}
}

type slowAccountRepo struct {
	repositories.AccountRepository
}

func (slowAccountRepo) FindById(ctx context.Context, _ uuid.UUID) (*db_models.Account, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEvaluate_StoreTimeoutIsTransient(t *testing.T) {
	gate := NewEntitlementService(slowAccountRepo{}, 5, WithStoreTimeout(10*time.Millisecond))

	_, err := gate.Evaluate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, utils.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUsageHistory(t *testing.T) {
	clock := newFakeClock()
	repo := repositories.NewMemoryAccountRepository()
	account := seedAccount(t, repo, "history@example.com")
	gate := newGate(repo, clock)

	kinds := []db_models.CapabilityKind{
		db_models.CapabilityQuestionGeneration,
		db_models.CapabilityStudyPlanGeneration,
	}
	for _, kind := range kinds {
		clock.Advance(time.Second)
		_, err := gate.TryConsume(context.Background(), account.ID, kind)
		require.NoError(t, err)
	}

	events, err := gate.UsageHistory(context.Background(), account.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "study_plan_generation", events[0].Capability)
	assert.Equal(t, clock.Now().Unix(), events[0].OccurredAt.Unix())
}
