package repositories

import (
	"context"
	"fmt"
	"sort"
	"time"

	dbm "zubari/internal/models/db_models"
)

type memoryDashboardRepository struct {
	accounts *memoryAccountRepository
	payments *memoryPaymentRepository
}

// NewMemoryDashboardRepository reads straight from the in-memory stores, so it
// only accepts the repositories built by NewMemory*Repository.
func NewMemoryDashboardRepository(accounts AccountRepository, payments PaymentRepository) (DashboardRepository, error) {
	a, ok := accounts.(*memoryAccountRepository)
	if !ok {
		return nil, fmt.Errorf("memory dashboard: unsupported account store %T", accounts)
	}
	p, ok := payments.(*memoryPaymentRepository)
	if !ok {
		return nil, fmt.Errorf("memory dashboard: unsupported payment store %T", payments)
	}
	return &memoryDashboardRepository{accounts: a, payments: p}, nil
}

func within(ts int64, start, end time.Time) bool {
	return ts >= start.Unix() && ts <= end.Unix()
}

func (m *memoryDashboardRepository) CountTotalAccounts(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.accounts.mu.Lock()
	defer m.accounts.mu.Unlock()
	return int64(len(m.accounts.accounts)), nil
}

func (m *memoryDashboardRepository) CountPremiumActive(ctx context.Context, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.accounts.mu.Lock()
	defer m.accounts.mu.Unlock()

	var n int64
	for _, a := range m.accounts.accounts {
		if a.PremiumActive(at) {
			n++
		}
	}
	return n, nil
}

func (m *memoryDashboardRepository) CountPaymentsByStatus(ctx context.Context, start, end time.Time) ([]StatusCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.payments.mu.Lock()
	defer m.payments.mu.Unlock()

	counts := map[dbm.PaymentStatus]int64{}
	for _, p := range m.payments.intents {
		if within(p.CreatedAt, start, end) {
			counts[p.Status]++
		}
	}
	rows := make([]StatusCount, 0, len(counts))
	for status, n := range counts {
		rows = append(rows, StatusCount{Status: status, Count: n})
	}
	return rows, nil
}

func (m *memoryDashboardRepository) UsageByCapability(ctx context.Context, start, end time.Time) ([]CapabilityCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.accounts.mu.Lock()
	defer m.accounts.mu.Unlock()

	counts := map[dbm.CapabilityKind]int64{}
	for _, e := range m.accounts.events {
		if within(e.OccurredAt, start, end) {
			counts[e.Capability]++
		}
	}
	rows := make([]CapabilityCount, 0, len(counts))
	for kind, n := range counts {
		rows = append(rows, CapabilityCount{Capability: kind, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Capability < rows[j].Capability
	})
	return rows, nil
}

func (m *memoryDashboardRepository) AccountCreationTimes(ctx context.Context, start, end time.Time) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.accounts.mu.Lock()
	defer m.accounts.mu.Unlock()

	var out []int64
	for _, a := range m.accounts.accounts {
		if within(a.CreatedAt, start, end) {
			out = append(out, a.CreatedAt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memoryDashboardRepository) CompletedPayments(ctx context.Context, start, end time.Time) ([]PaymentRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Copy out under the payments lock, then resolve emails under the accounts
	// lock; the two are never held together here.
	m.payments.mu.Lock()
	var intents []dbm.PaymentIntent
	for _, p := range m.payments.intents {
		if p.Status == dbm.PaymentCompleted && p.CompletedAt != nil && within(*p.CompletedAt, start, end) {
			intents = append(intents, p)
		}
	}
	m.payments.mu.Unlock()

	rows := make([]PaymentRow, 0, len(intents))
	m.accounts.mu.Lock()
	for _, p := range intents {
		rows = append(rows, PaymentRow{
			Reference:    p.Reference,
			Plan:         p.Plan,
			AmountMinor:  p.AmountMinor,
			Currency:     p.Currency,
			Provider:     p.Provider,
			CompletedAt:  *p.CompletedAt,
			AccountEmail: m.accounts.accounts[p.AccountID].Email,
		})
	}
	m.accounts.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CompletedAt != rows[j].CompletedAt {
			return rows[i].CompletedAt > rows[j].CompletedAt
		}
		return rows[i].Reference < rows[j].Reference
	})
	return rows, nil
}
