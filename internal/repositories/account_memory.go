package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"zubari/internal/models/db_models"
)

// memoryAccountRepository keeps accounts in process memory. Data is lost on
// restart; it is selected only with STORE_DRIVER=memory and in tests.
type memoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]db_models.Account
	byEmail  map[string]uuid.UUID
	events   []db_models.UsageEvent
}

func NewMemoryAccountRepository() AccountRepository {
	return &memoryAccountRepository{
		accounts: make(map[uuid.UUID]db_models.Account),
		byEmail:  make(map[string]uuid.UUID),
	}
}

func (m *memoryAccountRepository) Insert(ctx context.Context, account *db_models.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[account.Email]; exists {
		return ErrDuplicate
	}
	account.Stamp(time.Now())
	if _, exists := m.accounts[account.ID]; exists {
		return ErrDuplicate
	}

	m.accounts[account.ID] = cloneAccount(*account)
	m.byEmail[account.Email] = account.ID
	return nil
}

func (m *memoryAccountRepository) FindById(ctx context.Context, id uuid.UUID) (*db_models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	out := cloneAccount(account)
	return &out, nil
}

func (m *memoryAccountRepository) FindByEmail(ctx context.Context, email string) (*db_models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	out := cloneAccount(m.accounts[id])
	return &out, nil
}

func (m *memoryAccountRepository) ConsumeUsage(ctx context.Context, id uuid.UUID, limit int, kind db_models.CapabilityKind, now time.Time) (*ConsumeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, ErrRecordNotFound
	}

	result := &ConsumeResult{}
	switch {
	case account.PremiumActive(now):
		result.Outcome = ConsumeUnmetered
	case account.UsageCount < limit:
		account.UsageCount++
		account.UpdatedAt = now.Unix()
		m.accounts[id] = account

		event := db_models.NewUsageEvent(id, kind, now)
		m.events = append(m.events, event)
		result.Outcome = ConsumeApplied
		result.Event = &event
	default:
		result.Outcome = ConsumeExhausted
	}

	out := cloneAccount(account)
	result.Account = &out
	return result, nil
}

func (m *memoryAccountRepository) Promote(ctx context.Context, id uuid.UUID, expiresAt time.Time) (*db_models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, ErrRecordNotFound
	}

	exp := expiresAt.UnixMilli()
	account.Tier = db_models.TierPremium
	account.PremiumExpiresAt = &exp
	account.UsageCount = 0
	account.UpdatedAt = time.Now().Unix()
	m.accounts[id] = account

	out := cloneAccount(account)
	return &out, nil
}

func (m *memoryAccountRepository) ListUsageEvents(ctx context.Context, id uuid.UUID, limit int) ([]db_models.UsageEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []db_models.UsageEvent
	for _, e := range m.events {
		if e.AccountID == id {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID > events[j].ID })
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func cloneAccount(a db_models.Account) db_models.Account {
	if a.PremiumExpiresAt != nil {
		exp := *a.PremiumExpiresAt
		a.PremiumExpiresAt = &exp
	}
	return a
}
