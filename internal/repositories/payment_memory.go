package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"zubari/internal/models/db_models"
)

type memoryPaymentRepository struct {
	mu      sync.Mutex
	intents map[uuid.UUID]db_models.PaymentIntent
}

func NewMemoryPaymentRepository() PaymentRepository {
	return &memoryPaymentRepository{
		intents: make(map[uuid.UUID]db_models.PaymentIntent),
	}
}

func (m *memoryPaymentRepository) Insert(ctx context.Context, intent *db_models.PaymentIntent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.intents {
		if existing.Reference == intent.Reference {
			return ErrDuplicate
		}
	}
	intent.Stamp(time.Now())
	m.intents[intent.ID] = *intent
	return nil
}

func (m *memoryPaymentRepository) FindByReference(ctx context.Context, reference string, accountID uuid.UUID) (*db_models.PaymentIntent, error) {
	return m.find(ctx, func(i db_models.PaymentIntent) bool {
		return i.Reference == reference && i.AccountID == accountID
	})
}

func (m *memoryPaymentRepository) FindByProviderRef(ctx context.Context, provider, providerRef string) (*db_models.PaymentIntent, error) {
	return m.find(ctx, func(i db_models.PaymentIntent) bool {
		return i.Provider == provider && i.ProviderRef == providerRef
	})
}

func (m *memoryPaymentRepository) find(ctx context.Context, match func(db_models.PaymentIntent) bool) (*db_models.PaymentIntent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, intent := range m.intents {
		if match(intent) {
			out := intent
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memoryPaymentRepository) SetProviderData(ctx context.Context, id uuid.UUID, providerRef string, metadata []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[id]
	if !ok {
		return ErrRecordNotFound
	}
	intent.ProviderRef = providerRef
	if metadata != nil {
		intent.Metadata = metadata
	}
	m.intents[id] = intent
	return nil
}

func (m *memoryPaymentRepository) Transition(ctx context.Context, id uuid.UUID, to db_models.PaymentStatus, at time.Time, onApplied func(ctx context.Context) error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[id]
	if !ok || intent.Status != db_models.PaymentPending {
		return false, nil
	}

	ts := at.Unix()
	updated := intent
	switch to {
	case db_models.PaymentCompleted:
		updated.CompletedAt = &ts
	case db_models.PaymentFailed:
		updated.FailedAt = &ts
	default:
		return false, fmt.Errorf("invalid payment transition to %q", to)
	}
	updated.Status = to
	updated.UpdatedAt = ts

	// The lock is held across onApplied so a racing Transition on the same
	// intent waits and then observes the terminal status.
	if onApplied != nil {
		if err := onApplied(ctx); err != nil {
			return false, err
		}
	}
	m.intents[id] = updated
	return true, nil
}
