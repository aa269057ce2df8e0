package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"zubari/internal/models/db_models"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate record")
)

type ConsumeOutcome int

const (
	// ConsumeApplied means the free-tier counter was incremented.
	ConsumeApplied ConsumeOutcome = iota
	// ConsumeUnmetered means the account is premium-active; nothing changed.
	ConsumeUnmetered
	// ConsumeExhausted means the free quota was already used up; nothing changed.
	ConsumeExhausted
)

type ConsumeResult struct {
	Account *db_models.Account
	Outcome ConsumeOutcome
	Event   *db_models.UsageEvent
}

// AccountRepository is the account store. Find* return (nil, nil) when the
// record does not exist; mutating calls return ErrRecordNotFound instead.
type AccountRepository interface {
	Insert(ctx context.Context, account *db_models.Account) error
	FindById(ctx context.Context, id uuid.UUID) (*db_models.Account, error)
	FindByEmail(ctx context.Context, email string) (*db_models.Account, error)

	// ConsumeUsage atomically increments the usage counter when the account is
	// effectively free and below limit, appending a usage event in the same
	// unit of work.
	ConsumeUsage(ctx context.Context, id uuid.UUID, limit int, kind db_models.CapabilityKind, now time.Time) (*ConsumeResult, error)
	// Promote sets tier=premium with the given expiry and resets the counter.
	Promote(ctx context.Context, id uuid.UUID, expiresAt time.Time) (*db_models.Account, error)
	ListUsageEvents(ctx context.Context, id uuid.UUID, limit int) ([]db_models.UsageEvent, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (a *accountRepository) Insert(ctx context.Context, account *db_models.Account) error {
	err := dbFrom(ctx, a.db).Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (a *accountRepository) FindById(ctx context.Context, id uuid.UUID) (*db_models.Account, error) {
	var account db_models.Account
	err := dbFrom(ctx, a.db).First(&account, "id = ?", id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

func (a *accountRepository) FindByEmail(ctx context.Context, email string) (*db_models.Account, error) {
	var account db_models.Account
	err := dbFrom(ctx, a.db).First(&account, "email = ?", email).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

func (a *accountRepository) ConsumeUsage(ctx context.Context, id uuid.UUID, limit int, kind db_models.CapabilityKind, now time.Time) (*ConsumeResult, error) {
	result := &ConsumeResult{Outcome: ConsumeExhausted}

	err := transaction(ctx, a.db, func(tx *gorm.DB) error {
		// Single conditional update: the row lock taken by UPDATE re-checks the
		// predicate, so parallel callers cannot push the counter past limit.
		res := tx.Model(&db_models.Account{}).
			Where("id = ?", id).
			Where("NOT (tier = ? AND premium_expires_at IS NOT NULL AND premium_expires_at > ?)",
				db_models.TierPremium, now.UnixMilli()).
			Where("usage_count < ?", limit).
			UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
		if res.Error != nil {
			return fmt.Errorf("increment usage: %w", res.Error)
		}

		if res.RowsAffected == 1 {
			event := db_models.NewUsageEvent(id, kind, now)
			if err := tx.Create(&event).Error; err != nil {
				return fmt.Errorf("append usage event: %w", err)
			}
			result.Outcome = ConsumeApplied
			result.Event = &event
		}

		var account db_models.Account
		if err := tx.First(&account, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		if result.Outcome != ConsumeApplied && account.PremiumActive(now) {
			result.Outcome = ConsumeUnmetered
		}
		result.Account = &account
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (a *accountRepository) Promote(ctx context.Context, id uuid.UUID, expiresAt time.Time) (*db_models.Account, error) {
	var account db_models.Account

	err := transaction(ctx, a.db, func(tx *gorm.DB) error {
		res := tx.Model(&db_models.Account{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"tier":               db_models.TierPremium,
				"premium_expires_at": expiresAt.UnixMilli(),
				"usage_count":        0,
			})
		if res.Error != nil {
			return fmt.Errorf("promote account: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrRecordNotFound
		}

		return tx.First(&account, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}

	return &account, nil
}

func (a *accountRepository) ListUsageEvents(ctx context.Context, id uuid.UUID, limit int) ([]db_models.UsageEvent, error) {
	var events []db_models.UsageEvent
	err := dbFrom(ctx, a.db).
		Where("account_id = ?", id).
		Order("id DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
