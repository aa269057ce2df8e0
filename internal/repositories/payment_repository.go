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

type PaymentRepository interface {
	Insert(ctx context.Context, intent *db_models.PaymentIntent) error
	// FindByReference is scoped to the owning account so one account cannot
	// observe or complete another account's intent.
	FindByReference(ctx context.Context, reference string, accountID uuid.UUID) (*db_models.PaymentIntent, error)
	FindByProviderRef(ctx context.Context, provider, providerRef string) (*db_models.PaymentIntent, error)
	SetProviderData(ctx context.Context, id uuid.UUID, providerRef string, metadata []byte) error
	// Transition moves a pending intent to a terminal status. It reports false
	// without error when the intent was no longer pending. onApplied, when not
	// nil, runs only if this call won the transition and in the same unit of
	// work: an error from it rolls the transition back.
	Transition(ctx context.Context, id uuid.UUID, to db_models.PaymentStatus, at time.Time, onApplied func(ctx context.Context) error) (bool, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (p *paymentRepository) Insert(ctx context.Context, intent *db_models.PaymentIntent) error {
	err := dbFrom(ctx, p.db).Create(intent).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (p *paymentRepository) FindByReference(ctx context.Context, reference string, accountID uuid.UUID) (*db_models.PaymentIntent, error) {
	var intent db_models.PaymentIntent
	err := dbFrom(ctx, p.db).
		Where("reference = ? AND account_id = ?", reference, accountID).
		First(&intent).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &intent, nil
}

func (p *paymentRepository) FindByProviderRef(ctx context.Context, provider, providerRef string) (*db_models.PaymentIntent, error) {
	var intent db_models.PaymentIntent
	err := dbFrom(ctx, p.db).
		Where("provider = ? AND provider_ref = ?", provider, providerRef).
		First(&intent).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &intent, nil
}

func (p *paymentRepository) SetProviderData(ctx context.Context, id uuid.UUID, providerRef string, metadata []byte) error {
	updates := map[string]interface{}{"provider_ref": providerRef}
	if metadata != nil {
		updates["metadata"] = metadata
	}

	res := dbFrom(ctx, p.db).Model(&db_models.PaymentIntent{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update provider data: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (p *paymentRepository) Transition(ctx context.Context, id uuid.UUID, to db_models.PaymentStatus, at time.Time, onApplied func(ctx context.Context) error) (bool, error) {
	updates := map[string]interface{}{"status": to}
	switch to {
	case db_models.PaymentCompleted:
		updates["completed_at"] = at.Unix()
	case db_models.PaymentFailed:
		updates["failed_at"] = at.Unix()
	default:
		return false, fmt.Errorf("invalid payment transition to %q", to)
	}

	applied := false
	err := transaction(ctx, p.db, func(tx *gorm.DB) error {
		res := tx.Model(&db_models.PaymentIntent{}).
			Where("id = ? AND status = ?", id, db_models.PaymentPending).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("transition payment: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return nil
		}

		if onApplied != nil {
			if err := onApplied(withTx(ctx, tx)); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}
