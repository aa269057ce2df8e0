package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentIntent struct {
	BaseModel
	Reference   string        `gorm:"size:64;uniqueIndex;not null"`
	AccountID   uuid.UUID     `gorm:"type:uuid;index;not null"`
	Plan        Plan          `gorm:"size:16;not null"`
	AmountMinor int64         // e.g. 100000 = 1000.00 KES
	Currency    string        `gorm:"size:3"` // ISO 4217
	Status      PaymentStatus `gorm:"size:16;index;not null"`

	// Gateway fields
	Provider    string `gorm:"size:32;index"`
	ProviderRef string `gorm:"size:128;index"` // idempotency across webhooks

	CompletedAt *int64
	FailedAt    *int64

	// Provider payload snapshot (checkout link, webhook data)
	Metadata datatypes.JSON
}
