package db_models

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type CapabilityKind string

const (
	CapabilityQuestionGeneration  CapabilityKind = "question_generation"
	CapabilitySummarization       CapabilityKind = "summarization"
	CapabilityQuestionAnswering   CapabilityKind = "question_answering"
	CapabilityStudyPlanGeneration CapabilityKind = "study_plan_generation"
)

// UsageEvent is an append-only audit record of one metered call.
type UsageEvent struct {
	ID         string         `gorm:"size:26;primaryKey"`
	AccountID  uuid.UUID      `gorm:"type:uuid;index;not null"`
	Capability CapabilityKind `gorm:"size:32;not null"`
	OccurredAt int64          `gorm:"index;not null"`
}

func NewUsageEvent(accountID uuid.UUID, kind CapabilityKind, at time.Time) UsageEvent {
	return UsageEvent{
		ID:         ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		AccountID:  accountID,
		Capability: kind,
		OccurredAt: at.Unix(),
	}
}
