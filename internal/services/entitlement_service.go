package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"zubari/internal/models/db_models"
	"zubari/internal/models/response_models"
	"zubari/internal/repositories"
	"zubari/pkg/metrics"
	"zubari/pkg/utils"
)

// Unlimited is the Remaining value of a premium-active decision.
const Unlimited = -1

// Decision is the computed, never persisted answer of the quota gate.
type Decision struct {
	Allowed       bool
	EffectiveTier db_models.Tier
	Used          int
	Remaining     int
}

func (d Decision) Unbounded() bool { return d.Remaining == Unlimited }

type EntitlementService interface {
	// Evaluate is side-effect free and safe to call for display purposes.
	Evaluate(ctx context.Context, accountID uuid.UUID) (Decision, error)
	// Commit records one metered call after the capability ran. It refuses
	// with ErrQuotaExceeded if a concurrent call used the last free slot.
	Commit(ctx context.Context, accountID uuid.UUID, kind db_models.CapabilityKind) error
	// TryConsume checks and records a metered call in one atomic step.
	TryConsume(ctx context.Context, accountID uuid.UUID, kind db_models.CapabilityKind) (Decision, error)
	Promote(ctx context.Context, accountID uuid.UUID, plan db_models.Plan, at time.Time) (*db_models.Account, error)
	Status(ctx context.Context, accountID uuid.UUID) (*response_models.AccountStatus, error)
	UsageHistory(ctx context.Context, accountID uuid.UUID, limit int) ([]response_models.UsageEventResponse, error)
}

type EntitlementOption func(*entitlementService)

func WithClock(now func() time.Time) EntitlementOption {
	return func(s *entitlementService) { s.now = now }
}

func WithStoreTimeout(d time.Duration) EntitlementOption {
	return func(s *entitlementService) { s.timeout = d }
}

func WithMetrics(m *metrics.Metrics) EntitlementOption {
	return func(s *entitlementService) { s.metrics = m }
}

func WithLogger(log *zap.Logger) EntitlementOption {
	return func(s *entitlementService) { s.log = log }
}

type entitlementService struct {
	accounts repositories.AccountRepository
	quota    int
	timeout  time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewEntitlementService(accounts repositories.AccountRepository, quota int, opts ...EntitlementOption) EntitlementService {
	s := &entitlementService{
		accounts: accounts,
		quota:    quota,
		timeout:  3 * time.Second,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func decide(a *db_models.Account, quota int, now time.Time) Decision {
	if a.PremiumActive(now) {
		return Decision{
			Allowed:       true,
			EffectiveTier: db_models.TierPremium,
			Used:          a.UsageCount,
			Remaining:     Unlimited,
		}
	}

	remaining := quota - a.UsageCount
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:       a.UsageCount < quota,
		EffectiveTier: db_models.TierFree,
		Used:          a.UsageCount,
		Remaining:     remaining,
	}
}

func (s *entitlementService) load(ctx context.Context, accountID uuid.UUID) (*db_models.Account, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	account, err := s.accounts.FindById(ctx, accountID)
	if err != nil {
		return nil, storeError("load account", err)
	}
	if account == nil {
		return nil, utils.ErrAccountNotFound
	}
	return account, nil
}

func (s *entitlementService) Evaluate(ctx context.Context, accountID uuid.UUID) (Decision, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return Decision{}, err
	}
	return decide(account, s.quota, s.now()), nil
}

func (s *entitlementService) Commit(ctx context.Context, accountID uuid.UUID, kind db_models.CapabilityKind) error {
	_, err := s.TryConsume(ctx, accountID, kind)
	return err
}

func (s *entitlementService) TryConsume(ctx context.Context, accountID uuid.UUID, kind db_models.CapabilityKind) (Decision, error) {
	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	res, err := s.accounts.ConsumeUsage(ctx, accountID, s.quota, kind, now)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return Decision{}, utils.ErrAccountNotFound
		}
		return Decision{}, storeError("consume usage", err)
	}

	decision := decide(res.Account, s.quota, now)
	switch res.Outcome {
	case repositories.ConsumeApplied:
		// The counter already includes this call.
		decision.Allowed = true
		s.metrics.ObserveDecision(string(kind), "allowed")
	case repositories.ConsumeUnmetered:
		s.metrics.ObserveDecision(string(kind), "unmetered")
	default:
		s.metrics.ObserveDecision(string(kind), "denied")
		s.log.Info("free quota exhausted",
			zap.String("account_id", accountID.String()),
			zap.String("capability", string(kind)),
			zap.Int("used", res.Account.UsageCount))
		return decision, utils.ErrQuotaExceeded
	}

	return decision, nil
}

func (s *entitlementService) Promote(ctx context.Context, accountID uuid.UUID, plan db_models.Plan, at time.Time) (*db_models.Account, error) {
	if _, ok := db_models.ParsePlan(string(plan)); !ok {
		return nil, utils.ErrInvalidPlan
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	expiresAt := plan.ExpiryFrom(at)
	account, err := s.accounts.Promote(ctx, accountID, expiresAt)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, utils.ErrAccountNotFound
		}
		return nil, storeError("promote account", err)
	}

	s.log.Info("account promoted to premium",
		zap.String("account_id", accountID.String()),
		zap.String("plan", string(plan)),
		zap.Time("expires_at", expiresAt))
	return account, nil
}

func (s *entitlementService) Status(ctx context.Context, accountID uuid.UUID) (*response_models.AccountStatus, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}

	d := decide(account, s.quota, s.now())
	return &response_models.AccountStatus{
		Email:             account.Email,
		SubscriptionType:  string(account.Tier),
		IsSubscribed:      d.EffectiveTier == db_models.TierPremium,
		SubscriptionEnds:  account.ExpiresAt(),
		RequestsUsed:      account.UsageCount,
		RequestsRemaining: response_models.Remaining(d.Remaining),
	}, nil
}

func (s *entitlementService) UsageHistory(ctx context.Context, accountID uuid.UUID, limit int) ([]response_models.UsageEventResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	events, err := s.accounts.ListUsageEvents(ctx, accountID, limit)
	if err != nil {
		return nil, storeError("list usage events", err)
	}

	out := make([]response_models.UsageEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, response_models.UsageEventResponse{
			ID:         e.ID,
			Capability: string(e.Capability),
			OccurredAt: time.Unix(e.OccurredAt, 0).UTC(),
		})
	}
	return out, nil
}
