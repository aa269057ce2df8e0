package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"zubari/internal/config"
	dbm "zubari/internal/models/db_models"
	"zubari/internal/models/response_models"
	"zubari/internal/repositories"
	"zubari/pkg/metrics"
	"zubari/pkg/utils"
)

const referencePrefix = "SUB-"

type PaymentService interface {
	// Open records a pending intent for plan and starts a provider checkout.
	Open(ctx context.Context, accountID uuid.UUID, plan string) (*response_models.CreateCheckoutResponse, error)
	// Complete promotes the account once the provider confirms payment. It is
	// idempotent: a non-pending intent is returned unchanged.
	Complete(ctx context.Context, reference string, accountID uuid.UUID) (*dbm.PaymentIntent, error)
	Fail(ctx context.Context, reference string, accountID uuid.UUID) (*dbm.PaymentIntent, error)
	HandleWebhook(ctx context.Context, body []byte, header http.Header) error
	// Close waits for activation mail still being sent, until ctx is done.
	Close(ctx context.Context) error
}

type PaymentDeps struct {
	Payments repositories.PaymentRepository
	Accounts repositories.AccountRepository
	Gate     EntitlementService
	Provider PaymentProvider
	Mailer   IMailService
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Now      func() time.Time
	Timeout  time.Duration
}

type paymentService struct {
	PaymentDeps
	cfg config.PaymentConfig

	mail sync.WaitGroup
}

func NewPaymentService(cfg config.PaymentConfig, deps PaymentDeps) PaymentService {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Mailer == nil {
		deps.Mailer = noopMailService{}
	}
	return &paymentService{PaymentDeps: deps, cfg: cfg}
}

func (p *paymentService) Open(ctx context.Context, accountID uuid.UUID, planCode string) (*response_models.CreateCheckoutResponse, error) {
	plan, ok := dbm.ParsePlan(planCode)
	if !ok {
		return nil, utils.ErrInvalidPlan
	}

	ctx, cancel := withStoreTimeout(ctx, p.Timeout)
	defer cancel()

	account, err := p.Accounts.FindById(ctx, accountID)
	if err != nil {
		return nil, storeError("load account", err)
	}
	if account == nil {
		return nil, utils.ErrAccountNotFound
	}

	token, err := utils.GenerateSecureToken(10)
	if err != nil {
		return nil, fmt.Errorf("generate reference: %w", err)
	}

	intent := &dbm.PaymentIntent{
		Reference:   referencePrefix + token,
		AccountID:   accountID,
		Plan:        plan,
		AmountMinor: p.cfg.PriceFor(plan),
		Currency:    p.cfg.Currency,
		Status:      dbm.PaymentPending,
		Provider:    p.Provider.Name(),
	}
	if err := p.Payments.Insert(ctx, intent); err != nil {
		return nil, storeError("create payment intent", err)
	}

	checkout, err := p.Provider.CreateCheckout(ctx, CheckoutRequest{
		Reference:   intent.Reference,
		Plan:        plan,
		AmountMinor: intent.AmountMinor,
		Currency:    intent.Currency,
	})
	if err != nil {
		if _, terr := p.Payments.Transition(ctx, intent.ID, dbm.PaymentFailed, p.Now(), nil); terr != nil {
			p.Log.Error("mark intent failed", zap.String("reference", intent.Reference), zap.Error(terr))
		}
		p.Metrics.ObservePayment(string(plan), "checkout_failed")
		p.Log.Error("create checkout", zap.String("reference", intent.Reference), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", utils.ErrPaymentProvider, err)
	}

	meta, _ := json.Marshal(checkout.Metadata)
	if err := p.Payments.SetProviderData(ctx, intent.ID, checkout.ProviderRef, meta); err != nil {
		return nil, storeError("save provider data", err)
	}

	p.Metrics.ObservePayment(string(plan), "opened")
	p.Log.Info("payment intent opened",
		zap.String("reference", intent.Reference),
		zap.String("account_id", accountID.String()),
		zap.String("plan", string(plan)),
		zap.Int64("amount_minor", intent.AmountMinor))

	return &response_models.CreateCheckoutResponse{
		PaymentReference: intent.Reference,
		Amount:           intent.AmountMinor,
		Currency:         intent.Currency,
		Provider:         intent.Provider,
		CheckoutURL:      checkout.CheckoutURL,
	}, nil
}

func (p *paymentService) findOwned(ctx context.Context, reference string, accountID uuid.UUID) (*dbm.PaymentIntent, error) {
	intent, err := p.Payments.FindByReference(ctx, reference, accountID)
	if err != nil {
		return nil, storeError("load payment intent", err)
	}
	if intent == nil {
		return nil, utils.ErrPaymentNotFound
	}
	return intent, nil
}

func (p *paymentService) Complete(ctx context.Context, reference string, accountID uuid.UUID) (*dbm.PaymentIntent, error) {
	ctx, cancel := withStoreTimeout(ctx, p.Timeout)
	defer cancel()

	intent, err := p.findOwned(ctx, reference, accountID)
	if err != nil {
		return nil, err
	}
	if intent.Status != dbm.PaymentPending {
		return intent, nil
	}

	paid, err := p.Provider.ConfirmPaid(ctx, intent)
	if err != nil {
		p.Log.Error("confirm payment", zap.String("reference", reference), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", utils.ErrPaymentProvider, err)
	}
	if !paid {
		return nil, utils.ErrPaymentUnverified
	}

	if err := p.complete(ctx, intent); err != nil {
		return nil, err
	}
	return p.findOwned(ctx, reference, accountID)
}

// complete wins or loses the pending->completed race. Only the winner promotes,
// inside the same unit of work as the status change.
func (p *paymentService) complete(ctx context.Context, intent *dbm.PaymentIntent) error {
	at := p.Now()
	var promoted *dbm.Account

	applied, err := p.Payments.Transition(ctx, intent.ID, dbm.PaymentCompleted, at, func(ctx context.Context) error {
		account, err := p.Gate.Promote(ctx, intent.AccountID, intent.Plan, at)
		promoted = account
		return err
	})
	if err != nil {
		return storeError("complete payment", err)
	}
	if !applied {
		return nil
	}

	p.Metrics.ObservePayment(string(intent.Plan), "completed")
	p.Log.Info("payment completed",
		zap.String("reference", intent.Reference),
		zap.String("account_id", intent.AccountID.String()))

	if promoted != nil && promoted.PremiumExpiresAt != nil {
		p.mail.Add(1)
		go func(email string, expiresAt time.Time) {
			defer p.mail.Done()
			p.notifyActivated(email, intent.Plan, expiresAt)
		}(promoted.Email, *promoted.ExpiresAt())
	}
	return nil
}

func (p *paymentService) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.mail.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.Log.Warn("activation mail still pending at shutdown")
		return ctx.Err()
	}
}

func (p *paymentService) notifyActivated(email string, plan dbm.Plan, expiresAt time.Time) {
	if err := p.Mailer.SendPremiumActivated(email, plan, expiresAt); err != nil {
		p.Log.Warn("send activation mail", zap.String("email", email), zap.Error(err))
	}
}

func (p *paymentService) Fail(ctx context.Context, reference string, accountID uuid.UUID) (*dbm.PaymentIntent, error) {
	ctx, cancel := withStoreTimeout(ctx, p.Timeout)
	defer cancel()

	intent, err := p.findOwned(ctx, reference, accountID)
	if err != nil {
		return nil, err
	}
	if intent.Status != dbm.PaymentPending {
		return intent, nil
	}

	applied, err := p.Payments.Transition(ctx, intent.ID, dbm.PaymentFailed, p.Now(), nil)
	if err != nil {
		return nil, storeError("fail payment", err)
	}
	if applied {
		p.Metrics.ObservePayment(string(intent.Plan), "failed")
	}
	return p.findOwned(ctx, reference, accountID)
}

func (p *paymentService) HandleWebhook(ctx context.Context, body []byte, header http.Header) error {
	event, err := p.Provider.ParseWebhook(ctx, body, header)
	if err != nil {
		p.Log.Warn("rejected payment webhook", zap.Error(err))
		return err
	}
	if event.Probe {
		return nil
	}

	ctx, cancel := withStoreTimeout(ctx, p.Timeout)
	defer cancel()

	intent, err := p.Payments.FindByProviderRef(ctx, p.Provider.Name(), event.ProviderRef)
	if err != nil {
		return storeError("load payment intent", err)
	}
	if intent == nil {
		// Acknowledged so the provider stops retrying.
		p.Log.Warn("webhook for unknown payment", zap.String("provider_ref", event.ProviderRef))
		return nil
	}
	if intent.Status != dbm.PaymentPending {
		return nil
	}

	if event.Paid {
		return p.complete(ctx, intent)
	}

	applied, err := p.Payments.Transition(ctx, intent.ID, dbm.PaymentFailed, p.Now(), nil)
	if err != nil {
		return storeError("fail payment", err)
	}
	if applied {
		p.Metrics.ObservePayment(string(intent.Plan), "failed")
	}
	return nil
}

// IsInvalidWebhook reports whether err came from a payload that failed
// verification, as opposed to a processing failure worth a provider retry.
func IsInvalidWebhook(err error) bool {
	return errors.Is(err, ErrInvalidWebhook)
}
