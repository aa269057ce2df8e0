package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zubari/internal/config"
	"zubari/internal/models/db_models"
	"zubari/internal/repositories"
	"zubari/pkg/utils"
)

type fakeProvider struct {
	createFn  func(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	confirmFn func(ctx context.Context, intent *db_models.PaymentIntent) (bool, error)
	webhookFn func(ctx context.Context, body []byte, header http.Header) (*WebhookEvent, error)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return &Checkout{ProviderRef: "fake:" + req.Reference, CheckoutURL: "https://pay.example/" + req.Reference}, nil
}

func (f *fakeProvider) ConfirmPaid(ctx context.Context, intent *db_models.PaymentIntent) (bool, error) {
	if f.confirmFn != nil {
		return f.confirmFn(ctx, intent)
	}
	return true, nil
}

func (f *fakeProvider) ParseWebhook(ctx context.Context, body []byte, header http.Header) (*WebhookEvent, error) {
	if f.webhookFn != nil {
		return f.webhookFn(ctx, body, header)
	}
	return nil, ErrInvalidWebhook
}

type recordingMailer struct {
	sent chan string
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{sent: make(chan string, 8)}
}

func (r *recordingMailer) SendPremiumActivated(to string, _ db_models.Plan, _ time.Time) error {
	r.sent <- to
	return nil
}

type paymentFixture struct {
	svc      PaymentService
	gate     EntitlementService
	accounts repositories.AccountRepository
	payments repositories.PaymentRepository
	mailer   *recordingMailer
	clock    *fakeClock
	account  *db_models.Account
}

var testPaymentConfig = config.PaymentConfig{
	Provider:     "mock",
	Currency:     "KES",
	MonthlyMinor: 100000,
	YearlyMinor:  1000000,
}

func newPaymentFixture(t *testing.T, provider PaymentProvider) *paymentFixture {
	t.Helper()

	clock := newFakeClock()
	accounts := repositories.NewMemoryAccountRepository()
	payments := repositories.NewMemoryPaymentRepository()
	gate := newGate(accounts, clock)
	mailer := newRecordingMailer()

	svc := NewPaymentService(testPaymentConfig, PaymentDeps{
		Payments: payments,
		Accounts: accounts,
		Gate:     gate,
		Provider: provider,
		Mailer:   mailer,
		Now:      clock.Now,
		Timeout:  time.Second,
	})

	return &paymentFixture{
		svc:      svc,
		gate:     gate,
		accounts: accounts,
		payments: payments,
		mailer:   mailer,
		clock:    clock,
		account:  seedAccount(t, accounts, "buyer@example.com"),
	}
}

func TestOpen_CreatesPendingIntent(t *testing.T) {
	f := newPaymentFixture(t, &fakeProvider{})

	checkout, err := f.svc.Open(context.Background(), f.account.ID, "Yearly")
	require.NoError(t, err)
	assert.Regexp(t, `^SUB-[A-Z2-7]{16}$`, checkout.PaymentReference)
	assert.EqualValues(t, 1000000, checkout.Amount)
	assert.Equal(t, "KES", checkout.Currency)
	assert.Equal(t, "fake", checkout.Provider)
	assert.Equal(t, "https://pay.example/"+checkout.PaymentReference, checkout.CheckoutURL)

	intent, err := f.payments.FindByReference(context.Background(), checkout.PaymentReference, f.account.ID)
	require.NoError(t, err)
	require.NotNil(t, intent)
	assert.Equal(t, db_models.PaymentPending, intent.Status)
	assert.Equal(t, db_models.PlanYearly, intent.Plan)
	assert.Equal(t, "fake:"+checkout.PaymentReference, intent.ProviderRef)
}

func TestOpen_ReferencesAreUnique(t *testing.T) {
	f := newPaymentFixture(t, &fakeProvider{})

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		checkout, err := f.svc.Open(context.Background(), f.account.ID, "monthly")
		require.NoError(t, err)
		assert.False(t, seen[checkout.PaymentReference])
		seen[checkout.PaymentReference] = true
	}
}

func TestOpen_InvalidPlan(t *testing.T) {
	f := newPaymentFixture(t, &fakeProvider{})

	for _, plan := range []string{"", "weekly", "lifetime"} {
		_, err := f.svc.Open(context.Background(), f.account.ID, plan)
		assert.ErrorIs(t, err, utils.ErrInvalidPlan, "plan=%q", plan)
	}
}

func TestOpen_UnknownAccount(t *testing.T) {
	f := newPaymentFixture(t, &fakeProvider{})

	_, err := f.svc.Open(context.Background(), uuid.New(), "monthly")
	assert.ErrorIs(t, err, utils.ErrAccountNotFound)
}

func TestOpen_ProviderFailureMarksIntentFailed(t *testing.T) {
	var reference string
	f := newPaymentFixture(t, &fakeProvider{
		createFn: func(_ context.Context, req CheckoutRequest) (*Checkout, error) {
			reference = req.Reference
			return nil, errors.New("gateway down")
		},
	})

	_, err := f.svc.Open(context.Background(), f.account.ID, "monthly")
	assert.ErrorIs(t, err, utils.ErrPaymentProvider)

	intent, err := f.payments.FindByReference(context.Background(), reference, f.account.ID)
	require.NoError(t, err)
	require.NotNil(t, intent)
	assert.Equal(t, db_models.PaymentFailed, intent.Status)
}

func TestComplete_PromotesOnce(t *testing.T) {
	f := newPaymentFixture(t, NewMockPaymentProvider(nil))
	ctx := context.Background()

	checkout, err := f.svc.Open(ctx, f.account.ID, "monthly")
	require.NoError(t, err)

	opened := f.clock.Now()
	intent, err := f.svc.Complete(ctx, checkout.PaymentReference, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, db_models.PaymentCompleted, intent.Status)
	require.NotNil(t, intent.CompletedAt)

	account, err := f.accounts.FindById(ctx, f.account.ID)
	require.NoError(t, err)
	assert.True(t, account.PremiumActive(f.clock.Now()))
	expiry := *account.PremiumExpiresAt
	assert.Equal(t, opened.AddDate(0, 0, 30).UnixMilli(), expiry)

	select {
	case to := <-f.mailer.sent:
		assert.Equal(t, "buyer@example.com", to)
	case <-time.After(time.Second):
		t.Fatal("activation mail not sent")
	}

	// A later replay must neither fail nor extend the window.
	f.clock.Advance(48 * time.Hour)
	again, err := f.svc.Complete(ctx, checkout.PaymentReference, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, db_models.PaymentCompleted, again.Status)

	account, err = f.accounts.FindById(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, expiry, *account.PremiumExpiresAt)

	select {
	case <-f.mailer.sent:
		t.Fatal("replayed completion sent a second mail")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestComplete_ConcurrentCallsPromoteOnce(t *testing.T) {
	var confirms sync.WaitGroup
	f := newPaymentFixture(t, &fakeProvider{})
	ctx := context.Background()

	checkout, err := f.svc.Open(ctx, f.account.ID, "yearly")
	require.NoError(t, err)

	confirms.Add(4)
	for i := 0; i < 4; i++ {
		go func() {
			defer confirms.Done()
			intent, err := f.svc.Complete(ctx, checkout.PaymentReference, f.account.ID)
			if assert.NoError(t, err) {
				assert.Equal(t, db_models.PaymentCompleted, intent.Status)
			}
		}()
	}
	confirms.Wait()

	select {
	case <-f.mailer.sent:
	case <-time.After(time.Second):
		t.Fatal("activation mail not sent")
	}
	select {
	case <-f.mailer.sent:
		t.Fatal("more than one promotion")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestComplete_ScopedToOwner(t *testing.T) {
	f := newPaymentFixture(t, NewMockPaymentProvider(nil))
	ctx := context.Background()
	other := seedAccount(t, f.accounts, "other@example.com")

	checkout, err := f.svc.Open(ctx, f.account.ID, "monthly")
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, checkout.PaymentReference, other.ID)
	assert.ErrorIs(t, err, utils.ErrPaymentNotFound)

	_, err = f.svc.Fail(ctx, checkout.PaymentReference, other.ID)
	assert.ErrorIs(t, err, utils.ErrPaymentNotFound)

	account, err := f.accounts.FindById(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, db_models.TierFree, account.Tier)
}

func TestComplete_UnknownReference(t *testing.T) {
	f := newPaymentFixture(t, NewMockPaymentProvider(nil))

	_, err := f.svc.Complete(context.Background(), "SUB-missing", f.account.ID)
	assert.ErrorIs(t, err, utils.ErrPaymentNotFound)
}

func TestComplete_Unverified(t *testing.T) {
	f := newPaymentFixture(t, &fakeProvider{
		confirmFn: func(context.Context, *db_models.PaymentIntent) (bool, error) { return false, nil },
	})
	ctx := context.Background()

	checkout, err := f.svc.Open(ctx, f.account.ID, "monthly")
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, checkout.PaymentReference, f.account.ID)
	assert.ErrorIs(t, err, utils.ErrPaymentUnverified)

	intent, err := f.payments.FindByReference(ctx, checkout.PaymentReference, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, db_models.PaymentPending, intent.Status)

	account, err := f.accounts.FindById(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, db_models.TierFree, account.Tier)
}

func TestComplete_ProviderError(t *testing.T) {
	f := newPaymentFixture(t, &fakeProvider{
		confirmFn: func(context.Context, *db_models.PaymentIntent) (bool, error) {
			return false, errors.New("timeout")
		},
	})
	ctx := context.Background()

	checkout, err := f.svc.Open(ctx, f.account.ID, "monthly")
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, checkout.PaymentReference, f.account.ID)
	assert.ErrorIs(t, err, utils.ErrPaymentProvider)
}

func TestFail_ThenCompleteIsNoop(t *testing.T) {
	f := newPaymentFixture(t, NewMockPaymentProvider(nil))
	ctx := context.Background()

	checkout, err := f.svc.Open(ctx, f.account.ID, "monthly")
	require.NoError(t, err)

	failed, err := f.svc.Fail(ctx, checkout.PaymentReference, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, db_models.PaymentFailed, failed.Status)
	assert.NotNil(t, failed.FailedAt)

	intent, err := f.svc.Complete(ctx, checkout.PaymentReference, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, db_models.PaymentFailed, intent.Status)

	account, err := f.accounts.FindById(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, db_models.TierFree, account.Tier)
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("paid completes", func(t *testing.T) {
		f := newPaymentFixture(t, NewMockPaymentProvider(nil))
		checkout, err := f.svc.Open(ctx, f.account.ID, "yearly")
		require.NoError(t, err)

		body := []byte(`{"reference":"` + checkout.PaymentReference + `","paid":true}`)
		require.NoError(t, f.svc.HandleWebhook(ctx, body, http.Header{}))
		// Redelivery is acknowledged without a second promotion.
		require.NoError(t, f.svc.HandleWebhook(ctx, body, http.Header{}))

		intent, err := f.payments.FindByReference(ctx, checkout.PaymentReference, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, db_models.PaymentCompleted, intent.Status)

		status, err := f.gate.Status(ctx, f.account.ID)
		require.NoError(t, err)
		assert.True(t, status.IsSubscribed)
	})

	t.Run("unpaid fails", func(t *testing.T) {
		f := newPaymentFixture(t, NewMockPaymentProvider(nil))
		checkout, err := f.svc.Open(ctx, f.account.ID, "monthly")
		require.NoError(t, err)

		body := []byte(`{"reference":"` + checkout.PaymentReference + `","paid":false}`)
		require.NoError(t, f.svc.HandleWebhook(ctx, body, http.Header{}))

		intent, err := f.payments.FindByReference(ctx, checkout.PaymentReference, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, db_models.PaymentFailed, intent.Status)
	})

	t.Run("unknown reference is acknowledged", func(t *testing.T) {
		f := newPaymentFixture(t, NewMockPaymentProvider(nil))
		err := f.svc.HandleWebhook(ctx, []byte(`{"reference":"SUB-nope","paid":true}`), http.Header{})
		assert.NoError(t, err)
	})

	t.Run("probe is acknowledged", func(t *testing.T) {
		f := newPaymentFixture(t, &fakeProvider{
			webhookFn: func(context.Context, []byte, http.Header) (*WebhookEvent, error) {
				return &WebhookEvent{Probe: true}, nil
			},
		})
		assert.NoError(t, f.svc.HandleWebhook(ctx, []byte(`{}`), http.Header{}))
	})

	t.Run("invalid payload is rejected", func(t *testing.T) {
		f := newPaymentFixture(t, NewMockPaymentProvider(nil))
		err := f.svc.HandleWebhook(ctx, []byte(`not json`), http.Header{})
		assert.True(t, IsInvalidWebhook(err))
	})
}

func TestComplete_SQLiteRollsBackWhenPromotionFails(t *testing.T) {
	accounts, payments := newSQLiteRepos(t)
	clock := newFakeClock()
	gate := newGate(accounts, clock)
	svc := NewPaymentService(testPaymentConfig, PaymentDeps{
		Payments: payments,
		Accounts: accounts,
		Gate:     gate,
		Provider: NewMockPaymentProvider(nil),
		Now:      clock.Now,
		Timeout:  time.Second,
	})
	ctx := context.Background()

	// An intent whose account does not exist: promotion fails inside the
	// transition and the intent must stay pending.
	orphan := &db_models.PaymentIntent{
		Reference: "SUB-orphan",
		AccountID: uuid.New(),
		Plan:      db_models.PlanMonthly,
		Status:    db_models.PaymentPending,
		Provider:  ProviderMock,
	}
	require.NoError(t, payments.Insert(ctx, orphan))

	_, err := svc.Complete(ctx, orphan.Reference, orphan.AccountID)
	assert.ErrorIs(t, err, utils.ErrAccountNotFound)

	intent, err := payments.FindByReference(ctx, orphan.Reference, orphan.AccountID)
	require.NoError(t, err)
	assert.Equal(t, db_models.PaymentPending, intent.Status)
}

type blockingMailer struct {
	release chan struct{}
	sent    chan string
}

func (b *blockingMailer) SendPremiumActivated(to string, _ db_models.Plan, _ time.Time) error {
	<-b.release
	b.sent <- to
	return nil
}

func TestClose_WaitsForActivationMail(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	accounts := repositories.NewMemoryAccountRepository()
	mailer := &blockingMailer{release: make(chan struct{}), sent: make(chan string, 1)}
	svc := NewPaymentService(testPaymentConfig, PaymentDeps{
		Payments: repositories.NewMemoryPaymentRepository(),
		Accounts: accounts,
		Gate:     newGate(accounts, clock),
		Provider: NewMockPaymentProvider(nil),
		Mailer:   mailer,
		Now:      clock.Now,
		Timeout:  time.Second,
	})
	account := seedAccount(t, accounts, "shutdown@example.com")

	checkout, err := svc.Open(ctx, account.ID, "monthly")
	require.NoError(t, err)
	_, err = svc.Complete(ctx, checkout.PaymentReference, account.ID)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Close(short), context.DeadlineExceeded)

	close(mailer.release)
	require.NoError(t, svc.Close(ctx))
	select {
	case to := <-mailer.sent:
		assert.Equal(t, "shutdown@example.com", to)
	default:
		t.Fatal("Close returned before the mail was sent")
	}
}
