package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/payOSHQ/payos-lib-golang"
	"go.uber.org/zap"
	"zubari/internal/config"
	"zubari/internal/models/db_models"
)

const (
	ProviderPayOS = "payos"
	ProviderMock  = "mock"
)

type CheckoutRequest struct {
	Reference   string
	Plan        db_models.Plan
	AmountMinor int64
	Currency    string
}

type Checkout struct {
	ProviderRef string
	CheckoutURL string
	Metadata    map[string]any
}

// WebhookEvent is a verified provider callback. Probe events carry no payment.
type WebhookEvent struct {
	ProviderRef string
	Paid        bool
	Probe       bool
	Raw         any
}

type PaymentProvider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	// ConfirmPaid asks the provider, server to server, whether the intent has
	// been paid in full.
	ConfirmPaid(ctx context.Context, intent *db_models.PaymentIntent) (bool, error)
	// ParseWebhook verifies the callback signature before decoding it.
	ParseWebhook(ctx context.Context, body []byte, header http.Header) (*WebhookEvent, error)
}

var (
	ErrInvalidWebhook      = errors.New("invalid webhook payload")
	ErrUnsupportedCurrency = errors.New("currency not supported by payment provider")
)

func NewPaymentProvider(cfg config.PaymentConfig, log *zap.Logger) (PaymentProvider, error) {
	switch cfg.Provider {
	case ProviderPayOS:
		return NewPayOSProvider(cfg)
	case ProviderMock:
		log.Warn("mock payment provider configured: payments are trusted without provider verification",
			zap.String("gap", "UpstreamPaymentUnverified"))
		return NewMockPaymentProvider(log), nil
	default:
		return nil, fmt.Errorf("unsupported payment provider %q", cfg.Provider)
	}
}

type payOSProvider struct {
	returnURL string
	cancelURL string
}

// payOS test callbacks sent when a webhook URL is registered use this code.
const payOSProbeOrderCode = 123

func NewPayOSProvider(cfg config.PaymentConfig) (PaymentProvider, error) {
	if err := payos.Key(cfg.PayOSClientID, cfg.PayOSAPIKey, cfg.PayOSChecksumKey); err != nil {
		return nil, fmt.Errorf("payos client init: %w", err)
	}
	return &payOSProvider{
		returnURL: cfg.ReturnURL,
		cancelURL: cfg.CancelURL,
	}, nil
}

func (p *payOSProvider) Name() string { return ProviderPayOS }

func (p *payOSProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if req.Currency != config.PayOSCurrency {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, req.Currency)
	}

	orderCode, err := newOrderCode()
	if err != nil {
		return nil, err
	}

	body := payos.CheckoutRequestType{
		OrderCode: orderCode,
		Amount:    int(req.AmountMinor),
		Items: []payos.Item{{
			Name:     fmt.Sprintf("Premium (%s)", req.Plan),
			Price:    int(req.AmountMinor),
			Quantity: 1,
		}},
		// payOS caps descriptions at 25 characters.
		Description: req.Reference,
		CancelUrl:   p.cancelURL,
		ReturnUrl:   p.returnURL,
	}

	resp, err := payos.CreatePaymentLink(body)
	if err != nil {
		return nil, fmt.Errorf("payos create link: %w", err)
	}

	return &Checkout{
		ProviderRef: payOSRef(orderCode),
		CheckoutURL: resp.CheckoutUrl,
		Metadata: map[string]any{
			"payos_link": resp,
			"plan":       req.Plan,
		},
	}, nil
}

func (p *payOSProvider) ConfirmPaid(ctx context.Context, intent *db_models.PaymentIntent) (bool, error) {
	if intent.Currency != config.PayOSCurrency {
		return false, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, intent.Currency)
	}
	orderCode, ok := strings.CutPrefix(intent.ProviderRef, "payos:")
	if !ok {
		return false, nil
	}

	info, err := payos.GetPaymentLinkInformation(orderCode)
	if err != nil {
		return false, fmt.Errorf("payos get payment link: %w", err)
	}

	return info.Status == "PAID" && int64(info.Amount) == intent.AmountMinor, nil
}

func (p *payOSProvider) ParseWebhook(ctx context.Context, body []byte, _ http.Header) (*WebhookEvent, error) {
	var hook payos.WebhookType
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWebhook, err)
	}

	data, err := payos.VerifyPaymentWebhookData(hook)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWebhook, err)
	}

	if data.OrderCode == payOSProbeOrderCode {
		return &WebhookEvent{Probe: true}, nil
	}

	return &WebhookEvent{
		ProviderRef: payOSRef(data.OrderCode),
		Paid:        data.Code == "00",
		Raw:         data,
	}, nil
}

func payOSRef(orderCode int64) string {
	return "payos:" + strconv.FormatInt(orderCode, 10)
}

// newOrderCode draws a random positive order code that fits payOS's
// JavaScript-safe integer range and never collides with the probe code.
func newOrderCode() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<52))
	if err != nil {
		return 0, fmt.Errorf("order code: %w", err)
	}
	return n.Int64() + 1_000_000, nil
}

// mockPaymentProvider accepts every payment. It exists for local runs and
// tests, and logs every confirmation it hands out unchecked.
type mockPaymentProvider struct {
	log *zap.Logger
}

func NewMockPaymentProvider(log *zap.Logger) PaymentProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &mockPaymentProvider{log: log}
}

func (m *mockPaymentProvider) Name() string { return ProviderMock }

func (m *mockPaymentProvider) CreateCheckout(_ context.Context, req CheckoutRequest) (*Checkout, error) {
	return &Checkout{
		ProviderRef: "mock:" + req.Reference,
		Metadata:    map[string]any{"plan": req.Plan},
	}, nil
}

func (m *mockPaymentProvider) ConfirmPaid(_ context.Context, intent *db_models.PaymentIntent) (bool, error) {
	m.log.Warn("payment accepted without provider verification",
		zap.String("gap", "UpstreamPaymentUnverified"),
		zap.String("reference", intent.Reference))
	return true, nil
}

type mockWebhook struct {
	Reference string `json:"reference"`
	Paid      bool   `json:"paid"`
}

func (m *mockPaymentProvider) ParseWebhook(_ context.Context, body []byte, _ http.Header) (*WebhookEvent, error) {
	var hook mockWebhook
	if err := json.Unmarshal(body, &hook); err != nil || hook.Reference == "" {
		return nil, ErrInvalidWebhook
	}
	return &WebhookEvent{
		ProviderRef: "mock:" + hook.Reference,
		Paid:        hook.Paid,
		Raw:         hook,
	}, nil
}
