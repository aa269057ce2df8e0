package request_models

// Field names follow the bundled static pages.

type InitiatePaymentRequest struct {
	SubscriptionType string `json:"subscriptionType" binding:"required,oneof=monthly yearly"`
}

type VerifyPaymentRequest struct {
	PaymentReference string `json:"paymentReference" binding:"required"`
}
