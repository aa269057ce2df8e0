package response_models

type CreateCheckoutResponse struct {
	PaymentReference string `json:"paymentReference"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Provider         string `json:"provider"`
	CheckoutURL      string `json:"checkout_url,omitempty"`
}

type PaymentStatusResponse struct {
	PaymentReference string `json:"paymentReference"`
	Status           string `json:"status"`
}
