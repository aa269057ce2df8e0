package response_models

type SubscriptionPlan struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
	Period      string `json:"period"`
	PeriodDays  int    `json:"periodDays"`
	Unlimited   bool   `json:"unlimited"`
	SavingsPct  int    `json:"savingsPct,omitempty"`
}
