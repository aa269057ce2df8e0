package response_models

import (
	"encoding/json"
	"time"
)

type AccountLoginResponse struct {
	Token             string    `json:"token"`
	ExpiresAt         time.Time `json:"expires_at"`
	IsUserHavePremium bool      `json:"is_user_have_premium"`
}

// Remaining is a request allowance. Negative values mean unbounded and
// encode as "unlimited".
type Remaining int

func (r Remaining) MarshalJSON() ([]byte, error) {
	if r < 0 {
		return []byte(`"unlimited"`), nil
	}
	return json.Marshal(int(r))
}

type AccountStatus struct {
	Email             string     `json:"email"`
	SubscriptionType  string     `json:"subscriptionType"`
	IsSubscribed      bool       `json:"isSubscribed"`
	SubscriptionEnds  *time.Time `json:"subscriptionExpires,omitempty"`
	RequestsUsed      int        `json:"requestsUsed"`
	RequestsRemaining Remaining  `json:"requestsRemaining"`
}

type UsageEventResponse struct {
	ID         string    `json:"id"`
	Capability string    `json:"capability"`
	OccurredAt time.Time `json:"occurred_at"`
}
