package db_models

import "time"

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Account struct {
	BaseModel
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:32;not null"`

	Tier Tier `gorm:"size:16;not null;index"`
	// Unix milliseconds; only meaningful while Tier is premium.
	PremiumExpiresAt *int64
	// Metered calls consumed on the free tier. Reset only by a promotion.
	UsageCount int `gorm:"not null"`
}

// PremiumActive reports whether the stored premium window is still open at
// now. An account expiring exactly at now is treated as expired.
func (a *Account) PremiumActive(now time.Time) bool {
	return a.Tier == TierPremium &&
		a.PremiumExpiresAt != nil &&
		*a.PremiumExpiresAt > now.UnixMilli()
}

// EffectiveTier demotes an expired premium account on read.
func (a *Account) EffectiveTier(now time.Time) Tier {
	if a.PremiumActive(now) {
		return TierPremium
	}
	return TierFree
}

func (a *Account) ExpiresAt() *time.Time {
	if a.PremiumExpiresAt == nil {
		return nil
	}
	t := time.UnixMilli(*a.PremiumExpiresAt).UTC()
	return &t
}
