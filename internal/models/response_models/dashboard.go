package response_models

import (
	"time"
)

type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// "day" | "week" | "month"
	Interval string `json:"interval"`
	// IANA timezone used for bucketing (UTC when empty)
	Timezone string `json:"timezone,omitempty"`
}

type KPIBlock struct {
	TotalAccounts   int64   `json:"total_accounts"`
	NewAccounts     int64   `json:"new_accounts"`
	PremiumAccounts int64   `json:"premium_accounts"`
	FreeAccounts    int64   `json:"free_accounts"`
	ConversionPct   float64 `json:"conversion_pct"` // premium / total * 100
	MeteredCalls    int64   `json:"metered_calls"`

	CompletedPayments int64 `json:"completed_payments"`
	PendingPayments   int64 `json:"pending_payments"`
	FailedPayments    int64 `json:"failed_payments"`

	// Financial KPIs
	MRRMinor  int64   `json:"mrr_minor"`  // monthly recurring revenue (minor units)
	ARRMinor  int64   `json:"arr_minor"`  // ARR = 12 * MRR
	ARPUMinor float64 `json:"arpu_minor"` // avg monthly revenue per paying subscription
}

type SeriesPoint struct {
	Bucket time.Time `json:"bucket"`
	Value  int64     `json:"value"`
}

type RevenueSeries struct {
	Currency   string        `json:"currency"`
	Points     []SeriesPoint `json:"points"`
	TotalMinor int64         `json:"total_minor"`
}

type CountSeries struct {
	Points []SeriesPoint `json:"points"`
}

type PlanMixItem struct {
	PlanCode     string  `json:"plan_code"`
	Count        int64   `json:"count"`
	Percent      float64 `json:"percent"`
	RevenueMinor int64   `json:"revenue_minor"`
}

type PlanMix struct {
	Items []PlanMixItem `json:"items"`
}

type CapabilityUsage struct {
	Capability string `json:"capability"`
	Count      int64  `json:"count"`
}

type RecentPayment struct {
	Reference    string     `json:"reference"`
	PaidAt       *time.Time `json:"paid_at"`
	Plan         string     `json:"plan"`
	AmountMinor  int64      `json:"amount_minor"`
	Currency     string     `json:"currency"`
	Provider     string     `json:"provider"`
	AccountEmail string     `json:"account_email"`
}

type DashboardReport struct {
	Range          TimeRange         `json:"range"`
	KPIs           KPIBlock          `json:"kpis"`
	Revenue        RevenueSeries     `json:"revenue"`
	NewUsers       CountSeries       `json:"new_users"`
	PlanMix        PlanMix           `json:"plan_mix"`
	Usage          []CapabilityUsage `json:"usage"`
	RecentPayments []RecentPayment   `json:"recent_payments"`
}
