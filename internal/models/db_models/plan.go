package db_models

import (
	"strings"
	"time"
)

type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

func ParsePlan(s string) (Plan, bool) {
	switch Plan(strings.ToLower(strings.TrimSpace(s))) {
	case PlanMonthly:
		return PlanMonthly, true
	case PlanYearly:
		return PlanYearly, true
	}
	return "", false
}

// ExpiryFrom returns the end of a premium window bought at t. Periods do not
// stack: a second purchase restarts the window from its own t.
func (p Plan) ExpiryFrom(t time.Time) time.Time {
	switch p {
	case PlanYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 0, 30)
	}
}
