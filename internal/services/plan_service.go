package services

import (
	"context"
	"time"

	"zubari/internal/config"
	"zubari/internal/models/db_models"
	"zubari/internal/models/response_models"
	"zubari/pkg/utils"
)

type PlanServiceInterface interface {
	GetPlans(ctx context.Context) ([]response_models.SubscriptionPlan, error)
	GetPlanInfoById(ctx context.Context, planCode string) (response_models.SubscriptionPlan, error)
}

func NewPlanService(cfg config.PaymentConfig) PlanServiceInterface {
	return &PlanService{
		cfg: cfg,
	}
}

// PlanService serves the fixed plan catalog. Prices come from configuration so
// the catalog and the amount charged by Open never disagree.
type PlanService struct {
	cfg config.PaymentConfig
}

var planOrder = []db_models.Plan{db_models.PlanMonthly, db_models.PlanYearly}

// planEpoch is a non-leap year start, so a yearly plan reads as 365 days.
var planEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

func (p *PlanService) GetPlans(ctx context.Context) ([]response_models.SubscriptionPlan, error) {
	plans := make([]response_models.SubscriptionPlan, 0, len(planOrder))
	for _, plan := range planOrder {
		plans = append(plans, p.describe(plan))
	}
	return plans, nil
}

func (p *PlanService) GetPlanInfoById(ctx context.Context, planCode string) (response_models.SubscriptionPlan, error) {
	plan, ok := db_models.ParsePlan(planCode)
	if !ok {
		return response_models.SubscriptionPlan{}, utils.ErrInvalidPlan
	}
	return p.describe(plan), nil
}

func (p *PlanService) describe(plan db_models.Plan) response_models.SubscriptionPlan {
	result := response_models.SubscriptionPlan{
		Code:        string(plan),
		Price:       p.cfg.PriceFor(plan),
		Currency:    p.cfg.Currency,
		Unlimited:   true,
		Description: "Unlimited access to every study tool",
	}

	switch plan {
	case db_models.PlanYearly:
		result.Name = "Yearly Premium"
		result.Period = "year"
		// Savings against twelve monthly purchases, in whole percent.
		if monthly := p.cfg.PriceFor(db_models.PlanMonthly) * 12; monthly > 0 && result.Price < monthly {
			result.SavingsPct = int((monthly - result.Price) * 100 / monthly)
		}
	default:
		result.Name = "Monthly Premium"
		result.Period = "month"
	}
	result.PeriodDays = int(plan.ExpiryFrom(planEpoch).Sub(planEpoch).Hours() / 24)

	return result
}
