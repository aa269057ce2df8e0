package services

import (
	"context"
	"sort"
	"time"

	dbm "zubari/internal/models/db_models"
	resp "zubari/internal/models/response_models"
	"zubari/internal/repositories"
)

const recentPaymentsLimit = 10

type DashboardService interface {
	BuildDashboard(ctx context.Context, rng resp.TimeRange) (*resp.DashboardReport, error)
}

type dashboardService struct {
	repo     repositories.DashboardRepository
	currency string
	timeout  time.Duration
	now      func() time.Time
}

func NewDashboardService(repo repositories.DashboardRepository, currency string, timeout time.Duration) DashboardService {
	return &dashboardService{repo: repo, currency: currency, timeout: timeout, now: time.Now}
}

// normalizeRange ensures sane defaults and ordering
func normalizeRange(r resp.TimeRange, now time.Time) resp.TimeRange {
	out := r
	if out.Interval == "" {
		out.Interval = "day"
	}
	if out.End.IsZero() {
		out.End = now.UTC()
	}
	if out.Start.IsZero() {
		out.Start = out.End.AddDate(0, 0, -30) // last 30 days default
	}
	if out.Start.After(out.End) {
		out.Start, out.End = out.End, out.Start
	}
	return out
}

func monthlyEquivalent(priceMinor int64, plan dbm.Plan) int64 {
	switch plan {
	case dbm.PlanMonthly:
		return priceMinor
	case dbm.PlanYearly:
		// Integer floor division
		return priceMinor / 12
	default:
		return 0
	}
}

// bucketStart truncates t to the start of its day, ISO week (Monday) or month
// in loc.
func bucketStart(t time.Time, interval string, loc *time.Location) time.Time {
	t = t.In(loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	switch interval {
	case "month":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	case "week":
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	default:
		return day
	}
}

func series(sums map[time.Time]int64) []resp.SeriesPoint {
	points := make([]resp.SeriesPoint, 0, len(sums))
	for bucket, v := range sums {
		points = append(points, resp.SeriesPoint{Bucket: bucket, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Bucket.Before(points[j].Bucket) })
	return points
}

func (s *dashboardService) BuildDashboard(ctx context.Context, rng resp.TimeRange) (*resp.DashboardReport, error) {
	now := s.now()
	rng = normalizeRange(rng, now)

	loc := time.UTC
	if rng.Timezone != "" {
		l, err := time.LoadLocation(rng.Timezone)
		if err != nil {
			return nil, err
		}
		loc = l
	}

	ctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	// ---------- Core counts ----------
	totalAccounts, err := s.repo.CountTotalAccounts(ctx)
	if err != nil {
		return nil, storeError("count accounts", err)
	}

	premium, err := s.repo.CountPremiumActive(ctx, now)
	if err != nil {
		return nil, storeError("count premium accounts", err)
	}

	statusRows, err := s.repo.CountPaymentsByStatus(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, storeError("count payments", err)
	}
	byStatus := map[dbm.PaymentStatus]int64{}
	for _, r := range statusRows {
		byStatus[r.Status] = r.Count
	}

	usageRows, err := s.repo.UsageByCapability(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, storeError("usage by capability", err)
	}
	usage := make([]resp.CapabilityUsage, 0, len(usageRows))
	var metered int64
	for _, r := range usageRows {
		usage = append(usage, resp.CapabilityUsage{Capability: string(r.Capability), Count: r.Count})
		metered += r.Count
	}

	// ---------- Series ----------
	created, err := s.repo.AccountCreationTimes(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, storeError("account creation times", err)
	}
	newUsers := map[time.Time]int64{}
	for _, ts := range created {
		newUsers[bucketStart(time.Unix(ts, 0), rng.Interval, loc)]++
	}

	paid, err := s.repo.CompletedPayments(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, storeError("completed payments", err)
	}
	revenue := map[time.Time]int64{}
	mixCount := map[dbm.Plan]int64{}
	mixRevenue := map[dbm.Plan]int64{}
	var totalRevenue int64
	for _, p := range paid {
		revenue[bucketStart(time.Unix(p.CompletedAt, 0), rng.Interval, loc)] += p.AmountMinor
		mixCount[p.Plan]++
		mixRevenue[p.Plan] += p.AmountMinor
		totalRevenue += p.AmountMinor
	}

	// ---------- Financials: MRR/ARR/ARPU ----------
	// Every purchase whose window is still open contributes its monthly
	// equivalent; no plan is longer than a year.
	live, err := s.repo.CompletedPayments(ctx, now.AddDate(-1, 0, -1), now)
	if err != nil {
		return nil, storeError("live payments", err)
	}
	var mrr, liveCount int64
	for _, p := range live {
		if p.Plan.ExpiryFrom(time.Unix(p.CompletedAt, 0)).After(now) {
			mrr += monthlyEquivalent(p.AmountMinor, p.Plan)
			liveCount++
		}
	}
	var arpu float64
	if liveCount > 0 {
		arpu = float64(mrr) / float64(liveCount)
	}

	// ---------- Plan mix ----------
	var planMixItems []resp.PlanMixItem
	for _, plan := range planOrder {
		n := mixCount[plan]
		if n == 0 {
			continue
		}
		planMixItems = append(planMixItems, resp.PlanMixItem{
			PlanCode:     string(plan),
			Count:        n,
			Percent:      float64(n) * 100.0 / float64(len(paid)),
			RevenueMinor: mixRevenue[plan],
		})
	}

	// ---------- Recent payments ----------
	recent := make([]resp.RecentPayment, 0, recentPaymentsLimit)
	for _, p := range paid {
		if len(recent) == recentPaymentsLimit {
			break
		}
		paidAt := time.Unix(p.CompletedAt, 0).UTC()
		recent = append(recent, resp.RecentPayment{
			Reference:    p.Reference,
			PaidAt:       &paidAt,
			Plan:         string(p.Plan),
			AmountMinor:  p.AmountMinor,
			Currency:     p.Currency,
			Provider:     p.Provider,
			AccountEmail: p.AccountEmail,
		})
	}

	var conversion float64
	if totalAccounts > 0 {
		conversion = float64(premium) * 100.0 / float64(totalAccounts)
	}

	report := &resp.DashboardReport{
		Range: rng,
		KPIs: resp.KPIBlock{
			TotalAccounts:   totalAccounts,
			NewAccounts:     int64(len(created)),
			PremiumAccounts: premium,
			FreeAccounts:    totalAccounts - premium,
			ConversionPct:   conversion,
			MeteredCalls:    metered,

			CompletedPayments: byStatus[dbm.PaymentCompleted],
			PendingPayments:   byStatus[dbm.PaymentPending],
			FailedPayments:    byStatus[dbm.PaymentFailed],

			MRRMinor:  mrr,
			ARRMinor:  mrr * 12,
			ARPUMinor: arpu,
		},
		Revenue: resp.RevenueSeries{
			Currency:   s.currency,
			Points:     series(revenue),
			TotalMinor: totalRevenue,
		},
		NewUsers:       resp.CountSeries{Points: series(newUsers)},
		PlanMix:        resp.PlanMix{Items: planMixItems},
		Usage:          usage,
		RecentPayments: recent,
	}

	return report, nil
}
