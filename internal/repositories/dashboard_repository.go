package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	dbm "zubari/internal/models/db_models"
)

// DashboardRepository answers the aggregate questions of the admin report.
// Bucketing by interval and timezone is left to the caller so the queries
// stay portable between postgres and sqlite.
type DashboardRepository interface {
	// KPIs / counts
	CountTotalAccounts(ctx context.Context) (int64, error)
	CountPremiumActive(ctx context.Context, at time.Time) (int64, error)
	CountPaymentsByStatus(ctx context.Context, start, end time.Time) ([]StatusCount, error)
	UsageByCapability(ctx context.Context, start, end time.Time) ([]CapabilityCount, error)

	// Raw timestamps (unix seconds) of accounts created in [start, end].
	AccountCreationTimes(ctx context.Context, start, end time.Time) ([]int64, error)
	// Completed payments in [start, end], newest first.
	CompletedPayments(ctx context.Context, start, end time.Time) ([]PaymentRow, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

// ---------- Row helpers ----------
type StatusCount struct {
	Status dbm.PaymentStatus `gorm:"column:status"`
	Count  int64             `gorm:"column:count"`
}

type CapabilityCount struct {
	Capability dbm.CapabilityKind `gorm:"column:capability"`
	Count      int64              `gorm:"column:count"`
}

type PaymentRow struct {
	Reference    string   `gorm:"column:reference"`
	Plan         dbm.Plan `gorm:"column:plan"`
	AmountMinor  int64    `gorm:"column:amount_minor"`
	Currency     string   `gorm:"column:currency"`
	Provider     string   `gorm:"column:provider"`
	CompletedAt  int64    `gorm:"column:completed_at"`
	AccountEmail string   `gorm:"column:email"`
}

// ---------- Counts ----------
func (r *dashboardRepository) CountTotalAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&dbm.Account{}).Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountPremiumActive(ctx context.Context, at time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&dbm.Account{}).
		Where("tier = ? AND premium_expires_at IS NOT NULL AND premium_expires_at > ?", dbm.TierPremium, at.UnixMilli()).
		Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountPaymentsByStatus(ctx context.Context, start, end time.Time) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&dbm.PaymentIntent{}).
		Select("status, COUNT(*) AS count").
		Where("created_at BETWEEN ? AND ?", start.Unix(), end.Unix()).
		Group("status").
		Find(&rows).Error
	return rows, err
}

func (r *dashboardRepository) UsageByCapability(ctx context.Context, start, end time.Time) ([]CapabilityCount, error) {
	var rows []CapabilityCount
	err := r.db.WithContext(ctx).
		Model(&dbm.UsageEvent{}).
		Select("capability, COUNT(*) AS count").
		Where("occurred_at BETWEEN ? AND ?", start.Unix(), end.Unix()).
		Group("capability").
		Order("count DESC").
		Find(&rows).Error
	return rows, err
}

// ---------- Series input ----------
func (r *dashboardRepository) AccountCreationTimes(ctx context.Context, start, end time.Time) ([]int64, error) {
	var out []int64
	err := r.db.WithContext(ctx).
		Model(&dbm.Account{}).
		Where("created_at BETWEEN ? AND ?", start.Unix(), end.Unix()).
		Order("created_at ASC").
		Pluck("created_at", &out).Error
	return out, err
}

func (r *dashboardRepository) CompletedPayments(ctx context.Context, start, end time.Time) ([]PaymentRow, error) {
	var rows []PaymentRow
	// Join accounts for email
	err := r.db.WithContext(ctx).
		Table("payment_intents p").
		Select(`
			p.reference,
			p.plan,
			p.amount_minor,
			p.currency,
			p.provider,
			p.completed_at,
			a.email`).
		Joins("LEFT JOIN accounts a ON a.id = p.account_id").
		Where("p.status = ?", dbm.PaymentCompleted).
		Where("p.completed_at IS NOT NULL").
		Where("p.completed_at BETWEEN ? AND ?", start.Unix(), end.Unix()).
		Where("p.deleted_at IS NULL").
		Order("p.completed_at DESC").
		Find(&rows).Error
	return rows, err
}
