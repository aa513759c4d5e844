package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fieldservice-backend/models"
)

// Platform reads and writes the public-schema tables.
type Platform struct {
	db *gorm.DB
}

func NewPlatform(db *gorm.DB) *Platform {
	return &Platform{db: db}
}

func (p *Platform) with(ctx context.Context) *gorm.DB {
	return p.db.WithContext(ctx)
}

func (p *Platform) Company(ctx context.Context, id string) (*models.Company, error) {
	var c models.Company
	if err := p.with(ctx).Table("public.companies").Where("id = ?", id).First(&c).Error; err != nil {
		return nil, wrap(err)
	}
	return &c, nil
}

func (p *Platform) Companies(ctx context.Context) ([]models.Company, error) {
	var out []models.Company
	err := p.with(ctx).Table("public.companies").Order("created_at DESC").Find(&out).Error
	return out, err
}

func (p *Platform) CreateCompany(ctx context.Context, c *models.Company) error {
	return p.with(ctx).Table("public.companies").Create(c).Error
}

func (p *Platform) CompanyByStripeAccount(ctx context.Context, accountID string) (*models.Company, error) {
	var c models.Company
	if err := p.with(ctx).Table("public.companies").Where("stripe_account_id = ?", accountID).First(&c).Error; err != nil {
		return nil, wrap(err)
	}
	return &c, nil
}

// UpdateCompany writes the given columns of a company.
func (p *Platform) UpdateCompany(ctx context.Context, id string, cols map[string]any) error {
	res := p.with(ctx).Table("public.companies").Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Platform) Profile(ctx context.Context, id string) (*models.Profile, error) {
	var pr models.Profile
	if err := p.with(ctx).Table("public.profiles").Where("id = ?", id).First(&pr).Error; err != nil {
		return nil, wrap(err)
	}
	return &pr, nil
}

func (p *Platform) ProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var pr models.Profile
	if err := p.with(ctx).Table("public.profiles").Where("lower(email) = lower(?)", email).First(&pr).Error; err != nil {
		return nil, wrap(err)
	}
	return &pr, nil
}

func (p *Platform) TeamMembers(ctx context.Context, companyID string) ([]models.Profile, error) {
	var out []models.Profile
	err := p.with(ctx).Table("public.profiles").Where("company_id = ?", companyID).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (p *Platform) CreateProfile(ctx context.Context, pr *models.Profile) error {
	return p.with(ctx).Table("public.profiles").Create(pr).Error
}

// SetProfileActive enables or disables a login of the company.
func (p *Platform) SetProfileActive(ctx context.Context, companyID, id string, active bool) error {
	res := p.with(ctx).Table("public.profiles").
		Where("id = ? AND company_id = ?", id, companyID).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// KillSwitch reports whether a platform-wide switch is on. A missing row means off.
func (p *Platform) KillSwitch(ctx context.Context, key string) (bool, error) {
	var s models.PlatformSetting
	err := p.with(ctx).Table("public.platform_settings").Where("key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.Enabled, nil
}

func (p *Platform) SetKillSwitch(ctx context.Context, key string, enabled bool, by string) error {
	s := models.PlatformSetting{Key: key, Enabled: enabled, UpdatedBy: by, UpdatedAt: time.Now().UTC()}
	return p.with(ctx).Table("public.platform_settings").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_by", "updated_at"}),
	}).Create(&s).Error
}

func (p *Platform) Settings(ctx context.Context) ([]models.PlatformSetting, error) {
	var out []models.PlatformSetting
	err := p.with(ctx).Table("public.platform_settings").Order("key").Find(&out).Error
	return out, err
}

// Subscription returns the company's subscription; companies without one are on the free plan.
func (p *Platform) Subscription(ctx context.Context, companyID string) (*models.Subscription, error) {
	var s models.Subscription
	err := p.with(ctx).Table("public.subscriptions").Where("company_id = ?", companyID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Subscription{CompanyID: companyID, Plan: models.PlanFree, Status: models.SubscriptionActive}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *Platform) SubscriptionByCustomer(ctx context.Context, stripeCustomerID string) (*models.Subscription, error) {
	var s models.Subscription
	err := p.with(ctx).Table("public.subscriptions").Where("stripe_customer_id = ?", stripeCustomerID).First(&s).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &s, nil
}

// UpsertSubscription creates or replaces the company's subscription row.
func (p *Platform) UpsertSubscription(ctx context.Context, s *models.Subscription) error {
	s.UpdatedAt = time.Now().UTC()
	return p.with(ctx).Table("public.subscriptions").Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan", "status", "stripe_customer_id", "stripe_subscription_id", "current_period_end", "updated_at",
		}),
	}).Create(s).Error
}

// UpdateSubscriptionByCustomer writes columns on the subscription of a provider customer.
func (p *Platform) UpdateSubscriptionByCustomer(ctx context.Context, stripeCustomerID string, cols map[string]any) (int64, error) {
	cols["updated_at"] = time.Now().UTC()
	res := p.with(ctx).Table("public.subscriptions").Where("stripe_customer_id = ?", stripeCustomerID).Updates(cols)
	return res.RowsAffected, res.Error
}

func (p *Platform) FeatureEnabled(ctx context.Context, plan, feature string) (bool, error) {
	var f models.FeatureFlag
	err := p.with(ctx).Table("public.feature_flags").Where("plan = ? AND feature = ?", plan, feature).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return f.Enabled, nil
}

func (p *Platform) FeatureFlags(ctx context.Context) ([]models.FeatureFlag, error) {
	var out []models.FeatureFlag
	err := p.with(ctx).Table("public.feature_flags").Order("plan, feature").Find(&out).Error
	return out, err
}

func (p *Platform) SetFeatureFlag(ctx context.Context, plan, feature string, enabled bool) error {
	f := models.FeatureFlag{Plan: plan, Feature: feature, Enabled: enabled}
	return p.with(ctx).Table("public.feature_flags").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plan"}, {Name: "feature"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled"}),
	}).Create(&f).Error
}

// MonthlyLimit resolves a usage cap: a company override wins over the plan default.
// ok is false when neither exists.
func (p *Platform) MonthlyLimit(ctx context.Context, companyID, plan, metric string) (limit int, ok bool, err error) {
	var rows []models.UsageLimit
	err = p.with(ctx).Table("public.usage_limits").
		Where("metric = ? AND (company_id = ? OR (company_id = '' AND plan = ?))", metric, companyID, plan).
		Find(&rows).Error
	if err != nil {
		return 0, false, err
	}
	for _, r := range rows {
		if r.CompanyID == companyID {
			return r.MonthlyLimit, true, nil
		}
	}
	if len(rows) > 0 {
		return rows[0].MonthlyLimit, true, nil
	}
	return 0, false, nil
}

func (p *Platform) UsageLimits(ctx context.Context) ([]models.UsageLimit, error) {
	var out []models.UsageLimit
	err := p.with(ctx).Table("public.usage_limits").Order("plan, company_id, metric").Find(&out).Error
	return out, err
}

// SetUsageLimit replaces the limit for (company or plan, metric).
func (p *Platform) SetUsageLimit(ctx context.Context, l *models.UsageLimit) error {
	return p.with(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table("public.usage_limits").
			Where("company_id = ? AND plan = ? AND metric = ?", l.CompanyID, l.Plan, l.Metric).
			Delete(&models.UsageLimit{}).Error; err != nil {
			return err
		}
		return tx.Table("public.usage_limits").Create(l).Error
	})
}

// RecordStripeEvent stores the event id. It returns false when the event was seen before.
func (p *Platform) RecordStripeEvent(ctx context.Context, e *models.StripeEvent) (bool, error) {
	res := p.with(ctx).Table("public.stripe_events").Clauses(clause.OnConflict{DoNothing: true}).Create(e)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ForgetStripeEvent removes a recorded event so a redelivery is processed again.
func (p *Platform) ForgetStripeEvent(ctx context.Context, id string) error {
	return p.with(ctx).Table("public.stripe_events").Where("id = ?", id).Delete(&models.StripeEvent{}).Error
}
