package repository

import (
	"context"
	"time"

	"fieldservice-backend/models"
)

func (r *Tenant) CreateSMSLog(ctx context.Context, l *models.SMSLog) error {
	return r.with(ctx).Create(l).Error
}

func (r *Tenant) CreateEmailLog(ctx context.Context, l *models.EmailLog) error {
	return r.with(ctx).Create(l).Error
}

// CountSMSSent counts SMS delivered to the provider since the given time.
func (r *Tenant) CountSMSSent(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.with(ctx).Model(&models.SMSLog{}).
		Where("status = ? AND created_at >= ?", models.LogSent, since).
		Count(&n).Error
	return n, err
}

// SMSSentSince reports whether the same message went to the same recipient after since.
func (r *Tenant) SMSSentSince(ctx context.Context, recipient, template string, jobID *uint, since time.Time) (bool, error) {
	q := r.with(ctx).Model(&models.SMSLog{}).
		Where("recipient = ? AND template = ? AND status = ? AND created_at >= ?", recipient, template, models.LogSent, since)
	if jobID != nil {
		q = q.Where("job_id = ?", *jobID)
	} else {
		q = q.Where("job_id IS NULL")
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

// EmailSentSince is the email counterpart of SMSSentSince.
func (r *Tenant) EmailSentSince(ctx context.Context, recipient, kind string, jobID *uint, since time.Time) (bool, error) {
	q := r.with(ctx).Model(&models.EmailLog{}).
		Where("recipient = ? AND kind = ? AND status = ? AND created_at >= ?", recipient, kind, models.LogSent, since)
	if jobID != nil {
		q = q.Where("job_id = ?", *jobID)
	} else {
		q = q.Where("job_id IS NULL")
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *Tenant) SMSLogs(ctx context.Context, limit int) ([]models.SMSLog, error) {
	var out []models.SMSLog
	err := r.with(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *Tenant) EmailLogs(ctx context.Context, limit int) ([]models.EmailLog, error) {
	var out []models.EmailLog
	err := r.with(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}
