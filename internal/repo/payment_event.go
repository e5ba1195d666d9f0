package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) AppendPaymentEvent(ctx context.Context, ev *models.PaymentEvent) error {
	return r.DB.WithContext(ctx).Create(ev).Error
}

func (r *GormRepo) ListPaymentEvents(ctx context.Context, reference string, offset, limit int) (int64, []models.PaymentEvent, error) {
	q := r.DB.WithContext(ctx).Model(&models.PaymentEvent{})
	if reference != "" {
		q = q.Where("reference = ?", reference)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.PaymentEvent, 0, limit)
	if err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}
