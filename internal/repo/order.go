package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

var ErrStaleOrder = errors.New("order changed concurrently")

type OrderFilter struct {
	Status        string
	PaymentStatus string
	Email         string
}

type OrderStats struct {
	Orders     int64            `json:"orders"`
	PaidOrders int64            `json:"paid_orders"`
	Revenue    decimal.Decimal  `json:"revenue"`
	ByStatus   map[string]int64 `json:"by_status"`
}

// CreateOrderWithItems writes the order and every item in one transaction.
// Any failing insert rolls the whole order back.
func (r *GormRepo) CreateOrderWithItems(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return err
		}
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
			if err := tx.Create(&order.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormRepo) FindOrderByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items", orderItems).
		Where("payment_reference = ?", reference).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items", orderItems).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) FindOrderByNumberAndEmail(ctx context.Context, number, email string) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items", orderItems).
		Where("order_number = ? AND LOWER(email) = ?", strings.TrimSpace(number), strings.ToLower(strings.TrimSpace(email))).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if f.Email != "" {
		q = q.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(f.Email)))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Order, 0, limit)
	if err := q.Preload("Items", orderItems).
		Order("created_at DESC").Order("order_number DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// UpdateOrderStatus lets apply mutate the current order and saves the fulfilment
// columns only if nobody changed the status in between.
func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, apply func(o *models.Order, now time.Time) error) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&order).Error; err != nil {
			return err
		}
		prev := order.Status
		now := time.Now().UTC()
		if err := apply(&order, now); err != nil {
			return err
		}
		order.UpdatedAt = now

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, prev).
			Updates(map[string]any{
				"status":       order.Status,
				"shipped_at":   order.ShippedAt,
				"delivered_at": order.DeliveredAt,
				"updated_at":   order.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleOrder
		}
		return tx.Where("order_id = ?", order.ID).Order("id").Find(&order.Items).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) OrderStats(ctx context.Context) (*OrderStats, error) {
	stats := OrderStats{ByStatus: map[string]int64{}}
	db := r.DB.WithContext(ctx)

	if err := db.Model(&models.Order{}).Count(&stats.Orders).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Order{}).Where("payment_status = ?", models.PaymentStatusPaid).Count(&stats.PaidOrders).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&models.Order{}).
		Where("payment_status = ? AND status <> ?", models.PaymentStatusPaid, models.OrderStatusCancelled).
		Select("COALESCE(SUM(total), 0)").
		Row().Scan(&stats.Revenue); err != nil {
		return nil, err
	}

	var rows []struct {
		Status string
		N      int64
	}
	if err := db.Model(&models.Order{}).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.N
	}
	return &stats, nil
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.id")
}
