package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

const (
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         string    `gorm:"not null"                 json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"              json:"id"`
	Token     string    `gorm:"uniqueIndex;not null"    json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	JTI       string    `gorm:"uniqueIndex;not null"    json:"jti"`
	ExpiresAt int64     `gorm:"not null"                json:"expires_at"`
	Revoked   bool      `gorm:"default:false"           json:"revoked"`
}

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"          json:"id"`
	Name        string          `gorm:"not null"                      json:"name"`
	Slug        string          `gorm:"uniqueIndex;not null"          json:"slug"`
	Description string          `json:"description"`
	Category    string          `gorm:"index"                         json:"category"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"   json:"price"`
	Stock       int             `gorm:"not null;check:stock >= 0"     json:"stock"`
	ImageKey    string          `json:"image_key,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Order is written once from a verified payment. Only the fulfilment fields
// (Status, ShippedAt, DeliveredAt) change afterwards.
type Order struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"         json:"id"`
	OrderNumber      string          `gorm:"uniqueIndex;not null"         json:"order_number"`
	Email            string          `gorm:"index;not null"               json:"email"`
	FirstName        string          `gorm:"not null"                     json:"first_name"`
	LastName         string          `gorm:"not null"                     json:"last_name"`
	Phone            string          `json:"phone"`
	ShippingAddress  string          `json:"shipping_address"`
	ShippingCity     string          `json:"shipping_city"`
	ShippingState    string          `json:"shipping_state"`
	Status           string          `gorm:"index;not null"               json:"status"`
	PaymentStatus    string          `gorm:"index;not null"               json:"payment_status"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentReference string          `gorm:"uniqueIndex;not null"         json:"payment_reference"`
	Currency         string          `json:"currency"`
	Subtotal         decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"subtotal"`
	Total            decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"total"`
	ShippedAt        *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt        time.Time       `gorm:"index"                        json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem snapshots the product name and price at purchase time.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey"                     json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;index;not null"       json:"order_id"`
	ProductID   string          `gorm:"not null"                       json:"product_id"`
	ProductName string          `gorm:"not null"                       json:"product_name"`
	VariantInfo string          `json:"variant_info,omitempty"`
	Quantity    int             `gorm:"not null;check:quantity > 0"    json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null"    json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null"    json:"total_price"`
}

// PaymentEvent is an append-only log of every callback or webhook ingestion attempt.
type PaymentEvent struct {
	ID        uint           `gorm:"primaryKey"        json:"id"`
	Reference string         `gorm:"index"             json:"reference"`
	Source    string         `gorm:"not null"          json:"source"`
	Event     string         `json:"event"`
	Payload   datatypes.JSON `json:"payload,omitempty"`
	Outcome   string         `gorm:"not null"          json:"outcome"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `gorm:"index"             json:"created_at"`
}
