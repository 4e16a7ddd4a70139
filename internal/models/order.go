package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/marketplace-service/internal/pricing"
)

type Order struct {
	ID     string      `json:"id" gorm:"primaryKey;size:64"`
	UserID string      `json:"user_id" gorm:"not null;size:64;index"`
	Items  []OrderItem `json:"order_items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	ItemsPrice pricing.Money `json:"items_price" gorm:"type:decimal(10,2);not null"`
	TaxPrice   pricing.Money `json:"tax_price" gorm:"type:decimal(10,2);not null"`
	TotalPrice pricing.Money `json:"total_price" gorm:"type:decimal(10,2);not null"`

	IsPaid        bool          `json:"is_paid" gorm:"not null;default:false;index"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	PaymentResult PaymentResult `json:"payment_result" gorm:"embedded;embeddedPrefix:payment_"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// CourseIDs returns the distinct course ids of the order in item order.
func (o *Order) CourseIDs() []string {
	seen := make(map[string]bool, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if !seen[item.CourseID] {
			seen[item.CourseID] = true
			ids = append(ids, item.CourseID)
		}
	}
	return ids
}

// PaymentResult records the external transaction that paid an order. The
// transaction id is unique across all orders.
type PaymentResult struct {
	TransactionID *string `json:"id,omitempty" gorm:"size:128;uniqueIndex:idx_orders_payment_txn"`
	Status        string  `json:"status,omitempty" gorm:"size:50"`
	UpdateTime    string  `json:"update_time,omitempty" gorm:"size:64"`
	EmailAddress  string  `json:"email_address,omitempty" gorm:"size:255"`
}

type OrderItem struct {
	ID       string        `json:"id" gorm:"primaryKey;size:64"`
	OrderID  string        `json:"-" gorm:"not null;size:64;index"`
	CourseID string        `json:"course" gorm:"not null;size:64;index"`
	Name     string        `json:"name" gorm:"size:200"`
	Image    string        `json:"image" gorm:"size:500"`
	Price    pricing.Money `json:"price" gorm:"type:decimal(10,2);not null"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&Enrollment{},
		&ContentSection{},
		&Review{},
		&Order{},
		&OrderItem{},
	}
}
