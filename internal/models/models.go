package models

import "time"

type Role string

const (
	RoleUser   Role = "user"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"not null"                 json:"name"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         Role   `gorm:"not null;default:user"    json:"role"`
}

type Address struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint   `gorm:"index;not null"           json:"user_id"`
	FirstName string `gorm:"not null"                 json:"first_name"`
	LastName  string `json:"last_name"`
	Street    string `gorm:"not null"                 json:"street"`
	City      string `gorm:"not null"                 json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `gorm:"not null"                 json:"country"`
	Phone     string `json:"phone"`
	IsDefault bool   `gorm:"default:false"            json:"is_default"`
}

// Monetary fields are integer paise everywhere. OfferPrice == 0 means unset.
type Product struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	SellerID    uint   `gorm:"index;not null"           json:"seller_id"`
	Name        string `gorm:"not null"                 json:"name"`
	Description string `json:"description"`
	Category    string `gorm:"index"                    json:"category"`
	Price       int64  `gorm:"not null"                 json:"price"`
	OfferPrice  int64  `gorm:"default:0"                json:"offer_price"`
	InStock     bool   `gorm:"default:true"             json:"in_stock"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey;autoIncrement"                   json:"id"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"                 json:"quantity"`
}

type PaymentType string

const (
	PaymentCOD    PaymentType = "COD"
	PaymentOnline PaymentType = "ONLINE"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusPlaced    OrderStatus = "Order placed"
	StatusCompleted OrderStatus = "Completed"
	StatusShipped   OrderStatus = "Shipped"
	StatusDelivered OrderStatus = "Delivered"
	StatusCancelled OrderStatus = "Cancelled"
)

var statusNext = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPlaced, StatusCompleted, StatusCancelled},
	StatusPlaced:    {StatusShipped, StatusCancelled},
	StatusCompleted: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
}

// CanTransition reports whether an order may move between two statuses.
// Delivered and Cancelled are terminal.
func CanTransition(from, to OrderStatus) bool {
	for _, n := range statusNext[from] {
		if n == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type Order struct {
	ID          uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint        `gorm:"index;not null"           json:"user_id"`
	AddressID   uint        `gorm:"not null"                 json:"address_id"`
	PaymentType PaymentType `gorm:"not null"                 json:"payment_type"`
	Amount      int64       `gorm:"not null"                 json:"amount"`
	Status      OrderStatus `gorm:"not null"                 json:"status"`
	IsPaid      bool        `gorm:"default:false"            json:"is_paid"`
	PaymentID   *uint       `json:"payment_id,omitempty"`
	CancelledAt *time.Time  `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	Items       []OrderItem `gorm:"foreignKey:OrderID"       json:"items"`
}

type OrderItem struct {
	ID        uint  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint  `gorm:"index;not null"           json:"order_id"`
	ProductID uint  `gorm:"not null"                 json:"product_id"`
	SellerID  uint  `gorm:"index;not null"           json:"seller_id"`
	Quantity  uint  `gorm:"not null"                 json:"quantity"`
	UnitPrice int64 `gorm:"not null"                 json:"unit_price"`
}

// Payment is one row per captured gateway transaction. OrderID stays nil
// until the order exists, then is set exactly once. The unique indexes on
// GatewayOrderID and TransactionID stop a replayed callback from fulfilling
// the same payment twice.
type Payment struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"index;not null"           json:"user_id"`
	OrderID        *uint     `json:"order_id,omitempty"`
	GatewayOrderID string    `gorm:"uniqueIndex;not null"     json:"gateway_order_id"`
	TransactionID  string    `gorm:"uniqueIndex;not null"     json:"transaction_id"`
	Amount         int64     `gorm:"not null"                 json:"amount"`
	Status         string    `gorm:"not null"                 json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// IdempotencyKey records the outcome of a verification callback so a replay
// of the same request returns the stored order without touching the gateway.
type IdempotencyKey struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Key       string    `gorm:"uniqueIndex;not null"     json:"key"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	OrderID   uint      `gorm:"not null"                 json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}
