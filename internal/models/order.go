package models

import "time"

// OrderStatus — статус заказа магазина.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

// Valid сообщает, входит ли статус в перечисление.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// PaymentMethod — способ оплаты заказа.
type PaymentMethod string

const (
	PaymentPix  PaymentMethod = "pix"
	PaymentCard PaymentMethod = "card"
)

// Order — заказ пользователя.
type Order struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Status        OrderStatus   `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TotalCents    int64         `json:"total_cents"`
	KiwifyOrderID string        `json:"kiwify_order_id"`
	Items         []OrderItem   `json:"items,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// OrderItem — позиция заказа с ценой на момент оформления.
type OrderItem struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// CartItem — позиция корзины, хранится в кеше.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Cart — корзина пользователя.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartLine — позиция корзины с актуальной ценой.
type CartLine struct {
	Product    Product `json:"product"`
	Quantity   int     `json:"quantity"`
	TotalCents int64   `json:"total_cents"`
}

// CartView — корзина с посчитанными суммами.
type CartView struct {
	Lines      []CartLine `json:"lines"`
	ItemCount  int        `json:"item_count"`
	TotalCents int64      `json:"total_cents"`
}

// PixKeyType — тип ключа PIX.
type PixKeyType string

const (
	PixCPF    PixKeyType = "cpf"
	PixCNPJ   PixKeyType = "cnpj"
	PixEmail  PixKeyType = "email"
	PixPhone  PixKeyType = "phone"
	PixRandom PixKeyType = "random"
)

// PixKey — ключ PIX администратора, хранится как непрозрачная строка.
type PixKey struct {
	AdminID   string     `json:"admin_id"`
	KeyType   PixKeyType `json:"key_type"`
	KeyValue  string     `json:"key_value"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PixKeyInput — тело запроса на сохранение ключа PIX.
type PixKeyInput struct {
	KeyType  string `json:"key_type" validate:"required,oneof=cpf cnpj email phone random"`
	KeyValue string `json:"key_value" validate:"required,max=140"`
}
