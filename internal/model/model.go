// Package model содержит доменные сущности ядра витрины магазина.
package model

import "time"

// User представляет аутентифицированного покупателя.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatar,omitempty"`
}

// CartLineItem описывает одну позицию корзины.
// UnitPrice хранится в минорных единицах валюты; снимок Stock
// фиксируется в момент добавления и не обновляется по сети.
type CartLineItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int    `json:"quantity"`
	Stock      int    `json:"stock"`
	ImageURL   string `json:"image,omitempty"`
	SellerID   string `json:"seller_id,omitempty"`
	SellerName string `json:"seller_name,omitempty"`
}

// Totals содержит производные суммы корзины. Значения никогда не
// сохраняются: они пересчитываются при каждом чтении.
type Totals struct {
	Subtotal             int64 `json:"subtotal"`
	DeliveryFee          int64 `json:"delivery_fee"`
	Total                int64 `json:"total"`
	FreeDelivery         bool  `json:"free_delivery"`
	AmountToFreeDelivery int64 `json:"amount_to_free_delivery"`
}

// ShippingInfo содержит данные доставки, введённые на шаге shipping.
type ShippingInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Notes    string `json:"notes,omitempty"`
}

// PaymentMethod описывает выбранный платёжный провайдер.
type PaymentMethod string

const (
	PaymentPaystack    PaymentMethod = "paystack"
	PaymentFlutterwave PaymentMethod = "flutterwave"
)

// Product описывает товар каталога.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	Stock      int    `json:"stock"`
	Category   string `json:"category"`
	ImageURL   string `json:"image,omitempty"`
	SellerID   string `json:"seller_id,omitempty"`
	SellerName string `json:"seller_name,omitempty"`
	Featured   bool   `json:"featured,omitempty"`
}

// OrderStatus описывает статус обработки заказа на стороне магазина.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderItem описывает позицию созданного заказа.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Order описывает созданный заказ покупателя.
type Order struct {
	ID            string        `json:"id"`
	OrderNumber   string        `json:"order_number"`
	Items         []OrderItem   `json:"items"`
	Subtotal      int64         `json:"subtotal"`
	DeliveryFee   int64         `json:"delivery_fee"`
	Total         int64         `json:"total"`
	Status        OrderStatus   `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Shipping      ShippingInfo  `json:"shipping"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Credentials содержит данные входа пользователя.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration содержит данные регистрации нового пользователя.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}
