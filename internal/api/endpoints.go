package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jemi-market/storefront-core/internal/model"
)

const (
	pathLogin    = "/auth/login"
	pathRegister = "/auth/register"
	pathLogout   = "/auth/logout"
	pathRefresh  = "/auth/refresh"

	pathProducts = "/products"
	pathOrders   = "/orders"

	pathPaymentInitialize = "/payment/initialize"
	pathPaymentVerify     = "/payment/verify"
)

// AuthPayload содержит ответ сервиса на вход или регистрацию.
type AuthPayload struct {
	User         model.User `json:"user"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
}

// Login выполняет вход по учётным данным пользователя.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*AuthPayload, error) {
	var payload AuthPayload
	if err := c.do(ctx, http.MethodPost, pathLogin, creds, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Register регистрирует нового пользователя.
func (c *Client) Register(ctx context.Context, reg model.Registration) (*AuthPayload, error) {
	var payload AuthPayload
	if err := c.do(ctx, http.MethodPost, pathRegister, reg, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Logout уведомляет сервис о завершении сессии.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pathLogout, nil, nil)
}

// ProductQuery содержит параметры выборки каталога.
type ProductQuery struct {
	Search   string
	Category string
	Featured bool
}

// Products возвращает список товаров каталога по заданным параметрам.
func (c *Client) Products(ctx context.Context, q ProductQuery) ([]model.Product, error) {
	values := url.Values{}
	if q.Search != "" {
		values.Set("q", q.Search)
	}
	if q.Category != "" {
		values.Set("category", q.Category)
	}
	if q.Featured {
		values.Set("featured", "true")
	}

	path := pathProducts
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var products []model.Product
	if err := c.do(ctx, http.MethodGet, path, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Product возвращает один товар каталога.
func (c *Client) Product(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	if err := c.do(ctx, http.MethodGet, pathProducts+"/"+url.PathEscape(id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// OrderLine описывает позицию создаваемого заказа.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderRequest содержит данные для создания заказа.
type CreateOrderRequest struct {
	Items         []OrderLine         `json:"items"`
	Shipping      model.ShippingInfo  `json:"shipping"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
}

// CreateOrder создаёт заказ из содержимого корзины.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodPost, pathOrders, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Orders возвращает историю заказов текущего пользователя.
func (c *Client) Orders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := c.do(ctx, http.MethodGet, pathOrders, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Order возвращает один заказ текущего пользователя.
func (c *Client) Order(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodGet, pathOrders+"/"+url.PathEscape(id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder отменяет заказ, если магазин ещё не отгрузил его.
func (c *Client) CancelOrder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, pathOrders+"/"+url.PathEscape(id)+"/cancel", nil, nil)
}

// InitializePaymentRequest содержит данные для инициализации оплаты.
type InitializePaymentRequest struct {
	OrderID       string              `json:"order_id"`
	Email         string              `json:"email"`
	Amount        int64               `json:"amount"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	CallbackURL   string              `json:"callback_url,omitempty"`
}

// PaymentSession содержит параметры перенаправления на платёжный шлюз.
// Сам шлюз для ядра непрозрачен.
type PaymentSession struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code,omitempty"`
}

// InitializePayment запрашивает у сервиса сессию оплаты заказа.
func (c *Client) InitializePayment(ctx context.Context, req InitializePaymentRequest) (*PaymentSession, error) {
	var session PaymentSession
	if err := c.do(ctx, http.MethodPost, pathPaymentInitialize, req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// PaymentResult содержит итог проверки оплаты по ссылке платежа.
type PaymentResult struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	PaidAt    string `json:"paid_at,omitempty"`
}

// VerifyPayment проверяет состояние платежа по его ссылке.
func (c *Client) VerifyPayment(ctx context.Context, reference string) (*PaymentResult, error) {
	var result PaymentResult
	body := map[string]string{"reference": reference}
	if err := c.do(ctx, http.MethodPost, pathPaymentVerify, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
