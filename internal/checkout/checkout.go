// Package checkout содержит машину состояний оформления заказа:
// шаг доставки, шаг оплаты и отправку заказа. Черновик живёт только в
// памяти; перезагрузка теряет его, содержимое корзины при этом
// сохраняется в своём хранилище.
package checkout

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jemi-market/storefront-core/internal/api"
	"github.com/jemi-market/storefront-core/internal/cart"
	"github.com/jemi-market/storefront-core/internal/model"
	"github.com/jemi-market/storefront-core/internal/validation"
)

// Status описывает текущее состояние оформления заказа.
type Status string

const (
	StatusShipping   Status = "shipping"
	StatusPayment    Status = "payment"
	StatusSubmitting Status = "submitting"
	StatusCompleted  Status = "completed"
)

// IsTerminal истинно для завершённого оформления.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

func (s Status) String() string {
	return string(s)
}

var (
	// ErrNotReady возвращается при попытке отправить заказ без заполненной
	// доставки или выбранной оплаты. Состояние при этом не меняется и
	// внешний вызов не выполняется.
	ErrNotReady = errors.New("checkout: shipping and payment method are required")
	// ErrSubmissionInFlight возвращается при повторной отправке, пока
	// предыдущая ещё выполняется.
	ErrSubmissionInFlight = errors.New("checkout: submission already in flight")
	// ErrEmptyCart возвращается при попытке отправить заказ из пустой корзины.
	ErrEmptyCart = errors.New("checkout: cart is empty")
)

// OrderCreator описывает операцию создания заказа во внешнем сервисе.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (*model.Order, error)
}

// Flow владеет черновиком оформления заказа.
type Flow struct {
	mu       sync.Mutex
	status   Status
	shipping *model.ShippingInfo
	payment  model.PaymentMethod
	lastErr  error

	cart   *cart.Store
	orders OrderCreator
	logger *zap.Logger
}

// New создаёт машину оформления в начальном состоянии shipping.
func New(cartStore *cart.Store, orders OrderCreator, logger *zap.Logger) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Flow{
		status: StatusShipping,
		cart:   cartStore,
		orders: orders,
		logger: logger,
	}
}

// Status возвращает текущее состояние оформления.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Shipping возвращает сохранённый черновик доставки или nil.
func (f *Flow) Shipping() *model.ShippingInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.shipping == nil {
		return nil
	}
	info := *f.shipping
	return &info
}

// PaymentMethod возвращает выбранный способ оплаты, пустое значение —
// способ ещё не выбран.
func (f *Flow) PaymentMethod() model.PaymentMethod {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payment
}

// Err возвращает ошибку последней неудачной отправки.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// SubmitShipping проверяет данные доставки и переводит оформление на шаг
// оплаты. Некорректный ввод оставляет состояние shipping и возвращает
// ошибки по полям; перехода не происходит.
func (f *Flow) SubmitShipping(info model.ShippingInfo) error {
	if errs := validation.ValidateShipping(info); errs != nil {
		return errs
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != StatusShipping && f.status != StatusPayment {
		return ErrSubmissionInFlight
	}

	f.shipping = &info
	f.status = StatusPayment
	return nil
}

// Back возвращает оформление с шага оплаты на шаг доставки, сохраняя
// введённые ранее данные доставки.
func (f *Flow) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status == StatusPayment {
		f.status = StatusShipping
	}
}

// SelectPayment запоминает выбранный способ оплаты на шаге оплаты.
func (f *Flow) SelectPayment(method model.PaymentMethod) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status == StatusPayment {
		f.payment = method
	}
}

// Submit отправляет заказ во внешний сервис. Отправка возможна только с
// шага оплаты при заполненной доставке и выбранном способе оплаты.
// Успех опустошает корзину и завершает оформление; неудача возвращает
// состояние на шаг оплаты, чтобы данные доставки не вводились заново.
func (f *Flow) Submit(ctx context.Context) (*model.Order, error) {
	f.mu.Lock()

	if f.status == StatusSubmitting {
		f.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if f.status != StatusPayment || f.shipping == nil || f.payment == "" {
		f.mu.Unlock()
		return nil, ErrNotReady
	}

	items := f.cart.Items()
	if len(items) == 0 {
		f.mu.Unlock()
		return nil, ErrEmptyCart
	}

	shipping := *f.shipping
	payment := f.payment
	f.status = StatusSubmitting
	f.lastErr = nil
	f.mu.Unlock()

	lines := make([]api.OrderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, api.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	order, err := f.orders.CreateOrder(ctx, api.CreateOrderRequest{
		Items:         lines,
		Shipping:      shipping,
		PaymentMethod: payment,
	})

	if err != nil {
		f.mu.Lock()
		f.status = StatusPayment
		f.lastErr = err
		f.mu.Unlock()

		f.logger.Warn("order submission failed", zap.Error(err))
		return nil, err
	}

	f.mu.Lock()
	f.status = StatusCompleted
	f.mu.Unlock()

	// Корзина очищается вне мьютекса: её подписчики могут читать состояние
	// оформления.
	f.cart.Clear(ctx)
	f.logger.Info("order submitted", zap.String("order", order.OrderNumber))

	return order, nil
}

// Reset возвращает машину в начальное состояние, отбрасывая черновик.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.status = StatusShipping
	f.shipping = nil
	f.payment = ""
	f.lastErr = nil
}
