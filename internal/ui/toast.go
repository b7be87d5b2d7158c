// Package ui содержит очередь всплывающих уведомлений для представления.
// Очередь эфемерна и не зависит от остальных хранилищ.
package ui

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ToastType описывает вид уведомления.
type ToastType string

const (
	ToastSuccess ToastType = "success"
	ToastError   ToastType = "error"
	ToastWarning ToastType = "warning"
	ToastInfo    ToastType = "info"
)

// DefaultTTL — время жизни уведомления до автоматического скрытия.
const DefaultTTL = 4 * time.Second

// Toast — одно всплывающее уведомление.
type Toast struct {
	ID      string
	Type    ToastType
	Message string
}

// Notifier владеет очередью уведомлений с автоистечением.
type Notifier struct {
	mu        sync.Mutex
	toasts    []Toast
	ttl       time.Duration
	listeners []func()
}

// NewNotifier создаёт очередь уведомлений со стандартным временем жизни.
func NewNotifier() *Notifier {
	return NewNotifierTTL(DefaultTTL)
}

// NewNotifierTTL создаёт очередь уведомлений с указанным временем жизни.
func NewNotifierTTL(ttl time.Duration) *Notifier {
	return &Notifier{ttl: ttl}
}

// Show добавляет уведомление в очередь и планирует его автоудаление.
func (n *Notifier) Show(kind ToastType, message string) Toast {
	toast := Toast{
		ID:      uuid.NewString(),
		Type:    kind,
		Message: message,
	}

	n.mu.Lock()
	n.toasts = append(n.toasts, toast)
	n.mu.Unlock()

	time.AfterFunc(n.ttl, func() { n.Remove(toast.ID) })
	n.notify()

	return toast
}

// Success показывает уведомление об успехе.
func (n *Notifier) Success(message string) Toast { return n.Show(ToastSuccess, message) }

// Error показывает уведомление об ошибке.
func (n *Notifier) Error(message string) Toast { return n.Show(ToastError, message) }

// Warning показывает предупреждение.
func (n *Notifier) Warning(message string) Toast { return n.Show(ToastWarning, message) }

// Remove удаляет уведомление по идентификатору. Повторное удаление
// не является ошибкой.
func (n *Notifier) Remove(id string) {
	n.mu.Lock()

	idx := -1
	for i, t := range n.toasts {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		n.mu.Unlock()
		return
	}
	n.toasts = append(n.toasts[:idx], n.toasts[idx+1:]...)
	n.mu.Unlock()

	n.notify()
}

// Toasts возвращает копию текущей очереди уведомлений.
func (n *Notifier) Toasts() []Toast {
	n.mu.Lock()
	defer n.mu.Unlock()

	toasts := make([]Toast, len(n.toasts))
	copy(toasts, n.toasts)
	return toasts
}

// Subscribe регистрирует обработчик изменения очереди для представления.
func (n *Notifier) Subscribe(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

func (n *Notifier) notify() {
	n.mu.Lock()
	listeners := make([]func(), len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
