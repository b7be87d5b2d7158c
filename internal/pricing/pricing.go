// Package pricing содержит чистый калькулятор сумм корзины.
package pricing

import "github.com/jemi-market/storefront-core/internal/model"

// Config содержит параметры расчёта доставки в минорных единицах валюты.
type Config struct {
	FreeDeliveryThreshold int64
	DeliveryFee           int64
}

// Calculate вычисляет производные суммы корзины по списку позиций.
// Функция детерминирована и не имеет побочных эффектов: результат
// является проекцией позиций и никогда не кешируется.
func Calculate(items []model.CartLineItem, cfg Config) model.Totals {
	var subtotal int64
	for _, it := range items {
		subtotal += it.UnitPrice * int64(it.Quantity)
	}

	t := model.Totals{Subtotal: subtotal}

	t.FreeDelivery = subtotal >= cfg.FreeDeliveryThreshold
	if !t.FreeDelivery {
		t.DeliveryFee = cfg.DeliveryFee
		t.AmountToFreeDelivery = cfg.FreeDeliveryThreshold - subtotal
	}
	t.Total = t.Subtotal + t.DeliveryFee

	return t
}
