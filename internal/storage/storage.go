// Package storage предоставляет долговременное key-value хранилище
// состояния витрины. Корзина и сессия используют различные ключи и
// мутируют независимо, поэтому межключевые транзакции не нужны.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound возвращается, если значение по ключу отсутствует.
var ErrNotFound = errors.New("storage: key not found")

// KeyValue описывает контракт долговременного хранилища строк.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
