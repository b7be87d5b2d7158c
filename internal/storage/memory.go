package storage

import (
	"context"
	"sync"
)

// Memory хранит значения в памяти процесса. Используется в тестах и
// как заглушка, когда долговременное хранилище не настроено.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory создаёт пустое хранилище в памяти.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get возвращает значение по ключу или ErrNotFound.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set сохраняет значение по ключу.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

// Remove удаляет значение по ключу. Отсутствие ключа не является ошибкой.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
