package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis хранит значения в Redis без срока жизни: состояние витрины
// должно переживать перезапуск процесса.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis создаёт хранилище поверх готового клиента Redis.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		client: client,
		prefix: "storefront",
	}
}

// Get возвращает значение по ключу или ErrNotFound.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.storageKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return v, nil
}

// Set сохраняет значение по ключу.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.storageKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Remove удаляет значение по ключу. Отсутствие ключа не является ошибкой.
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.storageKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *Redis) storageKey(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}
