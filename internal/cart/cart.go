// Package cart содержит хранилище корзины покупателя. Хранилище владеет
// каноническим списком позиций, сохраняет его при каждой мутации и
// пересчитывает производные суммы при каждом чтении.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jemi-market/storefront-core/internal/model"
	"github.com/jemi-market/storefront-core/internal/pricing"
	"github.com/jemi-market/storefront-core/internal/storage"
)

// ErrStockExceeded возвращается, когда запрошенное количество превышает
// снимок остатка товара. Состояние корзины при этом не меняется.
var ErrStockExceeded = errors.New("requested quantity exceeds available stock")

// Store владеет списком позиций корзины. Порядок добавления сохраняется
// для отображения.
type Store struct {
	mu        sync.Mutex
	items     []model.CartLineItem
	storage   storage.KeyValue
	key       string
	pricing   pricing.Config
	logger    *zap.Logger
	listeners []func()
}

// New создаёт хранилище корзины и восстанавливает позиции из
// долговременного хранилища. Отсутствующий или повреждённый снимок
// даёт пустую корзину, ошибок при этом не возникает.
func New(kv storage.KeyValue, key string, cfg pricing.Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		storage: kv,
		key:     key,
		pricing: cfg,
		logger:  logger,
	}
	s.rehydrate()

	return s
}

// AddItem добавляет позицию в корзину. Если товар уже есть, его количество
// увеличивается на запрошенное с ограничением по снимку остатка; корзина,
// уже стоящая на остатке, отклоняет добавление с ErrStockExceeded.
func (s *Store) AddItem(ctx context.Context, candidate model.CartLineItem) error {
	if candidate.Quantity < 1 {
		candidate.Quantity = 1
	}

	s.mu.Lock()

	if idx := s.indexLocked(candidate.ProductID); idx >= 0 {
		existing := &s.items[idx]
		if existing.Quantity >= existing.Stock {
			s.mu.Unlock()
			return ErrStockExceeded
		}

		next := existing.Quantity + candidate.Quantity
		if next > existing.Stock {
			next = existing.Stock
		}
		existing.Quantity = next
	} else {
		if candidate.Stock < 1 {
			s.mu.Unlock()
			return ErrStockExceeded
		}
		if candidate.Quantity > candidate.Stock {
			candidate.Quantity = candidate.Stock
		}
		s.items = append(s.items, candidate)
	}

	s.mu.Unlock()

	s.persist(ctx)
	s.notify()
	return nil
}

// UpdateQuantity устанавливает точное количество позиции. Значение меньше
// единицы трактуется как удаление позиции; превышение остатка отклоняется
// с ErrStockExceeded без изменения состояния.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		s.RemoveItem(ctx, productID)
		return nil
	}

	s.mu.Lock()

	idx := s.indexLocked(productID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	if quantity > s.items[idx].Stock {
		s.mu.Unlock()
		return ErrStockExceeded
	}

	s.items[idx].Quantity = quantity
	s.mu.Unlock()

	s.persist(ctx)
	s.notify()
	return nil
}

// RemoveItem удаляет позицию из корзины. Отсутствие позиции не является
// ошибкой.
func (s *Store) RemoveItem(ctx context.Context, productID string) {
	s.mu.Lock()

	idx := s.indexLocked(productID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.mu.Unlock()

	s.persist(ctx)
	s.notify()
}

// Clear безусловно опустошает корзину.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	s.persist(ctx)
	s.notify()
}

// Items возвращает копию позиций корзины в порядке добавления.
func (s *Store) Items() []model.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.CartLineItem, len(s.items))
	copy(items, s.items)
	return items
}

// ItemByProductID возвращает позицию по идентификатору товара.
func (s *Store) ItemByProductID(productID string) (model.CartLineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexLocked(productID); idx >= 0 {
		return s.items[idx], true
	}
	return model.CartLineItem{}, false
}

// ItemCount возвращает суммарное количество единиц товара в корзине.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, it := range s.items {
		count += it.Quantity
	}
	return count
}

// IsEmpty истинно для пустой корзины.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// Totals пересчитывает производные суммы корзины. Результат является
// проекцией позиций и вычисляется заново при каждом вызове.
func (s *Store) Totals() model.Totals {
	return pricing.Calculate(s.Items(), s.pricing)
}

// Subscribe регистрирует обработчик изменения корзины для представления.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) indexLocked(productID string) int {
	for i, it := range s.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) persist(ctx context.Context) {
	items := s.Items()

	data, err := json.Marshal(items)
	if err != nil {
		s.logger.Warn("marshal cart snapshot failed", zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		s.logger.Warn("persist cart snapshot failed", zap.Error(err))
	}
}

func (s *Store) rehydrate() {
	raw, err := s.storage.Get(context.Background(), s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("read cart snapshot failed", zap.Error(err))
		}
		return
	}

	var items []model.CartLineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("cart snapshot corrupted, starting empty", zap.Error(err))
		return
	}

	s.items = items
}

func (s *Store) notify() {
	s.mu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
