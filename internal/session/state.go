package session

import (
	"sync"

	"github.com/jemi-market/storefront-core/internal/model"
)

// guarded содержит изменяемое состояние сессии под общим мьютексом.
// Любая мутация меняет user и токены одним критическим участком, поэтому
// промежуточные комбинации полей извне не наблюдаемы.
type guarded struct {
	mu           sync.Mutex
	user         *model.User
	accessToken  string
	refreshToken string
	listeners    []func()
}

// User возвращает копию текущего пользователя или nil для анонимной сессии.
func (g *guarded) User() *model.User {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.user == nil {
		return nil
	}
	u := *g.user
	return &u
}

// IsAuthenticated истинно, только когда заданы и пользователь, и access-токен.
func (g *guarded) IsAuthenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.user != nil && g.accessToken != ""
}

// AccessToken реализует api.TokenSource.
func (g *guarded) AccessToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accessToken
}

// RefreshToken реализует api.TokenSource.
func (g *guarded) RefreshToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refreshToken
}

// Subscribe регистрирует обработчик изменения сессии для представления.
func (g *guarded) Subscribe(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

func (g *guarded) notify() {
	g.mu.Lock()
	listeners := make([]func(), len(g.listeners))
	copy(listeners, g.listeners)
	g.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (g *guarded) snapshotLocked() persistedState {
	snapshot := persistedState{
		Token:           g.accessToken,
		IsAuthenticated: g.user != nil && g.accessToken != "",
	}
	if g.user != nil {
		u := *g.user
		snapshot.User = &u
	}
	return snapshot
}
