// Package mockapi реализует встроенный сервис магазина для разработки
// и сквозных тестов ядра: аутентификация с refresh-токенами, каталог
// товаров и создание заказов. Все данные живут в памяти процесса.
package mockapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jemi-market/storefront-core/internal/model"
	"github.com/jemi-market/storefront-core/internal/pricing"
)

type account struct {
	user     model.User
	password string
}

// Server хранит состояние встроенного сервиса магазина.
type Server struct {
	mu            sync.Mutex
	accounts      map[string]*account // по email
	accessTokens  map[string]int64    // token -> userID
	refreshTokens map[string]int64    // token -> userID
	products      []model.Product
	orders        map[int64][]model.Order
	nextUserID    int64
	nextOrderSeq  int

	pricing pricing.Config
	logger  *zap.Logger
}

// NewServer создаёт сервис с предзаполненным каталогом товаров.
func NewServer(cfg pricing.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		accounts:      make(map[string]*account),
		accessTokens:  make(map[string]int64),
		refreshTokens: make(map[string]int64),
		products:      seedCatalog(),
		orders:        make(map[int64][]model.Order),
		nextUserID:    1,
		nextOrderSeq:  1000,
		pricing:       cfg,
		logger:        logger,
	}
}

// respond пишет ответ в каноническом конверте {data, message, success}.
func respond(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := map[string]any{
		"data":    data,
		"message": message,
		"success": status >= 200 && status <= 299,
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) issueTokens(userID int64) (access, refresh string) {
	access = uuid.NewString()
	refresh = uuid.NewString()
	s.accessTokens[access] = userID
	s.refreshTokens[refresh] = userID
	return access, refresh
}

// ExpireAccessTokens делает все выданные access-токены недействительными,
// не трогая refresh-токены. Используется тестами молчаливого обновления.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTokens = make(map[string]int64)
}

type contextKey string

const userIDKey contextKey = "userID"

// authenticate проверяет bearer-токен запроса и возвращает идентификатор
// пользователя.
func (s *Server) authenticate(r *http.Request) (int64, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.accessTokens[token]
	return userID, ok
}
