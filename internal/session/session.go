// Package session содержит хранилище сессии покупателя: пользователя
// и токены доступа. Три поля сессии меняются только атомарно вместе.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jemi-market/storefront-core/internal/api"
	"github.com/jemi-market/storefront-core/internal/model"
	"github.com/jemi-market/storefront-core/internal/storage"
	"github.com/jemi-market/storefront-core/internal/validation"
)

// LoginPath — точка входа, на которую перенаправляется представление
// после принудительного завершения сессии.
const LoginPath = "/login"

// errAuthAPIMissing возвращается, если клиент сервиса аутентификации
// не был привязан через AttachAPI.
var errAuthAPIMissing = errors.New("session: auth service is not attached")

// AuthenticationError возвращается при отказе сервиса в аутентификации
// по учётным данным. Прежнее состояние сессии при этом не меняется.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Message
}

// AuthAPI описывает операции сервиса аутентификации, используемые хранилищем.
type AuthAPI interface {
	Login(ctx context.Context, creds model.Credentials) (*api.AuthPayload, error)
	Register(ctx context.Context, reg model.Registration) (*api.AuthPayload, error)
	Logout(ctx context.Context) error
}

// Keys задаёт ключи долговременного хранилища сессии. Снимок сессии и
// refresh-токен хранятся раздельно.
type Keys struct {
	Auth         string
	RefreshToken string
}

// persistedState — долговременный снимок сессии. В отличие от полного
// состояния хранилища сюда не попадают флаги загрузки и ошибок.
type persistedState struct {
	User            *model.User `json:"user"`
	Token           string      `json:"token"`
	IsAuthenticated bool        `json:"is_authenticated"`
}

// Store владеет состоянием сессии и синхронизирует его снимок в
// долговременное хранилище при каждой мутации.
type Store struct {
	guarded

	storage  storage.KeyValue
	keys     Keys
	authAPI  AuthAPI
	logger   *zap.Logger
	redirect func(path string)
}

// New создаёт хранилище сессии и восстанавливает снимок из долговременного
// хранилища. Отсутствующий или повреждённый снимок даёт анонимную сессию.
func New(kv storage.KeyValue, keys Keys, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		storage: kv,
		keys:    keys,
		logger:  logger,
	}
	s.rehydrate()

	return s
}

// AttachAPI связывает хранилище с клиентом сервиса аутентификации.
// Вызывается один раз при сборке приложения.
func (s *Store) AttachAPI(authAPI AuthAPI) {
	s.authAPI = authAPI
}

// OnForcedLogout задаёт обработчик перенаправления представления после
// принудительного завершения сессии.
func (s *Store) OnForcedLogout(redirect func(path string)) {
	s.redirect = redirect
}

// Login выполняет вход по учётным данным. При отказе сервиса прежнее
// состояние сессии остаётся нетронутым.
func (s *Store) Login(ctx context.Context, creds model.Credentials) error {
	if s.authAPI == nil {
		return errAuthAPIMissing
	}

	payload, err := s.authAPI.Login(ctx, creds)
	if err != nil {
		return authError(err)
	}

	s.establish(ctx, payload)
	s.logger.Info("user logged in", zap.Int64("userID", payload.User.ID))
	return nil
}

// Register регистрирует нового пользователя. Локальная валидация
// выполняется до обращения к сервису: некорректные данные отклоняются
// с ошибками по полям без сетевого вызова.
func (s *Store) Register(ctx context.Context, reg model.Registration) error {
	if errs := validation.ValidateRegistration(reg); errs != nil {
		return errs
	}

	if s.authAPI == nil {
		return errAuthAPIMissing
	}

	payload, err := s.authAPI.Register(ctx, reg)
	if err != nil {
		return authError(err)
	}

	s.establish(ctx, payload)
	s.logger.Info("user registered", zap.Int64("userID", payload.User.ID))
	return nil
}

// Logout завершает сессию. Сервис уведомляется по возможности, но
// локальная очистка выполняется безусловно даже при сетевой ошибке.
func (s *Store) Logout(ctx context.Context) {
	if s.authAPI != nil {
		if err := s.authAPI.Logout(ctx); err != nil {
			s.logger.Warn("logout notification failed", zap.Error(err))
		}
	}

	s.clear(ctx)
}

// ForceLogout выполняет безусловную локальную очистку сессии после
// отказа аутентификации на любом запросе и перенаправляет представление
// на страницу входа. Сервис при этом не уведомляется.
func (s *Store) ForceLogout() {
	wasAuthenticated := s.IsAuthenticated()

	s.clear(context.Background())

	if wasAuthenticated && s.redirect != nil {
		s.redirect(LoginPath)
	}
}

// UpdateAccessToken сохраняет новый access-токен после молчаливого
// обновления, не трогая пользователя и refresh-токен.
func (s *Store) UpdateAccessToken(token string) {
	ctx := context.Background()

	s.mu.Lock()
	s.accessToken = token
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persistSnapshot(ctx, snapshot)
	s.notify()
}

func (s *Store) establish(ctx context.Context, payload *api.AuthPayload) {
	user := payload.User

	s.mu.Lock()
	s.user = &user
	s.accessToken = payload.Token
	s.refreshToken = payload.RefreshToken
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persistSnapshot(ctx, snapshot)
	if payload.RefreshToken != "" {
		if err := s.storage.Set(ctx, s.keys.RefreshToken, payload.RefreshToken); err != nil {
			s.logger.Warn("persist refresh token failed", zap.Error(err))
		}
	}
	s.notify()
}

func (s *Store) clear(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.accessToken = ""
	s.refreshToken = ""
	s.mu.Unlock()

	if err := s.storage.Remove(ctx, s.keys.Auth); err != nil {
		s.logger.Warn("clear session snapshot failed", zap.Error(err))
	}
	if err := s.storage.Remove(ctx, s.keys.RefreshToken); err != nil {
		s.logger.Warn("clear refresh token failed", zap.Error(err))
	}
	s.notify()
}

func (s *Store) persistSnapshot(ctx context.Context, snapshot persistedState) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Warn("marshal session snapshot failed", zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, s.keys.Auth, string(data)); err != nil {
		s.logger.Warn("persist session snapshot failed", zap.Error(err))
	}
}

func (s *Store) rehydrate() {
	ctx := context.Background()

	raw, err := s.storage.Get(ctx, s.keys.Auth)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("read session snapshot failed", zap.Error(err))
		}
		return
	}

	var snapshot persistedState
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		s.logger.Warn("session snapshot corrupted, starting anonymous", zap.Error(err))
		return
	}

	if snapshot.User == nil || snapshot.Token == "" || !snapshot.IsAuthenticated {
		return
	}

	refreshToken := ""
	if v, err := s.storage.Get(ctx, s.keys.RefreshToken); err == nil {
		refreshToken = v
	}

	s.mu.Lock()
	s.user = snapshot.User
	s.accessToken = snapshot.Token
	s.refreshToken = refreshToken
	s.mu.Unlock()
}

func authError(err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return &AuthenticationError{Message: apiErr.Message}
	}
	return fmt.Errorf("auth service: %w", err)
}
