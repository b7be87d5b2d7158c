// Package api предоставляет клиент для внешнего сервиса магазина.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrUnauthorized возвращается, когда сервис отклонил аутентификацию
// и молчаливое обновление токена невозможно или не удалось.
var ErrUnauthorized = errors.New("authentication required")

const fallbackMessage = "An error occurred"

// Error описывает отказ внешнего сервиса с человекочитаемым сообщением,
// извлечённым из тела ответа.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
}

// TokenSource выдаёт текущие токены сессии. Реализуется хранилищем сессии.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
}

// Options содержит зависимости клиента.
type Options struct {
	HTTPClient *http.Client
	Tokens     TokenSource
	// OnAccessToken вызывается после успешного молчаливого обновления токена.
	OnAccessToken func(token string)
	// OnAuthFailure вызывается при окончательном отказе аутентификации.
	OnAuthFailure func()
	Logger        *zap.Logger
}

// Client инкапсулирует HTTP-взаимодействие с сервисом магазина.
// Все ответы сервиса приходят в конверте {data, message, success}.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokens        TokenSource
	onAccessToken func(token string)
	onAuthFailure func()
	logger        *zap.Logger
	refresh       singleflight.Group
}

// NewClient создаёт клиент сервиса магазина по указанному базовому адресу.
func NewClient(baseURL string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    httpClient,
		tokens:        opts.Tokens,
		onAccessToken: opts.OnAccessToken,
		onAuthFailure: opts.OnAuthFailure,
		logger:        logger,
	}
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Success bool            `json:"success"`
}

// do выполняет запрос к сервису и раскладывает конверт ответа в out.
// При ответе 401 выполняется ровно одна попытка обновления токена,
// после чего исходный запрос повторяется один раз.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token := ""
	if c.tokens != nil {
		token = c.tokens.AccessToken()
	}

	resp, raw, err := c.roundTrip(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !isCredentialPath(path) {
		newToken, renewErr := c.renewAccessToken(ctx)
		if renewErr != nil {
			c.failAuth()
			return fmt.Errorf("%w: %s", ErrUnauthorized, extractMessage(raw))
		}

		resp, raw, err = c.roundTrip(ctx, method, path, body, newToken)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.failAuth()
			return fmt.Errorf("%w: %s", ErrUnauthorized, extractMessage(raw))
		}
	}

	return decodeEnvelope(resp.StatusCode, raw, out)
}

// isCredentialPath истинно для точек входа по учётным данным. Ответ 401
// здесь означает неверные данные, а не истёкшую сессию: обновление токена
// и принудительный выход не выполняются, ошибка уходит вызывающему как
// обычный отказ сервиса.
func isCredentialPath(path string) bool {
	return path == pathLogin || path == pathRegister || path == pathRefresh
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, token string) (*http.Response, []byte, error) {
	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}

	return resp, raw, nil
}

// renewAccessToken выполняет обновление access-токена по refresh-токену.
// Одновременные вызовы схлопываются в один запрос: все ожидающие получают
// его результат.
func (c *Client) renewAccessToken(ctx context.Context) (string, error) {
	refreshToken := ""
	if c.tokens != nil {
		refreshToken = c.tokens.RefreshToken()
	}
	if refreshToken == "" {
		return "", ErrUnauthorized
	}

	v, err, _ := c.refresh.Do("refresh", func() (any, error) {
		resp, raw, err := c.roundTrip(ctx, http.MethodPost, pathRefresh, refreshRequest{RefreshToken: refreshToken}, "")
		if err != nil {
			return nil, err
		}

		var payload refreshPayload
		if err := decodeEnvelope(resp.StatusCode, raw, &payload); err != nil {
			return nil, err
		}
		if payload.Token == "" {
			return nil, fmt.Errorf("refresh response without token")
		}

		if c.onAccessToken != nil {
			c.onAccessToken(payload.Token)
		}
		c.logger.Debug("access token renewed")

		return payload.Token, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (c *Client) failAuth() {
	if c.onAuthFailure != nil {
		c.onAuthFailure()
	}
}

func decodeEnvelope(statusCode int, raw []byte, out any) error {
	if statusCode < 200 || statusCode > 299 {
		return &Error{StatusCode: statusCode, Message: extractMessage(raw)}
	}

	if out == nil && len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = fallbackMessage
		}
		return &Error{StatusCode: statusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}

	return nil
}

func extractMessage(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return fallbackMessage
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshPayload struct {
	Token string `json:"token"`
}
