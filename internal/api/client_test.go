package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jemi-market/storefront-core/internal/model"
)

type stubTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (s *stubTokens) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *stubTokens) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

func (s *stubTokens) setAccess(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = token
}

func writeEnvelope(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoded, _ := json.Marshal(data)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":    json.RawMessage(encoded),
		"message": message,
		"success": status >= 200 && status <= 299,
	})
}

func TestLogin_DecodesEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/auth/login" {
			t.Fatalf("path = %s, want /auth/login", r.URL.Path)
		}

		var creds model.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if creds.Email != "ada@example.com" {
			t.Fatalf("email = %s", creds.Email)
		}

		writeEnvelope(w, http.StatusOK, AuthPayload{
			User:         model.User{ID: 7, Name: "Ada", Email: creds.Email},
			Token:        "access-1",
			RefreshToken: "refresh-1",
		}, "")
	}))
	defer ts.Close()

	client := NewClient(ts.URL, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	payload, err := client.Login(ctx, model.Credentials{Email: "ada@example.com", Password: "Secret1"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if payload.User.ID != 7 || payload.Token != "access-1" || payload.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDo_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, []model.Product{}, "")
	}))
	defer ts.Close()

	client := NewClient(ts.URL, Options{Tokens: &stubTokens{access: "token-abc"}})

	if _, err := client.Products(context.Background(), ProductQuery{}); err != nil {
		t.Fatalf("Products error: %v", err)
	}
	if gotAuth != "Bearer token-abc" {
		t.Fatalf("Authorization = %q, want Bearer token-abc", gotAuth)
	}
}

func TestDo_ExtractsServiceMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, nil, "Invalid credentials")
	}))
	defer ts.Close()

	client := NewClient(ts.URL, Options{})

	_, err := client.Login(context.Background(), model.Credentials{Email: "a@b.c", Password: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if apiErr.Message != "Invalid credentials" {
		t.Fatalf("Message = %q, want service message", apiErr.Message)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
}

func TestDo_MessageFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, Options{})

	_, err := client.Orders(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if apiErr.Message != fallbackMessage {
		t.Fatalf("Message = %q, want fallback", apiErr.Message)
	}
}

func TestDo_RefreshesTokenAndRetriesOnce(t *testing.T) {
	var refreshCalls, orderCalls int32

	tokens := &stubTokens{access: "stale", refresh: "refresh-1"}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			atomic.AddInt32(&refreshCalls, 1)

			var req refreshRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode refresh body: %v", err)
			}
			if req.RefreshToken != "refresh-1" {
				t.Fatalf("refresh token = %q", req.RefreshToken)
			}

			writeEnvelope(w, http.StatusOK, refreshPayload{Token: "fresh"}, "")
		case "/orders":
			atomic.AddInt32(&orderCalls, 1)
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeEnvelope(w, http.StatusOK, []model.Order{}, "")
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	var renewed string
	client := NewClient(ts.URL, Options{
		Tokens: tokens,
		OnAccessToken: func(token string) {
			renewed = token
			tokens.setAccess(token)
		},
		OnAuthFailure: func() {
			t.Fatalf("auth failure must not fire on successful renewal")
		},
	})

	if _, err := client.Orders(context.Background()); err != nil {
		t.Fatalf("Orders error: %v", err)
	}

	if got := atomic.LoadInt32(&refreshCalls); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if got := atomic.LoadInt32(&orderCalls); got != 2 {
		t.Fatalf("order calls = %d, want 2 (original + retry)", got)
	}
	if renewed != "fresh" {
		t.Fatalf("OnAccessToken got %q, want fresh", renewed)
	}
}

func TestDo_SingleFlightRefresh(t *testing.T) {
	var refreshCalls int32

	tokens := &stubTokens{access: "stale", refresh: "refresh-1"}

	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			<-release
			writeEnvelope(w, http.StatusOK, refreshPayload{Token: "fresh"}, "")
		case "/orders":
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeEnvelope(w, http.StatusOK, []model.Order{}, "")
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL, Options{
		Tokens:        tokens,
		OnAccessToken: tokens.setAccess,
	})

	const parallel = 5
	var wg sync.WaitGroup
	errs := make([]error, parallel)

	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Orders(context.Background())
		}(i)
	}

	// Даём всем запросам получить 401 и встать в очередь на обновление.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d error: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&refreshCalls); got != 1 {
		t.Fatalf("refresh calls = %d, want exactly 1", got)
	}
}

func TestDo_BadCredentialsSkipRefreshAndLogout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login", "/auth/register":
			writeEnvelope(w, http.StatusUnauthorized, nil, "Invalid credentials")
		case "/auth/refresh":
			t.Fatalf("bad credentials must not trigger a token refresh")
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	var authFailures int32
	client := NewClient(ts.URL, Options{
		Tokens:        &stubTokens{access: "access-1", refresh: "refresh-1"},
		OnAuthFailure: func() { atomic.AddInt32(&authFailures, 1) },
	})

	_, err := client.Login(context.Background(), model.Credentials{Email: "a@b.c", Password: "wrong"})

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "Invalid credentials" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatalf("bad credentials must not be reported as an expired session")
	}

	_, err = client.Register(context.Background(), model.Registration{Email: "a@b.c"})
	if !errors.As(err, &apiErr) {
		t.Fatalf("register error type = %T, want *Error", err)
	}

	if got := atomic.LoadInt32(&authFailures); got != 0 {
		t.Fatalf("auth failures = %d, bad credentials must not force a logout", got)
	}
}

func TestDo_ForcedLogoutWithoutRefreshToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			t.Fatalf("refresh must not be attempted without a refresh token")
		}
		writeEnvelope(w, http.StatusUnauthorized, nil, "Token expired")
	}))
	defer ts.Close()

	var authFailures int32
	client := NewClient(ts.URL, Options{
		Tokens:        &stubTokens{access: "stale"},
		OnAuthFailure: func() { atomic.AddInt32(&authFailures, 1) },
	})

	_, err := client.Orders(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if got := atomic.LoadInt32(&authFailures); got != 1 {
		t.Fatalf("auth failures = %d, want 1", got)
	}
}

func TestDo_ForcedLogoutWhenRefreshFails(t *testing.T) {
	var refreshCalls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			atomic.AddInt32(&refreshCalls, 1)
			writeEnvelope(w, http.StatusUnauthorized, nil, "Refresh token expired")
			return
		}
		writeEnvelope(w, http.StatusUnauthorized, nil, "Token expired")
	}))
	defer ts.Close()

	var authFailures int32
	client := NewClient(ts.URL, Options{
		Tokens:        &stubTokens{access: "stale", refresh: "stale-refresh"},
		OnAuthFailure: func() { atomic.AddInt32(&authFailures, 1) },
	})

	_, err := client.Orders(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if got := atomic.LoadInt32(&refreshCalls); got != 1 {
		t.Fatalf("refresh calls = %d, want exactly 1", got)
	}
	if got := atomic.LoadInt32(&authFailures); got != 1 {
		t.Fatalf("auth failures = %d, want 1", got)
	}
}
