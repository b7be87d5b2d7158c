package mockapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router настраивает HTTP-маршруты встроенного сервиса магазина.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Post("/auth/register", s.register)
	r.Post("/auth/login", s.login)
	r.Post("/auth/refresh", s.refreshToken)

	r.Get("/products", s.listProducts)
	r.Get("/products/{id}", s.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(s.withAuth)

		r.Post("/auth/logout", s.logout)

		r.Post("/orders", s.createOrder)
		r.Get("/orders", s.listOrders)
		r.Get("/orders/{id}", s.getOrder)
		r.Post("/orders/{id}/cancel", s.cancelOrder)

		r.Post("/payment/initialize", s.initializePayment)
		r.Post("/payment/verify", s.verifyPayment)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusNotFound, nil, "Not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusMethodNotAllowed, nil, "Method not allowed")
	})

	return r
}

// withAuth проверяет bearer-токен и кладёт идентификатор пользователя в
// контекст запроса.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.authenticate(r)
		if !ok {
			respond(w, http.StatusUnauthorized, nil, "Token expired")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userIDFromContext извлекает идентификатор пользователя из контекста запроса.
func userIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}
