package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jemi-market/storefront-core/internal/model"
	"github.com/jemi-market/storefront-core/internal/pricing"
)

type authResponse struct {
	User         model.User `json:"user"`
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req model.Registration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, nil, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		respond(w, http.StatusBadRequest, nil, "Name, email and password are required")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		respond(w, http.StatusConflict, nil, "Account already exists")
		return
	}

	user := model.User{
		ID:    s.nextUserID,
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}
	s.nextUserID++
	s.accounts[req.Email] = &account{user: user, password: req.Password}
	access, refresh := s.issueTokens(user.ID)
	s.mu.Unlock()

	s.logger.Info("account registered", zap.Int64("userID", user.ID))
	respond(w, http.StatusCreated, authResponse{User: user, Token: access, RefreshToken: refresh}, "")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, nil, "Invalid request body")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Email]
	if !ok || acc.password != req.Password {
		s.mu.Unlock()
		respond(w, http.StatusUnauthorized, nil, "Invalid credentials")
		return
	}
	access, refresh := s.issueTokens(acc.user.ID)
	user := acc.user
	s.mu.Unlock()

	respond(w, http.StatusOK, authResponse{User: user, Token: access, RefreshToken: refresh}, "")
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		s.mu.Lock()
		delete(s.accessTokens, token)
		s.mu.Unlock()
	}

	respond(w, http.StatusOK, nil, "")
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, nil, "Invalid request body")
		return
	}

	s.mu.Lock()
	userID, ok := s.refreshTokens[req.RefreshToken]
	if !ok {
		s.mu.Unlock()
		respond(w, http.StatusUnauthorized, nil, "Refresh token expired")
		return
	}
	access := uuid.NewString()
	s.accessTokens[access] = userID
	s.mu.Unlock()

	respond(w, http.StatusOK, map[string]string{"token": access}, "")
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	search := strings.ToLower(query.Get("q"))
	category := query.Get("category")
	featuredOnly := query.Get("featured") == "true"

	s.mu.Lock()
	products := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		if featuredOnly && !p.Featured {
			continue
		}
		products = append(products, p)
	}
	s.mu.Unlock()

	respond(w, http.StatusOK, products, "")
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.ID == id {
			respond(w, http.StatusOK, p, "")
			return
		}
	}

	respond(w, http.StatusNotFound, nil, "Product not found")
}

type createOrderRequest struct {
	Items []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	Shipping      model.ShippingInfo  `json:"shipping"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, nil, "Invalid request body")
		return
	}
	if len(req.Items) == 0 {
		respond(w, http.StatusBadRequest, nil, "Order must contain at least one item")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Повторы одного товара сливаются в одну позицию, чтобы суммарное
	// количество проверялось против остатка целиком.
	type requested struct {
		productID string
		quantity  int
	}
	merged := make([]requested, 0, len(req.Items))
	byProduct := make(map[string]int, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity < 1 {
			respond(w, http.StatusUnprocessableEntity, nil, fmt.Sprintf("Invalid quantity for %s", line.ProductID))
			return
		}
		if i, ok := byProduct[line.ProductID]; ok {
			merged[i].quantity += line.Quantity
			continue
		}
		byProduct[line.ProductID] = len(merged)
		merged = append(merged, requested{productID: line.ProductID, quantity: line.Quantity})
	}

	lines := make([]model.CartLineItem, 0, len(merged))
	orderItems := make([]model.OrderItem, 0, len(merged))
	for _, line := range merged {
		product, idx := s.findProductLocked(line.productID)
		if idx < 0 {
			respond(w, http.StatusUnprocessableEntity, nil, fmt.Sprintf("Unknown product %s", line.productID))
			return
		}
		if line.quantity > product.Stock {
			respond(w, http.StatusConflict, nil, fmt.Sprintf("Insufficient stock for %s", product.Name))
			return
		}

		lines = append(lines, model.CartLineItem{UnitPrice: product.Price, Quantity: line.quantity})
		orderItems = append(orderItems, model.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  line.quantity,
		})
	}

	// Списываем остатки только после проверки всех позиций.
	for _, line := range merged {
		_, idx := s.findProductLocked(line.productID)
		s.products[idx].Stock -= line.quantity
	}

	totals := pricing.Calculate(lines, s.pricing)

	s.nextOrderSeq++
	order := model.Order{
		ID:            uuid.NewString(),
		OrderNumber:   fmt.Sprintf("JM-%d", s.nextOrderSeq),
		Items:         orderItems,
		Subtotal:      totals.Subtotal,
		DeliveryFee:   totals.DeliveryFee,
		Total:         totals.Total,
		Status:        model.OrderStatusPending,
		PaymentMethod: req.PaymentMethod,
		Shipping:      req.Shipping,
		CreatedAt:     time.Now().UTC(),
	}
	s.orders[userID] = append(s.orders[userID], order)

	s.logger.Info("order created", zap.String("order", order.OrderNumber), zap.Int64("userID", userID))
	respond(w, http.StatusCreated, order, "")
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	s.mu.Lock()
	orders := make([]model.Order, len(s.orders[userID]))
	copy(orders, s.orders[userID])
	s.mu.Unlock()

	respond(w, http.StatusOK, orders, "")
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders[userID] {
		if o.ID == id {
			respond(w, http.StatusOK, o, "")
			return
		}
	}

	respond(w, http.StatusNotFound, nil, "Order not found")
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())

	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, o := range s.orders[userID] {
		if o.ID != id {
			continue
		}
		if o.Status != model.OrderStatusPending && o.Status != model.OrderStatusConfirmed {
			respond(w, http.StatusConflict, nil, "Order can no longer be cancelled")
			return
		}
		s.orders[userID][i].Status = model.OrderStatusCancelled
		respond(w, http.StatusOK, s.orders[userID][i], "")
		return
	}

	respond(w, http.StatusNotFound, nil, "Order not found")
}

type paymentInitRequest struct {
	OrderID       string              `json:"order_id"`
	Email         string              `json:"email"`
	Amount        int64               `json:"amount"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
}

// initializePayment выдаёт ссылку перенаправления на платёжный шлюз.
// Сам шлюз здесь заглушка: ссылка указывает на страницу подтверждения.
func (s *Server) initializePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentInitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, nil, "Invalid request body")
		return
	}
	if req.OrderID == "" || req.Amount <= 0 {
		respond(w, http.StatusBadRequest, nil, "Order and positive amount are required")
		return
	}

	reference := uuid.NewString()
	respond(w, http.StatusOK, map[string]string{
		"reference":         reference,
		"authorization_url": fmt.Sprintf("https://pay.example.com/%s/%s", req.PaymentMethod, reference),
	}, "")
}

func (s *Server) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" {
		respond(w, http.StatusBadRequest, nil, "Payment reference is required")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"status":    "success",
		"reference": req.Reference,
		"paid_at":   time.Now().UTC().Format(time.RFC3339),
	}, "")
}

func (s *Server) findProductLocked(id string) (model.Product, int) {
	for i, p := range s.products {
		if p.ID == id {
			return p, i
		}
	}
	return model.Product{}, -1
}
