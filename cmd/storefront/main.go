// Package main запускает ядро витрины вместе со встроенным сервисом
// магазина для разработки.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jemi-market/storefront-core/internal/api"
	"github.com/jemi-market/storefront-core/internal/cart"
	"github.com/jemi-market/storefront-core/internal/checkout"
	"github.com/jemi-market/storefront-core/internal/config"
	"github.com/jemi-market/storefront-core/internal/mockapi"
	"github.com/jemi-market/storefront-core/internal/model"
	"github.com/jemi-market/storefront-core/internal/pricing"
	"github.com/jemi-market/storefront-core/internal/session"
	"github.com/jemi-market/storefront-core/internal/storage"
	"github.com/jemi-market/storefront-core/internal/ui"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	kv, err := newKeyValue(cfg)
	if err != nil {
		sugar.Fatalw("storage initialization error", "error", err.Error())
	}

	pricingCfg := pricing.Config{
		FreeDeliveryThreshold: cfg.FreeDeliveryThreshold,
		DeliveryFee:           cfg.DeliveryFee,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Без внешнего сервиса поднимаем встроенный магазин.
	baseURL := cfg.APIBaseURL
	var backend *http.Server
	if baseURL == "" {
		backend = &http.Server{
			Addr:    cfg.RunAddress,
			Handler: mockapi.NewServer(pricingCfg, logger).Router(),
		}
		baseURL = "http://" + cfg.RunAddress
	}

	sess := session.New(kv, session.Keys{
		Auth:         cfg.AuthKey,
		RefreshToken: cfg.RefreshTokenKey,
	}, logger)
	sess.OnForcedLogout(func(path string) {
		sugar.Infow("session expired, redirecting", "path", path)
	})

	client := api.NewClient(baseURL, api.Options{
		Tokens:        sess,
		OnAccessToken: sess.UpdateAccessToken,
		OnAuthFailure: sess.ForceLogout,
		Logger:        logger,
	})
	sess.AttachAPI(client)

	cartStore := cart.New(kv, cfg.CartKey, pricingCfg, logger)
	flow := checkout.New(cartStore, client, logger)
	toasts := ui.NewNotifier()
	toasts.Subscribe(func() {
		for _, t := range toasts.Toasts() {
			sugar.Infow("toast", "type", t.Type, "message", t.Message)
		}
	})

	sugar.Infow("storefront core ready",
		"backend", baseURL,
		"authenticated", sess.IsAuthenticated(),
		"cartItems", cartStore.ItemCount(),
		"checkout", flow.Status().String(),
	)

	if backend != nil {
		g.Go(func() error {
			sugar.Infow("starting embedded storefront backend", "addr", cfg.RunAddress)
			if err := backend.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("backend error: %w", err)
			}
			return nil
		})

		// Сквозной прогон по встроенному магазину: регистрация, каталог,
		// корзина, оформление.
		g.Go(func() error {
			if err := runDemo(ctx, client, sess, cartStore, flow, toasts); err != nil {
				sugar.Warnw("demo flow failed", "error", err.Error())
			}
			return nil
		})

		// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
		g.Go(func() error {
			<-ctx.Done()
			sugar.Info("shutting down embedded backend...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := backend.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("backend shutdown error: %w", err)
			}
			sugar.Info("backend stopped gracefully")
			return nil
		})
	} else {
		g.Go(func() error {
			<-ctx.Done()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// runDemo прогоняет полный путь покупателя по встроенному магазину.
func runDemo(ctx context.Context, client *api.Client, sess *session.Store, cartStore *cart.Store, flow *checkout.Flow, toasts *ui.Notifier) error {
	// Ждём готовности встроенного сервиса.
	var products []model.Product
	var err error
	for i := 0; i < 20; i++ {
		products, err = client.Products(ctx, api.ProductQuery{})
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
	if err != nil {
		return fmt.Errorf("backend not ready: %w", err)
	}
	if len(products) == 0 {
		return fmt.Errorf("catalog is empty")
	}

	if !sess.IsAuthenticated() {
		err = sess.Register(ctx, model.Registration{
			Name:     "Demo Buyer",
			Email:    fmt.Sprintf("demo-%d@example.com", time.Now().Unix()),
			Phone:    "08012345678",
			Password: "Secret1",
		})
		if err != nil {
			return fmt.Errorf("register: %w", err)
		}
	}

	p := products[0]
	err = cartStore.AddItem(ctx, model.CartLineItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  2,
		Stock:     p.Stock,
		SellerID:  p.SellerID,
	})
	if err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	toasts.Success(p.Name + " added to cart")

	err = flow.SubmitShipping(model.ShippingInfo{
		FullName: "Demo Buyer",
		Email:    "demo@example.com",
		Phone:    "08012345678",
		Address:  "12 Allen Avenue, Ikeja",
		City:     "Lagos",
		State:    "Lagos",
	})
	if err != nil {
		return fmt.Errorf("shipping: %w", err)
	}
	flow.SelectPayment(model.PaymentPaystack)

	order, err := flow.Submit(ctx)
	if err != nil {
		toasts.Error("Order submission failed")
		return fmt.Errorf("submit order: %w", err)
	}
	toasts.Success("Order " + order.OrderNumber + " placed")

	return nil
}

// newKeyValue выбирает долговременное хранилище состояния: Redis, если
// задан адрес, иначе локальный файл.
func newKeyValue(cfg *config.Config) (storage.KeyValue, error) {
	if cfg.RedisAddress != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return storage.NewRedis(client), nil
	}

	return storage.NewFile(cfg.StoragePath)
}
