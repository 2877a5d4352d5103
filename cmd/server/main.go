package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/smirnovnv/fur-store/internal/app"
	"github.com/smirnovnv/fur-store/internal/app/handlers"
	"github.com/smirnovnv/fur-store/internal/config"
	"github.com/smirnovnv/fur-store/internal/jwt/jwtmiddleware"
	"github.com/smirnovnv/fur-store/internal/lib/logger"
	"github.com/smirnovnv/fur-store/internal/lib/logger/handlers/urllog"
	"github.com/smirnovnv/fur-store/internal/service"
	"github.com/smirnovnv/fur-store/internal/storage"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)

	authService := service.NewAuthService(application.Logger, userRepo, time.Duration(application.Config.JWT.TokenTTL)*time.Minute)
	cartService := service.NewCartService(application.Logger, application.DB, cartRepo, productRepo)
	checkoutService := service.NewCheckoutService(application.Logger, application.DB, cartRepo, productRepo, orderRepo)
	orderService := service.NewOrderService(application.Logger, orderRepo)

	// эндпоинт для аутентификации
	router.Post("/api/auth", handlers.AuthHandler(application.Logger, authService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)
		// корзина текущего пользователя
		r.Get("/api/cart", handlers.GetCartHandler(application.Logger, cartService))
		// добавление товара (повторное добавление увеличивает количество)
		r.Post("/api/cart/add", handlers.AddCartItemHandler(application.Logger, cartService))
		// изменение количества конкретной позиции
		r.Patch("/api/cart/items", handlers.UpdateCartItemHandler(application.Logger, cartService))
		// удаление позиции из корзины
		r.Delete("/api/cart/items/{productID}", handlers.RemoveCartItemHandler(application.Logger, cartService))
		// оформление заказа по корзине
		r.Post("/api/orders", handlers.CheckoutHandler(application.Logger, checkoutService))
		// просмотр оформленного заказа
		r.Get("/api/orders/{orderID}", handlers.OrderHandler(application.Logger, orderService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
