package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/shahid0mer/shopease/internal/config"
	"github.com/shahid0mer/shopease/internal/es"
	"github.com/shahid0mer/shopease/internal/handlers"
	"github.com/shahid0mer/shopease/internal/httperr"
	"github.com/shahid0mer/shopease/internal/logging"
	"github.com/shahid0mer/shopease/internal/mykafka"
	"github.com/shahid0mer/shopease/internal/razorpay"
	"github.com/shahid0mer/shopease/internal/service/search"
	httpserver "github.com/shahid0mer/shopease/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	} else {
		logger.Warn("KAFKA_ADDRESS not set, domain events disabled")
	}

	var searchSvc *search.Service
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init failed: %v", err)
		}
		searchSvc = search.New(esClient, "products")
	} else {
		logger.Warn("ES_URL not set, product search disabled")
	}

	// One gateway client for the whole process, injected where needed.
	gateway := razorpay.NewClient(configuration.RAZORPAY_KEY_ID, configuration.RAZORPAY_KEY_SECRET)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httperr.Handler
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:             db,
		JWTSecret:      jwtSecret,
		AuthHandler:    &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, Producer: prod},
		AddressHandler: &handlers.AddressHandler{DB: db},
		ProductHandler: &handlers.ProductHandler{DB: db, Producer: prod, Search: searchSvc},
		CartHandler:    &handlers.CartHandler{DB: db, Producer: prod},
		OrderHandler:   &handlers.OrderHandler{DB: db, Producer: prod},
		PaymentHandler: &handlers.PaymentHandler{DB: db, Gateway: gateway, Producer: prod},
		SearchHandler:  &handlers.SearchHandler{Svc: searchSvc},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "port", configuration.PORT)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := prod.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
