package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/food_delivery/internal/fakeapi"
	"github.com/Skotchmaster/food_delivery/internal/locationfeed"
	"github.com/Skotchmaster/food_delivery/internal/models"
	httpserver "github.com/Skotchmaster/food_delivery/internal/transport/http"
	"github.com/Skotchmaster/food_delivery/pkg/config"
	"github.com/Skotchmaster/food_delivery/pkg/logging"
)

func main() {
	seed := flag.Bool("seed", true, "load demo users, restaurants and shippers")
	rotate := flag.Bool("rotate-refresh", false, "return a new refresh token on every refresh")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(cfg.FakeAPI.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel)

	opts := fakeapi.Options{
		Secret:        []byte(cfg.FakeAPI.JWTSecret),
		AccessTTL:     cfg.FakeAPI.AccessTTL,
		RefreshTTL:    cfg.FakeAPI.RefreshTTL,
		RotateRefresh: *rotate,
		Logger:        logger,
	}

	var pub *locationfeed.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		pub = locationfeed.NewPublisher(locationfeed.NewWriter(cfg.Kafka))
		opts.Publisher = pub
	}

	api := fakeapi.New(opts)
	if *seed {
		if err := seedDemo(api); err != nil {
			log.Fatal(err)
		}
	}

	srv := &http.Server{
		Addr:         cfg.FakeAPI.Addr,
		Handler:      httpserver.New(&httpserver.Deps{API: api, Logger: logger}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("fakeapi_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	go func() {
		<-quit
		logger.Warn("force_exit")
		os.Exit(1)
	}()

	logger.Info("shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}

	if pub != nil {
		if err := pub.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}

	logger.Info("shutdown_complete")
}

func seedDemo(api *fakeapi.Server) error {
	_, err := api.AddUser(models.User{Email: "customer@example.com", Name: "Demo Customer", Address: "12 Nguyen Hue"}, "password")
	if err != nil {
		return err
	}
	boss, err := api.AddUser(models.User{Email: "owner@example.com", Name: "Demo Owner", Role: models.RoleRestaurantAdmin}, "password")
	if err != nil {
		return err
	}
	rider, err := api.AddUser(models.User{Email: "rider@example.com", Name: "Demo Rider", Role: models.RoleShipper}, "password")
	if err != nil {
		return err
	}
	if _, err := api.AddUser(models.User{Email: "admin@example.com", Name: "Demo Admin", Role: models.RoleAdmin}, "password"); err != nil {
		return err
	}

	api.AddRestaurant(models.Restaurant{
		ManagerID: boss.ID,
		Name:      "Pho 24",
		Address:   "5 Le Loi",
		MenuItems: []models.MenuItem{
			{Name: "Pho bo", Price: decimal.RequireFromString("4.50"), Available: true},
			{Name: "Pho ga", Price: decimal.RequireFromString("4.20"), Available: true},
			{Name: "Tra da", Price: decimal.RequireFromString("0.25"), Available: true},
		},
	})
	api.AddRestaurant(models.Restaurant{
		ManagerID: boss.ID,
		Name:      "Com Tam Ba Ghien",
		Address:   "84 Dang Van Ngu",
		MenuItems: []models.MenuItem{
			{Name: "Com suon", Price: decimal.RequireFromString("3.80"), Available: true},
			{Name: "Cha trung", Price: decimal.RequireFromString("1.10"), Available: false},
		},
	})
	api.AddShipper(models.Shipper{UserID: rider.ID, Location: &models.Location{Latitude: 10.7769, Longitude: 106.7009}})
	return nil
}
