// README: Entry point; loads config, wires services, starts the HTTP server.
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

	"metrosync/internal/config"
	httptransport "metrosync/internal/http"
	"metrosync/internal/infra"
	"metrosync/internal/logging"
	"metrosync/internal/maps"
	"metrosync/internal/modules/booking"
	"metrosync/internal/modules/location"
	"metrosync/internal/modules/pricing"
	"metrosync/internal/modules/route"
	"metrosync/internal/modules/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("METROSYNC_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	// A published fare rate in the database overrides the env defaults.
	fareCfg := cfg.Fare
	if rate, ok, err := pricing.NewStore(dbPool).ActiveRate(ctx); err != nil {
		logger.Warn("fare rate lookup failed, using config defaults", "err", err)
	} else if ok {
		fareCfg = config.FareConfig{BaseFare: rate.BaseFare, RatePerKm: rate.RatePerKm, Currency: rate.Currency}
		logger.Info("using published fare rate", "base", rate.BaseFare, "per_km", rate.RatePerKm, "currency", rate.Currency)
	}
	pricingSvc := pricing.NewService(fareCfg)

	var estimator maps.TravelEstimator
	if cfg.Maps.APIKey != "" {
		est, err := maps.NewDirectionsEstimator(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		estimator = est
	} else {
		logger.Warn("METROSYNC_MAPS_API_KEY not set, stop offsets use average-speed estimates")
		estimator = maps.SpeedEstimator{}
	}

	userStore := user.NewPGStore(dbPool)
	userSvc := user.NewService(userStore, logger)

	routeStore := route.NewPGStore(dbPool)
	routeSvc := route.NewService(routeStore, userStore, estimator, logger)
	matcher := route.NewMatcher(routeStore, cfg.Matching)

	bookingSvc := booking.NewService(booking.NewPGStore(dbPool), routeStore, userStore, pricingSvc, userSvc, logger)

	locationStore := location.NewStore(dbPool, redisClient)
	locationSvc := location.NewService(locationStore, userStore)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Users:    userSvc,
		Routes:   routeSvc,
		Matcher:  matcher,
		Bookings: bookingSvc,
		Location: locationSvc,
		Verifier: verifier,
		Log:      logger,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
