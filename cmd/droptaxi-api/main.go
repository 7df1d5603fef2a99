// README: Entry point; loads config, wires services and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"droptaxi/internal/config"
	httptransport "droptaxi/internal/http"
	"droptaxi/internal/infra"
	"droptaxi/internal/maps"
	"droptaxi/internal/modules/booking"
	"droptaxi/internal/modules/location"
	"droptaxi/internal/modules/notify"
	"droptaxi/internal/modules/pricing"
	"droptaxi/internal/modules/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := infra.NewLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("DROPTAXI_FIREBASE_PROJECT_ID is required")
	}
	if cfg.Maps.APIKey == "" {
		log.Fatal("GOOGLE_MAPS_API_KEY is required")
	}
	tz, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.WithError(err).Fatalf("unknown time zone %q", cfg.TimeZone)
	}

	app, err := infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.WithError(err).Fatal("firebase init")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, app)
	if err != nil {
		log.WithError(err).Fatal("firebase auth")
	}
	fs, err := infra.NewFirestore(ctx, app)
	if err != nil {
		log.WithError(err).Fatal("firestore")
	}
	defer fs.Close()
	fcm, err := infra.NewMessaging(ctx, app)
	if err != nil {
		log.WithError(err).Fatal("firebase messaging")
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.WithError(err).Fatal("postgres")
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	rates, err := pricing.NewStore(dbPool).LoadRateTable(ctx)
	if err != nil {
		log.WithError(err).Warn("fare rate overrides not loaded, using defaults")
		rates = pricing.DefaultRateTable()
	}
	pricingSvc := pricing.NewService(rates)

	routes, err := maps.NewRouteService(cfg.Maps.APIKey, cfg.Maps.Timeout)
	if err != nil {
		log.WithError(err).Fatal("maps route service")
	}
	places, err := maps.NewPlacesService(cfg.Maps.APIKey, cfg.Maps.Region)
	if err != nil {
		log.WithError(err).Fatal("maps places service")
	}
	locationSvc := location.NewService(routes, location.NewStore(redisClient, cfg.RouteCacheTTL), log)

	channels := []notify.Channel{
		notify.NewOperatorPush(fcm, notify.NewFirestoreTokens(fs)),
	}
	if cfg.Notify.TwilioAccountSID != "" && cfg.Notify.WhatsAppFrom != "" {
		tw := infra.NewTwilio(cfg.Notify.TwilioAccountSID, cfg.Notify.TwilioAuthToken)
		channels = append(channels, notify.NewWhatsApp(tw.Api, cfg.Notify.WhatsAppFrom))
	}
	if cfg.Notify.AMQPURL != "" {
		mq, err := infra.NewRabbitMQ(cfg.Notify.AMQPURL, cfg.Notify.Exchange)
		if err != nil {
			log.WithError(err).Fatal("rabbitmq")
		}
		defer mq.Close()
		channels = append(channels, notify.NewFeed(mq.Channel, cfg.Notify.Exchange))
	}
	dispatcher := notify.NewDispatcher(log, cfg.Notify.Timeout, channels...)

	events := booking.NewEventStore(dbPool)
	bookingStore := booking.NewStore(fs)
	bookingSvc := booking.NewService(booking.Deps{
		Store:    bookingStore,
		Sequence: booking.NewRedisSequence(redisClient),
		Events:   events,
		Notifier: dispatcher,
		Resolver: locationSvc,
		Pricing:  pricingSvc,
		Location: tz,
		Log:      log,
	})
	settlementSvc := settlement.NewService(bookingStore, events, dispatcher, log)

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Booking:    bookingSvc,
		Settlement: settlementSvc,
		Pricing:    pricingSvc,
		Places:     places,
		Verifier:   verifier,
		Log:        log,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", cfg.HTTP.Addr).Info("droptaxi api listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("http server")
	}
	dispatcher.Wait()
}
