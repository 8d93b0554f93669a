package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "vagabond/internal/config"
	intdb "vagabond/internal/db"
	"vagabond/internal/events"
	router "vagabond/internal/http"
	"vagabond/internal/http/handlers"
	"vagabond/internal/payments"
	"vagabond/internal/realtime"
	"vagabond/internal/services"
	"vagabond/internal/utils"
)

func main() {
	env := intconfig.LoadEnv()
	if err := env.Validate(); err != nil {
		utils.Log.WithError(err).Fatal("invalid configuration")
	}

	db, err := intconfig.ConnectDB(env)
	if err != nil {
		utils.Log.WithError(err).Fatal("database connection failed")
	}
	defer intconfig.CloseDB()

	if env.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := intdb.EnsureSchema(ctx, db)
		cancel()
		if err != nil {
			utils.Log.WithError(err).Fatal("schema bootstrap failed")
		}
	}

	auth := services.AuthService{Secret: []byte(env.JWTSecret)}
	if err := auth.Validate(); err != nil {
		utils.Log.WithError(err).Fatal("auth misconfigured")
	}

	hub := realtime.NewHub(env.CORSOrigins)
	dispatcher := events.Dispatcher{Feed: hub}
	if env.KafkaBroker != "" {
		publisher := events.NewKafkaPublisher(env.KafkaBroker, env.KafkaTopic)
		defer publisher.Close()
		dispatcher.Publisher = publisher
		utils.LogEvent("", "events", "init", "publishing booking events to "+env.KafkaBroker+"/"+env.KafkaTopic)
	}

	hs := &handlers.Handlers{
		DB:        db,
		Providers: registerProviders(env),
		Notifier:  dispatcher,
		Hub:       hub,
		JWTSecret: []byte(env.JWTSecret),
	}
	r := router.NewRouter(env, hs)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		utils.LogEvent("", "server", "start", "listening on "+env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	utils.LogEvent("", "server", "stop", "shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		utils.Log.WithError(err).Error("graceful shutdown failed")
		return
	}
	utils.LogEvent("", "server", "stop", "server stopped")
}

// registerProviders registers each provider whose credentials are set.
// Routes of a missing provider answer 503.
func registerProviders(env intconfig.Env) *payments.Registry {
	reg := payments.NewRegistry()

	if env.StripeSecretKey != "" && env.StripeWebhookSecret != "" {
		reg.Register(payments.NewStripe(payments.StripeConfig{
			SecretKey:     env.StripeSecretKey,
			WebhookSecret: env.StripeWebhookSecret,
			Currency:      env.StripeCurrency,
			ClientURL:     env.ClientURL,
			Timeout:       env.ProviderTimeout,
		}))
	}

	if env.PayPalClientID != "" && env.PayPalClientSecret != "" {
		pp, err := payments.NewPayPal(payments.PayPalConfig{
			ClientID:     env.PayPalClientID,
			ClientSecret: env.PayPalClientSecret,
			Mode:         env.PayPalMode,
			VNDPerUSD:    env.PayPalVNDPerUSD,
			ClientURL:    env.ClientURL,
			Timeout:      env.ProviderTimeout,
		})
		if err != nil {
			utils.LogError("", "payment", "init", err, "paypal disabled")
		} else {
			reg.Register(pp)
		}
	}

	if env.PayOSClientID != "" && env.PayOSAPIKey != "" && env.PayOSChecksumKey != "" {
		reg.Register(payments.NewPayOS(payments.PayOSConfig{
			ClientID:    env.PayOSClientID,
			APIKey:      env.PayOSAPIKey,
			ChecksumKey: env.PayOSChecksumKey,
			BaseURL:     env.PayOSBaseURL,
			ClientURL:   env.ClientURL,
			Timeout:     env.ProviderTimeout,
		}))
	}

	for _, name := range reg.Names() {
		utils.LogEvent("", "payment", "init", name+" enabled")
	}
	return reg
}
