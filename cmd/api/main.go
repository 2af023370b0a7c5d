package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"roleplay-insights-go/internal/api"
	"roleplay-insights-go/internal/app"
	"roleplay-insights-go/internal/config"
	"roleplay-insights-go/internal/logger"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "roleplay-insights-go").Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build application")
	}
	defer a.Close()

	go purgeLoop(ctx, a, log)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := api.Server(addr, api.NewHandler(a.Processor, a.Store, log))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}

	log.Info("waiting for running analyses")
	a.Processor.Wait()
}

// purgeLoop drops expired analysis records and statuses once an hour.
func purgeLoop(ctx context.Context, a *app.App, log *logger.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.Store.PurgeExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("purge failed")
				continue
			}
			log.WithField("rows", n).Debug("expired rows purged")
		}
	}
}
