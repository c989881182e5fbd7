package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"klinik/antrian/internal/announce"
	"klinik/antrian/internal/config"
	"klinik/antrian/internal/livesync"
	"klinik/antrian/internal/logging"
	"klinik/antrian/internal/telemetry"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const serviceName = "display-client"

func main() {
	cfg, err := config.LoadDisplay()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Init(serviceName, cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := telemetry.Setup(ctx, serviceName, cfg.OTLPEndpoint)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(shutdownCtx)
	}()

	source, err := livesync.NewHTTPSource(cfg.BaseURL, cfg.DepartmentID, cfg.FetchTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("display source")
	}
	pipeline := announce.NewPipeline(announce.NewSpeaker(cfg.SpeakCmd, cfg.ChimeCmd), announce.Options{
		Locale:      announce.ParseLocale(cfg.Locale),
		RepeatPause: cfg.RepeatPause,
		Volume:      cfg.Volume,
		Muted:       cfg.Muted,
	})
	loop := livesync.NewLoop(source, pipeline, livesync.Options{
		Interval:    cfg.PollInterval,
		RepeatCount: cfg.RepeatCount,
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("base_url", cfg.BaseURL).Str("department_id", cfg.DepartmentID).Msg("display client polling")
		return loop.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return pipeline.Close(closeCtx)
	})

	toggles := make(chan os.Signal, 1)
	signal.Notify(toggles, syscall.SIGUSR1)
	defer signal.Stop(toggles)
	group.Go(func() error {
		announce.WatchMuteToggle(groupCtx, pipeline, toggles)
		return nil
	})

	if cfg.ControlAddr != "" {
		control := &http.Server{
			Addr:              cfg.ControlAddr,
			Handler:           announce.ControlHandler(pipeline),
			ReadHeaderTimeout: 5 * time.Second,
		}
		group.Go(func() error {
			log.Info().Str("addr", cfg.ControlAddr).Msg("audio control listening")
			// announcements keep playing without the control endpoint
			if err := control.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("audio control stopped")
			}
			return nil
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return control.Shutdown(shutdownCtx)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("display client stopped")
	}
}
