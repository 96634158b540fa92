package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"silentwave/internal/audio"
	"silentwave/internal/config"
	"silentwave/internal/events"
	"silentwave/internal/fetcher"
	"silentwave/internal/hfc"
	"silentwave/internal/logger"
	"silentwave/internal/metrics"
	"silentwave/internal/monitor"
	"silentwave/internal/prefs"
	"silentwave/internal/proxy"
	"silentwave/internal/reducer"
	"silentwave/internal/server"
)

func ServeCmd() *cobra.Command {
	var (
		configPath string
		staticDir  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the alert proxy, monitor and dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init()
			defer logger.Log.Info("Application stopped")

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, staticDir)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (.json, .yaml)")
	cmd.Flags().StringVar(&staticDir, "static", "", "Directory with dashboard assets to serve at /")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, errors.Wrap(err, "config load")
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, errors.Wrap(err, "config env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validate")
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg *config.Config, staticDir string) error {
	log := logger.Component("serve")
	m := metrics.New()

	client, err := hfc.NewClient(hfc.Options{
		URL:      cfg.AlertsURL,
		ProxyURL: cfg.AlertsProxyURL,
		Timeout:  cfg.Timeout(),
	})
	if err != nil {
		return errors.Wrap(err, "hfc client")
	}

	alertProxy := proxy.NewAlertProxy(client, cfg.AlertTTL(), cfg.MockTTL(), m)
	defer alertProxy.Close()
	newsProxy := proxy.NewNewsProxy(fetcher.New(cfg.Timeout()), cfg.NewsURL, cfg.NewsLimit, cfg.NewsTTL(), m)
	defer newsProxy.Close()

	broker := events.NewBroker()
	r := reducer.New(reducer.Options{
		Player:  audio.NewBroadcastPlayer(broker),
		Sink:    broker,
		Metrics: m,
	})

	// Выбранные города из прошлого запуска
	store := prefs.NewStore(cfg.PrefsPath)
	saved, err := store.Load()
	if err != nil {
		log.WithError(err).Warn("Ignoring unreadable preferences")
	} else {
		r.SetSelectedCities(saved.SelectedCities)
	}
	if cfg.AudioAutoUnlock {
		r.UnlockAudio()
	}

	src := monitor.ProxySource{Alerts: alertProxy, News: newsProxy}
	mon := monitor.New(src, src, r, broker, m, monitor.Config{
		AlertInterval: cfg.AlertInterval(),
		NewsInterval:  cfg.NewsInterval(),
	})

	srv := server.NewServer(server.Deps{
		Alerts:     alertProxy,
		News:       newsProxy,
		Reducer:    r,
		Broker:     broker,
		Prefs:      store,
		Metrics:    m,
		EnableMock: cfg.EnableMockEndpoint,
		StaticDir:  staticDir,
	})
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запуск периодического опроса
	monCtx, cancelMon := context.WithCancel(ctx)
	monDone := make(chan struct{})
	go func() {
		defer close(monDone)
		mon.Run(monCtx)
	}()

	// HTTP сервер
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	log.Info("Shutting down...")
	cancelMon()
	<-monDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "forced shutdown")
	}
	return errors.Wrap(serveErr, "http server")
}
