package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"sessioncore/internal/clock"
	"sessioncore/internal/config"
	"sessioncore/internal/logging"
	"sessioncore/internal/metrics"
	"sessioncore/internal/notify"
	"sessioncore/internal/runner"
	"sessioncore/internal/storage"
	"sessioncore/internal/types"
	"sessioncore/pkg/execution"
	"sessioncore/pkg/marketdata"
)

const (
	AppVersion        = "0.1.0"
	DefaultConfigPath = "./config.json"
)

var (
	configPath = flag.String("config", DefaultConfigPath, "Path to configuration file")
	dateFlag   = flag.String("date", "", "Session date (YYYY-MM-DD, America/New_York); defaults to today")
	debugMode  = flag.Bool("debug", false, "Enable debug logging")
	version    = flag.Bool("version", false, "Show version information")
)

// Application owns the process-level lifecycle: config, logging, the
// metrics exporter, and the single running session.
type Application struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg    *config.Config
	logger *logging.Logger
	sess   *runner.Runner
}

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("sessiond %s\n", AppVersion)
		os.Exit(0)
	}

	app, err := initializeApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.run(); err != nil {
		app.logger.Fatalf("session run failed: %v", err)
	}

	app.logger.Info("sessiond shutdown completed")
}

func initializeApplication() (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg, err := loadConfigWithViper(*configPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if *debugMode {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		cancel()
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.Logging)
	logging.InitGlobalLogger(cfg.Logging)

	logger.WithFields(logrus.Fields{
		"version":        AppVersion,
		"symbol":         cfg.Session.Symbol,
		"execution_mode": cfg.Session.ExecutionMode,
		"config_path":    *configPath,
	}).Info("starting sessiond")

	metrics.Init()
	go serveMetrics(cfg.App.MetricsAddr, logger)

	date := *dateFlag
	mode := types.ExecutionMode(cfg.Session.ExecutionMode)
	r, err := buildRunner(cfg, date, mode, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build runner: %w", err)
	}

	app := &Application{ctx: ctx, cancel: cancel, cfg: cfg, logger: logger, sess: r}
	app.setupSignalHandling()
	return app, nil
}

// loadConfigWithViper reads configPath (if present) and SESSIOND_-prefixed
// environment overrides on top of config.DefaultConfig. File/env loading
// lives here, in the entrypoint, rather than in internal/config itself —
// internal/config only defines the tree and its defaults.
func loadConfigWithViper(configPath string) (*config.Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix("SESSIOND")
	v.AutomaticEnv()

	cfg := config.DefaultConfig()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func buildRunner(cfg *config.Config, date string, mode types.ExecutionMode, logger *logging.Logger) (*runner.Runner, error) {
	md, err := createMarketDataProvider(cfg.Stream, logger)
	if err != nil {
		return nil, fmt.Errorf("create market data provider: %w", err)
	}
	if err := md.Connect(context.Background()); err != nil {
		return nil, fmt.Errorf("connect market data provider: %w", err)
	}

	exec, err := createExecutionProvider(cfg.Execution, logger)
	if err != nil {
		return nil, fmt.Errorf("create execution provider: %w", err)
	}

	return runner.New(runner.Config{
		Symbol:        cfg.Session.Symbol,
		Date:          date,
		ExecutionMode: mode,
		Preset:        cfg.Session.Windows,
		Calendar:      clock.NewStaticHolidayCalendar(nil, nil),
		StrategyCfg:   cfg.Strategy.ToMachineConfig(),
		PacingCfg:     cfg.Pacing.ToPacingConfig(),
		Clock:         clock.NewRealClock(),
		MarketData:    md,
		Execution:     exec,
		Storage:       storage.NewMemoryProvider(),
		Notify:        notify.NewLoggingProvider(logger),
		Logger:        logger,
	})
}

func createMarketDataProvider(cfg config.StreamConfig, logger *logging.Logger) (marketdata.Provider, error) {
	switch cfg.ProviderType {
	case "", "simulation":
		return marketdata.NewSimulationProvider(marketdata.SimulationConfig{}), nil
	case "live":
		return marketdata.NewLiveProvider(marketdata.Config{
			ProviderType:   cfg.ProviderType,
			WSSURL:         cfg.WSSURL,
			ReconnectDelay: cfg.ReconnectDelay,
			MaxRetries:     cfg.MaxRetries,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown stream provider type %q", cfg.ProviderType)
	}
}

func createExecutionProvider(cfg config.ExecutionConfig, logger *logging.Logger) (execution.Provider, error) {
	switch cfg.ProviderType {
	case "", "mock":
		return execution.NewMockProvider(clock.NewRealClock().Now), nil
	case "live":
		return execution.NewLiveProvider(execution.Config{
			ProviderType: cfg.ProviderType,
			Commission:   cfg.CommissionCents,
			Timeout:      cfg.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown execution provider type %q", cfg.ProviderType)
	}
}

func serveMetrics(addr string, logger *logging.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	logger.Infof("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Warn("metrics server stopped")
	}
}

// run drives the single configured session to completion.
func (app *Application) run() error {
	mode := app.sess.Session().ExecutionMode
	var err error
	if mode == types.ExecutionBacktest {
		err = app.sess.RunBacktest(app.ctx)
	} else {
		err = app.sess.Run(app.ctx)
	}

	session := app.sess.Session()
	app.logger.WithFields(logrus.Fields{
		"session_id": session.SessionID,
		"status":     session.Status,
		"trades":     len(session.Trades),
	}).Info("session finished")

	return err
}

func (app *Application) setupSignalHandling() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		sig := <-sigCh
		app.logger.WithField("signal", sig.String()).Info("signal received, stopping session")
		app.sess.Stop()

		select {
		case <-sigCh:
			app.logger.Warn("second signal received, forcing exit")
			os.Exit(1)
		case <-time.After(10 * time.Second):
			app.cancel()
		}
	}()
}
