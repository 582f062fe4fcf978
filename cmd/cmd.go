package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/harmony-helper/internal/pkg/bridge"
	"github.com/anicoll/harmony-helper/internal/pkg/config"
	"github.com/anicoll/harmony-helper/internal/pkg/database"
	"github.com/anicoll/harmony-helper/internal/pkg/database/migration"
	"github.com/anicoll/harmony-helper/internal/pkg/helper"
	"github.com/anicoll/harmony-helper/internal/pkg/homeassistant"
	"github.com/anicoll/harmony-helper/internal/pkg/influxdb"
	"github.com/anicoll/harmony-helper/internal/pkg/mqtt"
	"github.com/anicoll/harmony-helper/internal/pkg/publisher"
	"github.com/anicoll/harmony-helper/internal/pkg/server"
)

var (
	errCron = errors.New("cron error")

	reconnectDelay    = 5 * time.Second
	heartbeatInterval = 30 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// HelperCommand loads the config, connects every configured service and runs the bridge until interrupted.
func HelperCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	deps := Dependencies{HomeAssistant: homeassistant.New(cfg.HomeAssistant)}

	if cfg.MqttCfg.Enabled() {
		connected := make(chan struct{}, 1)
		opts := mqtt.NewClientOptions(cfg.MqttCfg, func(paho_mqtt.Client) {
			select {
			case connected <- struct{}{}:
			default:
			}
		})
		deps.Mqtt = mqtt.New(paho_mqtt.NewClient(opts), cfg.MqttCfg)
		deps.MqttConnected = connected
	}

	if cfg.Database.Enabled() {
		if err := migration.Migrate(cfg.Database.URL); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		db, err := database.NewDatabase(c.Context, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		deps.History = db
	}

	if cfg.Influx.Enabled() {
		client, err := influxdb.Connect(c.Context, cfg.Influx)
		if err != nil {
			return err
		}
		defer client.Close()
		deps.Influx = client
	}

	err = run(c.Context, cfg, deps, logger)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	var err error
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

func run(ctx context.Context, cfg *config.Config, deps Dependencies, logger *zap.Logger) error {
	registry := publisher.NewRegistry()
	if deps.Mqtt != nil {
		if err := registry.Register("mqtt", deps.Mqtt); err != nil {
			return err
		}
	}
	if deps.History != nil {
		if err := registry.Register("postgres", deps.History); err != nil {
			return err
		}
	}
	if deps.Influx != nil {
		if err := registry.Register("influxdb", deps.Influx); err != nil {
			return err
		}
	}

	b := bridge.New(helper.BuildAll(cfg, logger), deps.HomeAssistant, registry)

	eg, ctx := errgroup.WithContext(ctx)

	if deps.Mqtt != nil {
		if err := deps.Mqtt.Connect(); err != nil {
			return fmt.Errorf("connecting to mqtt: %w", err)
		}
		defer func() {
			if err := deps.Mqtt.Close(); err != nil {
				logger.Warn("failed to mark bridge offline", zap.Error(err))
			}
		}()
		eg.Go(func() error {
			return handleMqttConnects(ctx, deps.Mqtt, deps.MqttConnected, b, logger)
		})
	}

	if err := b.Register(ctx); err != nil {
		return err
	}
	logger.Info("sensors registered",
		zap.Int("sensors", len(b.Sensors())),
		zap.Strings("publishers", registry.Names()),
	)

	eg.Go(func() error {
		return connectLoop(ctx, deps.HomeAssistant, b, logger)
	})

	eg.Go(func() error {
		srv := server.NewHTTPServer(cfg.HTTP.Addr, server.New(b, deps.History).Router(cfg.HTTP.JWTSecret))
		return serveHTTP(ctx, srv, logger)
	})

	if deps.History != nil {
		eg.Go(func() error {
			return cronCleanup(ctx, deps.History, cfg.Database, logger)
		})
	}

	return eg.Wait()
}

// connectLoop keeps the Home Assistant connection up. Only an auth failure ends it.
func connectLoop(ctx context.Context, ha HomeAssistant, b *bridge.Bridge, logger *zap.Logger) error {
	for {
		if err := connectOnce(ctx, ha, b, logger); err != nil {
			if errors.Is(err, homeassistant.ErrAuthInvalid) {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("home assistant connection failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func connectOnce(ctx context.Context, ha HomeAssistant, b *bridge.Bridge, logger *zap.Logger) error {
	if err := ha.Connect(ctx); err != nil {
		return err
	}
	if err := b.Start(ctx); err != nil {
		_ = ha.Close()
		return err
	}
	logger.Info("connected to home assistant")

	// A failed heartbeat tears the connection down so connectLoop dials again.
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = ha.Close()
			return ctx.Err()
		case err := <-ha.Done():
			return err
		case <-heartbeat.C:
			if err := ha.Ping(ctx); err != nil {
				_ = ha.Close()
				return fmt.Errorf("heartbeat: %w", err)
			}
		}
	}
}

// handleMqttConnects marks the bridge online and resubscribes to button presses after every broker connect.
func handleMqttConnects(ctx context.Context, svc MqttService, connected <-chan struct{}, b *bridge.Bridge, logger *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-connected:
			if err := svc.Online(); err != nil {
				logger.Error("failed to mark bridge online", zap.Error(err))
			}
			if err := svc.SubscribeCommands(func(objectID string) {
				if err := b.SendCommand(ctx, objectID); err != nil {
					logger.Error("send_command failed", zap.String("object_id", objectID), zap.Error(err))
				}
			}); err != nil {
				logger.Error("failed to subscribe to commands", zap.Error(err))
			}
		}
	}
}

func serveHTTP(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	logger.Info("starting http server", zap.String("addr", srv.Addr))
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func cronCleanup(ctx context.Context, store HistoryStore, cfg config.DatabaseConfig, logger *zap.Logger) error {
	cleanup := func() {
		deleted, err := store.Cleanup(ctx, cfg.Retention)
		if err != nil {
			logger.Error("error cleaning up database", zap.Error(err))
			return
		}
		logger.Info("cleaned up sensor history", zap.Int64("deleted", deleted), zap.Duration("retention", cfg.Retention))
	}
	cleanup()

	c := cron.New()
	if _, err := c.AddFunc(cfg.CleanupSchedule, cleanup); err != nil {
		return fmt.Errorf("%w: %w", errCron, err)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}
