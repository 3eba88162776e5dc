package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shankarsamidala/deals/internal/alert"
	"github.com/shankarsamidala/deals/internal/config"
	"github.com/shankarsamidala/deals/internal/gateway"
	"github.com/shankarsamidala/deals/internal/logging"
	"github.com/shankarsamidala/deals/internal/monitor"
	"github.com/shankarsamidala/deals/internal/sink"
	"github.com/shankarsamidala/deals/internal/store"
	"github.com/shankarsamidala/deals/internal/transport"
	tgram "github.com/shankarsamidala/deals/internal/transport/telebot"
)

func newRunCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start monitoring the configured channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			// Rebuild the logger with the configured level and style. The
			// --log-level flag wins over the file.
			level := cfg.Logging.Level
			if logLevel != "" {
				level = logLevel
			}
			log = logging.New(nil, level, cfg.Logging.Style)

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating directories: %w", err)
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Sinks: persistent store and/or console, plus the gateway's
			// live feed. Everything sits behind one bounded queue so the
			// engine's handlers never block on a slow consumer.
			var (
				targets sink.Fanout
				records *store.RecordStore
			)
			if cfg.Sink.Store == "sqlite" {
				dbPath := filepath.Join(paths.Data, "dealwatch.db")
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				records = store.NewRecordStore(db)
				targets = append(targets, records)
				log.Info().Str("path", dbPath).Msg("using SQLite record store")
			} else {
				targets = append(targets, sink.NewConsole(log))
				log.Info().Msg("using console sink")
			}

			provider := tgram.NewProvider(cfg.Telegram.Channels, log)
			cred := transport.Credential{Token: cfg.Telegram.Token}
			opts := monitor.Options{
				WatchInterval:     cfg.Monitor.WatchInterval.Std(),
				ConnectTimeout:    cfg.Monitor.ConnectTimeout.Std(),
				ReconnectAttempts: cfg.Monitor.ReconnectAttempts,
				ReconnectBase:     cfg.Monitor.ReconnectBase.Std(),
				FloodWaitCap:      cfg.Monitor.FloodWaitCap.Std(),
				Keywords:          cfg.Telegram.Keywords,
			}

			// The engine and gateway reference each other: the gateway reads
			// engine health, the engine emits records into the gateway's
			// live feed. Build the engine against the fanout slice before
			// the gateway is appended to it.
			queue := sink.NewQueue(&targets, cfg.Sink.QueueSize, log)
			defer queue.Close()

			engine := monitor.New(provider, cred, opts, queue, log)

			gwOpts := []gateway.ServerOption{}
			if records != nil {
				gwOpts = append(gwOpts, gateway.WithStats(records))
			}
			srv := gateway.New(cfg.Gateway, engine, log, gwOpts...)
			targets = append(targets, srv)

			notifier := alert.NewNotifier(cfg.Alerts.Webhook, cfg.Alerts.MinInterval.Std(), log)

			if err := engine.Start(ctx); err != nil {
				return fmt.Errorf("starting monitor: %w", err)
			}
			defer engine.Stop()
			notifier.Send(ctx, alert.Event{Kind: alert.KindStarted, Message: "monitoring started"})

			gwErr := make(chan error, 1)
			go func() {
				gwErr <- srv.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				log.Info().Msg("shutdown signal received")
				notifier.Send(context.Background(), alert.Event{Kind: alert.KindStopped, Message: "monitoring stopped"})
				return nil
			case err := <-engine.Fatal():
				log.Error().Err(err).Msg("monitoring lost, exiting")
				notifier.Send(context.Background(), alert.ForError(err))
				return err
			case err := <-gwErr:
				if err != nil {
					return fmt.Errorf("gateway: %w", err)
				}
				return nil
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan)")

	return cmd
}
