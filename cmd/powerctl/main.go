package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"powerctl/internal/config"
	"powerctl/internal/fleet/openstack"
	"powerctl/internal/metrics"
	"powerctl/internal/notify"
	"powerctl/internal/run"
	"powerctl/internal/throttle"
	logx "powerctl/pkg/logx"
)

func main() {
	var (
		cfgPath string
		once    bool
	)
	flag.StringVar(&cfgPath, "config", "./powerctl.yaml", "path to config file (yaml or json)")
	flag.BoolVar(&once, "once", false, "run a single pass and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := realMain(ctx, cfgPath, once); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func realMain(ctx context.Context, cfgPath string, once bool) error {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return err
	}

	logSvc, log := logx.New(logConfig(cfg))
	defer logSvc.Close()
	mgr.SetLogger(log)

	busy, err := cfg.Tracking.BusyTimeoutDuration()
	if err != nil {
		return err
	}
	store, err := throttle.Open(throttle.Config{
		Driver:      cfg.Tracking.Driver,
		Path:        cfg.Tracking.Path,
		BusyTimeout: busy,
	}, log)
	if err != nil {
		return fmt.Errorf("tracking store: %w", err)
	}
	defer store.Close()
	tracker := throttle.NewTracker(store, log)

	provider, err := openstack.New(ctx, log)
	if err != nil {
		return fmt.Errorf("openstack: %w", err)
	}

	mailer := notify.NewMailer(mailConfig(cfg), log)

	runner := run.New(run.OptionsFromConfig(cfg), provider, tracker, mailer, log)

	if tg := cfg.Notify.Telegram; tg != nil && tg.Enabled {
		t, err := notify.NewTelegram(notify.TelegramConfig{
			Enabled: true,
			Token:   tg.Token,
			ChatID:  tg.ChatID,
		}, log)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		runner.SetTelegram(t)
	}

	if mc := cfg.Metrics; mc != nil && mc.Enabled {
		m := metrics.New()
		runner.SetMetrics(m)
		go func() {
			if err := m.Serve(ctx, mc.Addr, log); err != nil {
				log.Error("metrics server failed", logx.Err(err))
			}
		}()
	}

	if once {
		_, err := runner.RunOnce(ctx)
		return err
	}

	// Hot reload: watch the config file and push fresh options into the
	// logger and the runner.
	go func() {
		if err := mgr.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Error("config watcher stopped", logx.Err(err))
		}
	}()
	updates := mgr.Subscribe(1)
	defer mgr.Unsubscribe(updates)
	go func() {
		for next := range updates {
			logSvc.Apply(logConfig(next))
			runner.Apply(run.OptionsFromConfig(next))
			log.Info("configuration reloaded")
		}
	}()

	if cfg.Immediate() {
		if _, err := runner.RunOnce(ctx); err != nil {
			return err
		}
	}
	return runner.Start(ctx)
}

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mailConfig(cfg *config.Config) notify.MailConfig {
	e := cfg.Notify.Email
	return notify.MailConfig{
		Send:       e.Send,
		Host:       e.SMTPHost,
		Port:       e.SMTPPort,
		Username:   e.Username,
		Password:   e.Password,
		RatePerSec: e.RatePerSec,
	}
}
