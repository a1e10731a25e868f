package run

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	logx "powerctl/pkg/logx"
)

// Start runs the cron-driven daemon loop until ctx is cancelled. A pass that
// overruns its slot causes the next trigger to be skipped, not queued.
func (r *Runner) Start(ctx context.Context) error {
	spec := r.options().CronSpec
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{r.log})))
	_, err := c.AddFunc(spec, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.log.Error("run aborted", logx.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("cron spec %q: %w", spec, err)
	}
	c.Start()
	r.log.Info("daemon started", logx.String("cron", spec))

	sdNotify(r.log, daemon.SdNotifyReady)
	stopWatchdog := startWatchdog(ctx, r.log)

	<-ctx.Done()
	sdNotify(r.log, daemon.SdNotifyStopping)
	stopWatchdog()

	// Wait for an in-flight pass to finish before returning.
	<-c.Stop().Done()
	r.log.Info("daemon stopped")
	return nil
}

func sdNotify(log logx.Logger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
	}
}

// startWatchdog pets the systemd watchdog at half the configured interval.
// Returns a stop func; a no-op when not running under a watchdog.
func startWatchdog(ctx context.Context, log logx.Logger) func() {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				sdNotify(log, daemon.SdNotifyWatchdog)
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// cronLogger adapts Logger to the cron scheduler's logging interface.
type cronLogger struct{ log logx.Logger }

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	fields := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		fields = append(fields, logx.Any(key, kv[i+1]))
	}
	return fields
}
