// Package run drives one full power-control pass and the daemon-mode trigger
// loop around it.
//
// One pass: enumerate regions, classify every instance, filter the stop set
// through the notification throttle, mail owners, mail the admin report, then
// issue the stop calls (unless dry-run). No step is fatal: a failed region,
// recipient or persistence write is logged and the rest of the pass proceeds.
package run

import (
	"context"
	"fmt"
	"sync"
	"time"

	"powerctl/internal/config"
	"powerctl/internal/fleet"
	"powerctl/internal/metrics"
	"powerctl/internal/notify"
	"powerctl/internal/policy"
	"powerctl/internal/report"
	"powerctl/internal/throttle"
	logx "powerctl/pkg/logx"
)

const (
	ownerSubject = "Automatically stopping your environments"
	adminSubject = "Power control run report"
)

// Options is the reloadable snapshot of everything one pass needs.
type Options struct {
	Regions         []string
	ProtectedOwners []string
	DefaultTimezone string
	WaitHours       int
	DryRun          bool

	EmailFrom  string
	AdminEmail string

	CronSpec string
}

// OptionsFromConfig extracts the run options from a normalized config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Regions:         cfg.Cloud.Regions,
		ProtectedOwners: cfg.Policy.ProtectedOwners,
		DefaultTimezone: cfg.Policy.DefaultTimezone,
		WaitHours:       cfg.WaitHours(),
		DryRun:          cfg.DryRun(),
		EmailFrom:       cfg.Notify.Email.From,
		AdminEmail:      cfg.Notify.Email.AdminEmail,
		CronSpec:        cfg.Run.Cron,
	}
}

// Summary reports what one pass did, for logging and tests.
type Summary struct {
	Evaluated  int
	ToStop     int
	Notified   int
	Suppressed int

	NotifiedOwners []string
	ProblemOwners  []string

	RegionsFailed int
}

type Runner struct {
	log      logx.Logger
	provider fleet.Provider
	tracker  *throttle.Tracker
	mailer   notify.Sender

	telegram *notify.Telegram // optional
	metrics  *metrics.Metrics // optional

	mu   sync.Mutex
	opts Options

	clock func() time.Time
}

func New(opts Options, provider fleet.Provider, tracker *throttle.Tracker, mailer notify.Sender, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{
		log:      log,
		provider: provider,
		tracker:  tracker,
		mailer:   mailer,
		opts:     opts,
		clock:    time.Now,
	}
}

func (r *Runner) SetTelegram(t *notify.Telegram) { r.telegram = t }
func (r *Runner) SetMetrics(m *metrics.Metrics)  { r.metrics = m }

// Apply swaps the run options; the next pass picks them up.
func (r *Runner) Apply(opts Options) {
	r.mu.Lock()
	r.opts = opts
	r.mu.Unlock()
}

func (r *Runner) options() Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts
}

// RunOnce executes one full pass. The returned error is non-nil only for
// context cancellation; every domain failure is handled inside.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	start := time.Now()
	opts := r.options()
	now := r.clock().UTC()

	defaultZone := time.UTC
	if opts.DefaultTimezone != "" {
		z, err := time.LoadLocation(opts.DefaultTimezone)
		if err != nil {
			// Config validation should have caught this; degrade to UTC.
			r.log.Warn("default timezone unresolvable; using UTC",
				logx.String("tz", opts.DefaultTimezone), logx.Err(err))
		} else {
			defaultZone = z
		}
	}
	popts := policy.NewOptions(opts.ProtectedOwners, defaultZone)

	var sum Summary
	results := map[policy.Reason][]fleet.Instance{}
	for _, region := range opts.Regions {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		r.log.Info("checking region", logx.String("region", region))
		instances, err := r.provider.ListInstances(ctx, region)
		if err != nil {
			r.log.Error("region enumeration failed; skipping",
				logx.String("region", region), logx.Err(err))
			r.metrics.RegionFailed()
			sum.RegionsFailed++
			continue
		}
		for _, inst := range instances {
			reason := policy.Evaluate(inst, now, popts)
			r.logDecision(inst, reason)
			r.metrics.Classified(reason.String())
			results[reason] = append(results[reason], inst)
			sum.Evaluated++
		}
	}

	// Day mismatches first, then time mismatches; the throttle and the
	// reports see a deterministic candidate order.
	toStop := make([]fleet.Instance, 0,
		len(results[policy.DayMismatch])+len(results[policy.TimeMismatch]))
	toStop = append(toStop, results[policy.DayMismatch]...)
	toStop = append(toStop, results[policy.TimeMismatch]...)
	sum.ToStop = len(toStop)

	wait := time.Duration(opts.WaitHours) * time.Hour
	toNotify := r.tracker.Filter(ctx, toStop, now, wait)
	sum.Notified = len(toNotify)
	sum.Suppressed = len(toStop) - len(toNotify)
	r.metrics.Notified(len(toNotify))
	r.metrics.Suppressed(sum.Suppressed)

	sum.NotifiedOwners, sum.ProblemOwners = r.notifyOwners(ctx, toNotify, opts)

	r.sendAdminReport(ctx, now.In(defaultZone), results, toStop, sum, opts)

	if len(toStop) > 0 {
		if opts.DryRun {
			r.log.Warn("dry run: not stopping instances", logx.Int("count", len(toStop)))
		} else {
			r.stopInstances(ctx, toStop)
		}
	}

	r.metrics.RunDone(time.Since(start))
	r.log.Info("run complete",
		logx.Int("evaluated", sum.Evaluated),
		logx.Int("to_stop", sum.ToStop),
		logx.Int("notified", sum.Notified),
		logx.Int("suppressed", sum.Suppressed),
		logx.Int("regions_failed", sum.RegionsFailed),
		logx.Duration("took", time.Since(start)),
	)
	return sum, nil
}

func (r *Runner) logDecision(inst fleet.Instance, reason policy.Reason) {
	fields := []logx.Field{
		logx.String("instance", inst.ID),
		logx.String("reason", reason.String()),
	}
	switch reason {
	case policy.DayMismatch, policy.TimeMismatch:
		fields = append(fields,
			logx.String("schedule", inst.Schedule),
			logx.String("tz", inst.ScheduleTZ),
		)
		r.log.Warn("stop", fields...)
	case policy.Malformed:
		r.log.Info("skip", append(fields, logx.String("schedule", inst.Schedule))...)
	case policy.InvalidZone:
		r.log.Warn("skip", append(fields, logx.String("tz", inst.ScheduleTZ))...)
	default:
		r.log.Info("skip", fields...)
	}
}

func (r *Runner) notifyOwners(ctx context.Context, toNotify []fleet.Instance, opts Options) (notified, problem []string) {
	for _, g := range report.GroupByOwner(toNotify) {
		body, err := report.RenderOwnerNotification(report.OwnerNotification{
			Owner:     g.Key,
			Instances: g.Instances,
			DryRun:    opts.DryRun,
		})
		if err != nil {
			r.log.Error("owner notification render failed", logx.String("owner", g.Key), logx.Err(err))
			problem = append(problem, g.Key)
			continue
		}
		err = r.mailer.Send(ctx, notify.Message{
			From:    opts.EmailFrom,
			To:      g.Key,
			Subject: ownerSubject,
			Body:    body,
		})
		if err != nil {
			r.log.Error("owner notification failed", logx.String("owner", g.Key), logx.Err(err))
			problem = append(problem, g.Key)
			continue
		}
		notified = append(notified, g.Key)
	}
	return notified, problem
}

func (r *Runner) sendAdminReport(ctx context.Context, local time.Time, results map[policy.Reason][]fleet.Instance, toStop []fleet.Instance, sum Summary, opts Options) {
	wd := int(local.Weekday())
	if wd == 0 {
		wd = 7
	}
	runTime := fmt.Sprintf("%s (%d) %02d:%02d", local.Weekday(), wd, local.Hour(), local.Minute())

	if sum.Notified > 0 && opts.AdminEmail != "" {
		body, err := report.RenderRunReport(report.RunReport{
			RunTime:        runTime,
			ToStop:         toStop,
			Allowed:        results[policy.Allowed],
			Malformed:      results[policy.Malformed],
			InvalidZone:    results[policy.InvalidZone],
			NoOwner:        results[policy.NoOwner],
			NotRunning:     results[policy.NotRunning],
			Protected:      results[policy.ProtectedOwner],
			NotifiedOwners: sum.NotifiedOwners,
			ProblemOwners:  sum.ProblemOwners,
			DryRun:         opts.DryRun,
		})
		if err != nil {
			r.log.Error("run report render failed", logx.Err(err))
		} else {
			err := r.mailer.Send(ctx, notify.Message{
				From:    opts.EmailFrom,
				To:      opts.AdminEmail,
				Subject: adminSubject,
				Body:    body,
			})
			if err != nil {
				r.log.Error("run report mail failed", logx.Err(err))
			}
		}
	}

	if r.telegram != nil && sum.ToStop > 0 {
		text := fmt.Sprintf("powerctl %s: %d to stop, %d notified, %d suppressed (dry_run=%v)",
			runTime, sum.ToStop, sum.Notified, sum.Suppressed, opts.DryRun)
		if err := r.telegram.SendSummary(ctx, text); err != nil {
			r.log.Error("telegram summary failed", logx.Err(err))
		}
	}
}

func (r *Runner) stopInstances(ctx context.Context, toStop []fleet.Instance) {
	for _, g := range report.GroupByRegion(toStop) {
		ids := make([]string, 0, len(g.Instances))
		for _, inst := range g.Instances {
			ids = append(ids, inst.ID)
		}
		if err := r.provider.StopInstances(ctx, g.Key, ids); err != nil {
			// Per-id failures are already logged by the provider; other
			// regions proceed.
			r.log.Error("stop calls failed", logx.String("region", g.Key), logx.Err(err))
			continue
		}
		r.metrics.Stopped(len(ids))
	}
}
