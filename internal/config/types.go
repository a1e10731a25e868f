package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the full powerctl configuration, loaded from a JSON or YAML file.
//
// Secrets (SMTP password, Telegram token) should come from the environment:
// SMTP_PASSWORD and TELEGRAM_TOKEN override the file values when set.
// PROTECTED_OWNERS (comma-separated) overrides policy.protected_owners.
type Config struct {
	Cloud    CloudConfig    `json:"cloud"`
	Policy   PolicyConfig   `json:"policy"`
	Tracking TrackingConfig `json:"tracking"`
	Notify   NotifyConfig   `json:"notify"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  *MetricsConfig `json:"metrics,omitempty"`
	Run      RunConfig      `json:"run"`
}

type CloudConfig struct {
	// Provider selects the enumerator implementation. Only "openstack" is
	// built in; credentials come from the OS_* environment.
	Provider string   `json:"provider,omitempty"`
	Regions  []string `json:"regions"`
}

type PolicyConfig struct {
	// ProtectedOwners are never stopped regardless of schedule.
	// Case-insensitive; entries may themselves be comma-separated lists.
	ProtectedOwners []string `json:"protected_owners,omitempty"`

	// DefaultTimezone applies to instances without a RUNNINGSCHEDULE_TZ tag.
	// Default "Etc/UTC".
	DefaultTimezone string `json:"default_timezone,omitempty"`

	// NotificationWaitHours is the minimum gap between two notifications for
	// the same instance. Pointer so an explicit 0 (re-notify every run) is
	// distinguishable from "omitted" (default 12).
	NotificationWaitHours *int `json:"notification_wait_hours,omitempty"`
}

// TrackingConfig controls where the notification throttle state lives.
type TrackingConfig struct {
	Driver      string `json:"driver,omitempty"`       // "file" (default) | "sqlite" | "memory"
	Path        string `json:"path,omitempty"`         // default "./powerctl-tracking.json"
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type NotifyConfig struct {
	Email    EmailConfig     `json:"email"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type EmailConfig struct {
	// Send actually delivers mail; false logs it instead.
	Send       bool   `json:"send"`
	From       string `json:"from,omitempty"`
	AdminEmail string `json:"admin_email,omitempty"`
	SMTPHost   string `json:"smtp_host,omitempty"`
	SMTPPort   int    `json:"smtp_port,omitempty"`
	Username   string `json:"smtp_username,omitempty"`
	Password   string `json:"smtp_password,omitempty"` // prefer SMTP_PASSWORD env
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"` // prefer TELEGRAM_TOKEN env
	ChatID  int64  `json:"chat_id,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:9633"
}

// RunConfig controls trigger behavior.
type RunConfig struct {
	// Immediate runs one pass and exits. Default true; set false to run on
	// the cron trigger as a daemon.
	Immediate *bool `json:"immediate,omitempty"`

	// Cron is the trigger spec in daemon mode. Default "1 * * * *"
	// (one minute past every hour).
	Cron string `json:"cron,omitempty"`

	// DryRun suppresses the stop action. Default true: stopping other
	// people's machines needs an explicit opt-in.
	DryRun *bool `json:"dry_run,omitempty"`
}

const (
	defaultTimezone  = "Etc/UTC"
	defaultWaitHours = 12
	defaultCron      = "1 * * * *"
	defaultTracking  = "./powerctl-tracking.json"
)

// Normalize applies defaults, environment overrides and validation in place.
// It must be called after decoding and before handing the config to services.
func (c *Config) Normalize() error {
	// Cloud
	if strings.TrimSpace(c.Cloud.Provider) == "" {
		c.Cloud.Provider = "openstack"
	}
	regions := c.Cloud.Regions[:0]
	for _, r := range c.Cloud.Regions {
		if r = strings.TrimSpace(r); r != "" {
			regions = append(regions, r)
		}
	}
	c.Cloud.Regions = regions
	if len(c.Cloud.Regions) == 0 {
		return fmt.Errorf("cloud.regions: at least one region is required")
	}

	// Policy
	if env := os.Getenv("PROTECTED_OWNERS"); env != "" {
		c.Policy.ProtectedOwners = []string{env}
	}
	c.Policy.ProtectedOwners = splitOwners(c.Policy.ProtectedOwners)
	if strings.TrimSpace(c.Policy.DefaultTimezone) == "" {
		c.Policy.DefaultTimezone = defaultTimezone
	}
	if _, err := time.LoadLocation(c.Policy.DefaultTimezone); err != nil {
		return fmt.Errorf("policy.default_timezone: %w", err)
	}
	if c.Policy.NotificationWaitHours == nil {
		hours := defaultWaitHours
		c.Policy.NotificationWaitHours = &hours
	}
	if *c.Policy.NotificationWaitHours < 0 {
		return fmt.Errorf("policy.notification_wait_hours: must be >= 0")
	}

	// Tracking
	if strings.TrimSpace(c.Tracking.Driver) == "" {
		c.Tracking.Driver = "file"
	}
	if strings.TrimSpace(c.Tracking.Path) == "" && c.Tracking.Driver != "memory" {
		c.Tracking.Path = defaultTracking
	}
	if _, err := c.Tracking.BusyTimeoutDuration(); err != nil {
		return err
	}

	// Notify
	if env := os.Getenv("SMTP_PASSWORD"); env != "" {
		c.Notify.Email.Password = env
	}
	if c.Notify.Email.Send {
		if strings.TrimSpace(c.Notify.Email.SMTPHost) == "" {
			return fmt.Errorf("notify.email.smtp_host: required when send is enabled")
		}
		if strings.TrimSpace(c.Notify.Email.From) == "" {
			return fmt.Errorf("notify.email.from: required when send is enabled")
		}
	}
	if c.Notify.Telegram != nil {
		if env := os.Getenv("TELEGRAM_TOKEN"); env != "" {
			c.Notify.Telegram.Token = env
		}
		if c.Notify.Telegram.Enabled && strings.TrimSpace(c.Notify.Telegram.Token) == "" {
			return fmt.Errorf("notify.telegram.token: required when enabled")
		}
	}

	// Metrics
	if c.Metrics != nil && c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Addr) == "" {
		c.Metrics.Addr = "127.0.0.1:9633"
	}

	// Run
	if c.Run.Immediate == nil {
		v := true
		c.Run.Immediate = &v
	}
	if c.Run.DryRun == nil {
		v := true
		c.Run.DryRun = &v
	}
	if strings.TrimSpace(c.Run.Cron) == "" {
		c.Run.Cron = defaultCron
	}

	// Logging: default to console INFO when the section is empty.
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "INFO"
	}
	if !c.Logging.Console && !c.Logging.File.Enabled {
		c.Logging.Console = true
	}
	return nil
}

// BusyTimeoutDuration parses tracking.busy_timeout ("" means 0).
func (t TrackingConfig) BusyTimeoutDuration() (time.Duration, error) {
	s := strings.TrimSpace(t.BusyTimeout)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("tracking.busy_timeout: invalid duration %q: %w", t.BusyTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("tracking.busy_timeout: must be >= 0")
	}
	return d, nil
}

// WaitHours returns the normalized notification wait window.
func (c *Config) WaitHours() int {
	if c.Policy.NotificationWaitHours == nil {
		return defaultWaitHours
	}
	return *c.Policy.NotificationWaitHours
}

// Immediate reports the normalized run mode.
func (c *Config) Immediate() bool { return c.Run.Immediate == nil || *c.Run.Immediate }

// DryRun reports the normalized dry-run flag.
func (c *Config) DryRun() bool { return c.Run.DryRun == nil || *c.Run.DryRun }

// splitOwners flattens comma-separated entries, trims, lowercases and drops
// empties.
func splitOwners(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, o := range strings.Split(entry, ",") {
			o = strings.ToLower(strings.TrimSpace(o))
			if o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}
