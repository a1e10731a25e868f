package notify

import (
	"context"
	"fmt"
	"strings"

	mail "github.com/wneessen/go-mail"
	"golang.org/x/time/rate"

	logx "powerctl/pkg/logx"
)

// MailConfig configures the SMTP transport.
type MailConfig struct {
	// Send actually delivers mail. When false the mailer only logs what it
	// would have sent, which is the safe default.
	Send bool

	Host     string
	Port     int // 0 means 465 (implicit TLS)
	Username string
	Password string

	// RatePerSec caps outbound messages so a big fleet cannot trip the
	// relay's abuse limits. <= 0 means 1/s.
	RatePerSec int
}

// Mailer sends HTML mail over SMTP with implicit TLS.
type Mailer struct {
	cfg     MailConfig
	log     logx.Logger
	limiter *rate.Limiter
}

func NewMailer(cfg MailConfig, log logx.Logger) *Mailer {
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	return &Mailer{
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Send {
		m.log.Warn("not sending email",
			logx.String("to", msg.To),
			logx.String("subject", msg.Subject),
			logx.Int("body_bytes", len(msg.Body)),
		)
		return nil
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}

	out := mail.NewMsg()
	if err := out.From(msg.From); err != nil {
		return fmt.Errorf("from %q: %w", msg.From, err)
	}
	if err := out.To(msg.To); err != nil {
		return fmt.Errorf("to %q: %w", msg.To, err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextHTML, msg.Body)

	opts := []mail.Option{mail.WithSSL()}
	if m.cfg.Port > 0 {
		opts = append(opts, mail.WithPort(m.cfg.Port))
	}
	if strings.TrimSpace(m.cfg.Username) != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	m.log.Warn("sending email", logx.String("to", msg.To), logx.String("subject", msg.Subject))
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return fmt.Errorf("send to %q: %w", msg.To, err)
	}
	return nil
}
