package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "powerctl/pkg/logx"
)

// TelegramConfig configures the optional operator channel. The run summary is
// pushed to one chat; powerctl never polls for updates.
type TelegramConfig struct {
	Enabled bool
	Token   string
	ChatID  int64
}

type Telegram struct {
	cfg TelegramConfig
	bot *tele.Bot
	log logx.Logger
}

func NewTelegram(cfg TelegramConfig, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is not set")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &Telegram{cfg: cfg, bot: b, log: log}, nil
}

// SendSummary pushes a short plain-text run summary to the operator chat.
func (t *Telegram) SendSummary(ctx context.Context, text string) error {
	if t == nil || t.bot == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(tele.ChatID(t.cfg.ChatID), text)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	case <-time.After(15 * time.Second):
		return errors.New("telegram send timed out")
	}
}
