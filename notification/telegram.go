// Package notification provides implementations for operator notification
// services.
package notification

import (
	"fmt"
	"slices"
	"time"

	"github.com/ktakahiro150397/crypto-spot-collector/core"

	log "github.com/sirupsen/logrus"
	tb "gopkg.in/tucnak/telebot.v2"
)

const pollingTimeout = 10 * time.Second

var _ core.Notifier = (*Telegram)(nil)

// Telegram implements the core.Notifier interface. It pushes messages to
// every authorized user; a /status command is the only inbound surface.
type Telegram struct {
	client *tb.Bot
	users  []int
	status func() string
}

// Option is a function that configures a Telegram instance
type Option func(*Telegram)

// WithStatusProvider wires the /status command to a status callback.
func WithStatusProvider(status func() string) Option {
	return func(t *Telegram) {
		t.status = status
	}
}

// NewTelegram creates and initializes a new Telegram service
func NewTelegram(token string, users []int, options ...Option) (*Telegram, error) {
	poller := &tb.LongPoller{Timeout: pollingTimeout}
	userMiddleware := createAuthMiddleware(poller, users)

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     token,
		Poller:    userMiddleware,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Telegram{
		client: client,
		users:  users,
	}

	for _, option := range options {
		option(bot)
	}

	client.Handle("/status", func(m *tb.Message) {
		if bot.status == nil {
			return
		}
		if _, err := client.Send(m.Sender, bot.status()); err != nil {
			log.WithError(err).Error("failed to answer status command")
		}
	})

	return bot, nil
}

// createAuthMiddleware creates a middleware to validate authorized users
func createAuthMiddleware(poller *tb.LongPoller, users []int) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			log.Error("message or sender is nil ", u)
			return false
		}

		if slices.Contains(users, int(u.Message.Sender.ID)) {
			return true
		}

		log.Error("unauthorized user ", u.Message.Sender.ID)
		return false
	})
}

// Start begins polling for inbound commands.
func (t *Telegram) Start() {
	go t.client.Start()
	log.Info("telegram notifier started")
}

// Notify implements core.Notifier.
func (t *Telegram) Notify(text string) {
	for _, user := range t.users {
		if _, err := t.client.Send(&tb.User{ID: int64(user)}, text); err != nil {
			log.WithError(err).Error("failed to send telegram message")
		}
	}
}

// OnError implements core.Notifier.
func (t *Telegram) OnError(err error) {
	t.Notify(fmt.Sprintf("🚨 *ERROR*\n```%v```", err))
}
