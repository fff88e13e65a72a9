package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pixelponies/bot/common"
	"pixelponies/infrastructure/observability"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const pollTimeoutSeconds = 60

// Sender delivers messages to Telegram
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Feature is a group of commands handled together
type Feature interface {
	Commands() []string
	HandleCommand(ctx context.Context, cmd common.Command) (string, error)
}

// Bot routes Telegram commands to feature modules
type Bot struct {
	api    *tgbotapi.BotAPI
	sender Sender
	routes map[string]Feature
	wg     sync.WaitGroup
}

// NewBotAPI authenticates against the Telegram Bot API
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram client: %w", err)
	}
	log.WithField("username", api.Self.UserName).Info("Telegram bot authorized")
	return api, nil
}

// New creates a bot that serves the given features
func New(api *tgbotapi.BotAPI, features ...Feature) *Bot {
	b := newBot(api, features...)
	b.api = api
	return b
}

func newBot(sender Sender, features ...Feature) *Bot {
	b := &Bot{
		sender: sender,
		routes: make(map[string]Feature),
	}
	for _, feature := range features {
		for _, name := range feature.Commands() {
			if _, exists := b.routes[name]; exists {
				log.Warnf("Command /%s registered twice, keeping the first handler", name)
				continue
			}
			b.routes[name] = feature
		}
	}
	return b
}

// Start begins long polling. The returned function stops polling and waits for
// in-flight commands.
func (b *Bot) Start(ctx context.Context) func() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("Telegram update loop started")

		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				b.wg.Add(1)
				go func() {
					defer b.wg.Done()
					b.HandleUpdate(ctx, update)
				}()
			}
		}
	}()

	var stopOnce sync.Once
	return func() {
		stopOnce.Do(func() {
			b.api.StopReceivingUpdates()
			<-done
			b.wg.Wait()
			log.Info("Telegram update loop stopped")
		})
	}
}

// HandleUpdate dispatches a single update to the feature owning its command
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	cmd, ok := common.ParseCommand(update.Message)
	if !ok {
		return
	}

	feature, ok := b.routes[cmd.Name]
	if !ok {
		if cmd.IsPrivate {
			b.reply(cmd, "🤔 Unknown command. Try /help")
		}
		return
	}

	observability.GetMetrics().RecordCommand(cmd.Name)

	text, err := feature.HandleCommand(ctx, cmd)
	if err != nil {
		b.handleError(cmd, err)
		return
	}
	if text != "" {
		b.reply(cmd, text)
	}
}

func (b *Bot) handleError(cmd common.Command, err error) {
	var botErr *common.BotError
	if !errors.As(err, &botErr) {
		botErr = common.FromError(err, "unexpected error in bot command")
	}

	fields := log.Fields{
		"user_id": cmd.UserID,
		"chat_id": cmd.ChatID,
		"command": cmd.Name,
		"error":   botErr.Error(),
	}
	if botErr.IsUserError() {
		log.WithFields(fields).Info(botErr.LogMessage)
	} else {
		log.WithFields(fields).Error(botErr.LogMessage)
	}

	b.reply(cmd, botErr.UserMessage)
}

func (b *Bot) reply(cmd common.Command, text string) {
	msg := tgbotapi.NewMessage(cmd.ChatID, text)
	msg.ParseMode = common.ParseMode
	msg.DisableWebPagePreview = true
	if !cmd.IsPrivate {
		msg.ReplyToMessageID = cmd.MessageID
	}

	if _, err := b.sender.Send(msg); err != nil {
		log.WithFields(log.Fields{
			"chat_id": cmd.ChatID,
			"command": cmd.Name,
			"error":   err,
		}).Error("Failed to send reply")
	}
}
