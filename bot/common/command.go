package common

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Command is a parsed Telegram command
type Command struct {
	Name      string
	Args      []string
	ChatID    int64
	MessageID int
	UserID    int64
	Username  string
	FirstName string
	IsPrivate bool
}

// Arg returns the i-th argument, or "" when missing
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// ParseCommand extracts a command from a message. ok is false for plain messages.
func ParseCommand(msg *tgbotapi.Message) (Command, bool) {
	if msg == nil || !msg.IsCommand() || msg.From == nil {
		return Command{}, false
	}

	cmd := Command{
		Name:      strings.ToLower(msg.Command()),
		Args:      strings.Fields(msg.CommandArguments()),
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		UserID:    msg.From.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		IsPrivate: msg.Chat.IsPrivate(),
	}
	return cmd, true
}
