package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type memberCounter interface {
	GetChatMembersCount(config tgbotapi.ChatMemberCountConfig) (int, error)
}

// GroupCommunitySizer sizes the community by the member count of the race group
type GroupCommunitySizer struct {
	api    memberCounter
	chatID int64
}

// NewGroupCommunitySizer creates a community sizer for the group chat
func NewGroupCommunitySizer(api *tgbotapi.BotAPI, chatID int64) *GroupCommunitySizer {
	return &GroupCommunitySizer{api: api, chatID: chatID}
}

// MemberCount returns the number of members in the group
func (s *GroupCommunitySizer) MemberCount(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count, err := s.api.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: s.chatID},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get member count of chat %d: %w", s.chatID, err)
	}

	return int64(count), nil
}
