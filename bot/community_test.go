package bot

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMemberCounter struct {
	count  int
	err    error
	chatID int64
}

func (f *fakeMemberCounter) GetChatMembersCount(config tgbotapi.ChatMemberCountConfig) (int, error) {
	f.chatID = config.ChatID
	return f.count, f.err
}

func TestGroupCommunitySizer_MemberCount(t *testing.T) {
	t.Parallel()

	t.Run("returns group size", func(t *testing.T) {
		t.Parallel()
		counter := &fakeMemberCounter{count: 1234}
		sizer := &GroupCommunitySizer{api: counter, chatID: groupChatID}

		count, err := sizer.MemberCount(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int64(1234), count)
		assert.Equal(t, groupChatID, counter.chatID)
	})

	t.Run("wraps api errors", func(t *testing.T) {
		t.Parallel()
		sizer := &GroupCommunitySizer{api: &fakeMemberCounter{err: errors.New("forbidden")}, chatID: groupChatID}

		_, err := sizer.MemberCount(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "forbidden")
	})

	t.Run("honours cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sizer := &GroupCommunitySizer{api: &fakeMemberCounter{count: 5}, chatID: groupChatID}

		_, err := sizer.MemberCount(ctx)

		assert.ErrorIs(t, err, context.Canceled)
	})
}
