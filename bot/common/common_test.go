package common

import (
	"errors"
	"fmt"
	"testing"

	"pixelponies/domain/entities"
	"pixelponies/domain/interfaces"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandMessage(text string, chatType string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 42,
		Text:      text,
		From:      &tgbotapi.User{ID: 7, UserName: "rider", FirstName: "Rita"},
		Chat:      &tgbotapi.Chat{ID: -100, Type: chatType},
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(firstWord(text))}},
	}
}

func firstWord(text string) string {
	for i, r := range text {
		if r == ' ' {
			return text[:i]
		}
	}
	return text
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	t.Run("group command with arguments", func(t *testing.T) {
		t.Parallel()
		cmd, ok := ParseCommand(commandMessage("/Horse  7 extra", "supergroup"))
		require.True(t, ok)

		assert.Equal(t, "horse", cmd.Name)
		assert.Equal(t, []string{"7", "extra"}, cmd.Args)
		assert.Equal(t, "7", cmd.Arg(0))
		assert.Equal(t, "", cmd.Arg(5))
		assert.Equal(t, int64(7), cmd.UserID)
		assert.Equal(t, int64(-100), cmd.ChatID)
		assert.Equal(t, 42, cmd.MessageID)
		assert.False(t, cmd.IsPrivate)
	})

	t.Run("private command", func(t *testing.T) {
		t.Parallel()
		cmd, ok := ParseCommand(commandMessage("/start", "private"))
		require.True(t, ok)
		assert.True(t, cmd.IsPrivate)
		assert.Empty(t, cmd.Args)
	})

	t.Run("plain text", func(t *testing.T) {
		t.Parallel()
		msg := commandMessage("hello there", "private")
		msg.Entities = nil
		_, ok := ParseCommand(msg)
		assert.False(t, ok)
	})

	t.Run("nil message", func(t *testing.T) {
		t.Parallel()
		_, ok := ParseCommand(nil)
		assert.False(t, ok)
	})
}

func TestFromError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantUser  bool
		wantInMsg string
	}{
		{"betting closed", interfaces.ErrBettingClosed, true, "Betting is closed"},
		{"wrapped unknown horse", fmt.Errorf("place bet: %w", interfaces.ErrUnknownHorse), true, "not in this race"},
		{"first pick stands", interfaces.ErrSelectionExists, true, "first pick stands"},
		{"bad airdrop amount", interfaces.ErrInvalidAmount, true, "positive whole number"},
		{"database failure", errors.New("connection refused"), false, "Something went wrong"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			botErr := FromError(tt.err, "handling command")

			assert.Equal(t, tt.wantUser, botErr.IsUserError())
			assert.Contains(t, botErr.UserMessage, tt.wantInMsg)
			assert.ErrorIs(t, botErr, tt.err)
			assert.Contains(t, botErr.Error(), "handling command")
		})
	}
}

func TestFromError_KeepsBotError(t *testing.T) {
	t.Parallel()

	original := NewUserError("nope", "rejected")
	wrapped := fmt.Errorf("outer: %w", original)

	assert.Same(t, original, FromError(wrapped, "ignored"))
	assert.True(t, original.IsUserError())
	assert.Equal(t, "rejected", original.Error())
}

func TestFormatHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2.50M $PONY", FormatTokens(2_500_000, "PONY"))
	assert.Equal(t, "0x1234…cdef", ShortHash("0x1234567890abcdef"))
	assert.Equal(t, "0x12", ShortHash("0x12"))
	assert.Equal(t, "", TxLink(""))
	assert.Contains(t, TxLink("0xabcdef0123456789"), "https://basescan.org/tx/0xabcdef0123456789")
	assert.Equal(t, "🥈", MedalFor(2))
	assert.Equal(t, "#4", MedalFor(4))
	assert.Equal(t, "&lt;b&gt;", Escape("<b>"))
	assert.Contains(t, RaceTweetTemplate(7), "horse #7")
}

func TestFormatResults(t *testing.T) {
	t.Parallel()

	pos := func(p int) *int { return &p }
	finish := 12.5
	results := []entities.Horse{
		{ID: 3, Name: "Lightning Storm", Emoji: "🌩️", Position: pos(1), FinishTime: &finish},
		{ID: 1, Name: "Thunder Bolt", Emoji: "⚡", Position: pos(2)},
		{ID: 2, Name: "Magic Mane", Emoji: "🦄", Position: pos(3)},
		{ID: 4, Name: "Speed Demon", Emoji: "💨", Position: pos(4)},
	}

	text := FormatResults("race_1", results)

	assert.Contains(t, text, "🥇 🌩️ Lightning Storm (12.50s)")
	assert.Contains(t, text, "🥉 🦄 Magic Mane")
	assert.NotContains(t, text, "Speed Demon")
}

func TestFormatCommentary(t *testing.T) {
	t.Parallel()

	text := FormatCommentary("🔥 They're entering the final stretch!", []entities.Horse{
		{ID: 8, Name: "Golden Arrow", Emoji: "🏹"},
		{ID: 2, Name: "Magic Mane", Emoji: "🦄"},
	})

	assert.Equal(t, "🔥 They're entering the final stretch!\n1. 🏹 Golden Arrow\n2. 🦄 Magic Mane", text)
}

func TestFormatSettlement(t *testing.T) {
	t.Parallel()

	t.Run("no winners", func(t *testing.T) {
		t.Parallel()
		text := FormatSettlement(&entities.SettlementReport{RaceID: "race_1", PrizePool: 700, NoWinners: true}, "PONY")
		assert.Contains(t, text, "No one backed a podium horse")
		assert.Contains(t, text, "700 $PONY")
	})

	t.Run("mixed outcomes", func(t *testing.T) {
		t.Parallel()
		report := &entities.SettlementReport{
			RaceID:    "race_2",
			PrizePool: 1000,
			Buckets: []entities.PayoutBucket{
				{Position: 1, HorseName: "Thunder Bolt", Share: 850, Members: 2, PerMember: 425},
				{Position: 2, HorseName: "Magic Mane", Share: 125},
			},
			Payouts: []entities.PayoutResult{
				{UserID: 1, Username: "alice", Amount: 425, TxRef: "0xaaaaaaaaaaaaaaaa", Success: true},
				{UserID: 2, Amount: 0, Error: "rpc down"},
			},
			TotalPaid: 425,
			Unpaid:    575,
		}

		text := FormatSettlement(report, "PONY")

		assert.Contains(t, text, "2 winner(s), 425 $PONY each")
		assert.NotContains(t, text, "Magic Mane")
		assert.Contains(t, text, "✅ @alice 425 $PONY")
		assert.Contains(t, text, "⚠️ user 2 payout pending")
		assert.Contains(t, text, "Unclaimed: 575 $PONY")
		assert.NotContains(t, text, "Awaiting confirmation")
	})

	t.Run("pending transfers are shown apart from unclaimed", func(t *testing.T) {
		t.Parallel()

		report := &entities.SettlementReport{
			RaceID:    "race_3",
			PrizePool: 1000,
			Buckets: []entities.PayoutBucket{
				{Position: 1, HorseName: "Thunder Bolt", Share: 850, Members: 1, PerMember: 850},
			},
			Payouts: []entities.PayoutResult{
				{UserID: 1, Username: "alice", Intended: 850, TxRef: "0xbbbb", Error: "timed out waiting for receipt"},
			},
			PendingAmount: 850,
			Unpaid:        150,
		}

		text := FormatSettlement(report, "PONY")

		assert.Contains(t, text, "Awaiting confirmation: 850 $PONY")
		assert.Contains(t, text, "Unclaimed: 150 $PONY")
	})
}
