package bot

import (
	"context"
	"fmt"
	"time"

	"pixelponies/bot/common"
	"pixelponies/domain/events"
	"pixelponies/domain/utils"
	"pixelponies/infrastructure"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Announcer posts race lifecycle events to the group chat and notifies winners privately
type Announcer struct {
	sender      Sender
	groupChatID int64
	symbol      string
	now         func() time.Time
}

// NewAnnouncer creates an announcer. A zero groupChatID disables group posts.
func NewAnnouncer(sender Sender, groupChatID int64, symbol string) *Announcer {
	return &Announcer{
		sender:      sender,
		groupChatID: groupChatID,
		symbol:      symbol,
		now:         time.Now,
	}
}

// Register subscribes the announcer to the publisher's local events
func (a *Announcer) Register(publisher *infrastructure.NATSEventPublisher) {
	publisher.RegisterLocalHandler(events.EventTypeRaceOpened, a.handleRaceOpened)
	publisher.RegisterLocalHandler(events.EventTypeBettingClosingSoon, a.handleClosingSoon)
	publisher.RegisterLocalHandler(events.EventTypeBettingClosed, a.handleBettingClosed)
	publisher.RegisterLocalHandler(events.EventTypeRaceCommentary, a.handleCommentary)
	publisher.RegisterLocalHandler(events.EventTypeRaceFinished, a.handleRaceFinished)
	publisher.RegisterLocalHandler(events.EventTypePayoutsSettled, a.handlePayoutsSettled)
	publisher.RegisterLocalHandler(events.EventTypeCommunityReminder, a.handleReminder)

	log.WithField("group_chat_id", a.groupChatID).Info("Race announcer registered")
}

func (a *Announcer) handleRaceOpened(_ context.Context, event events.Event) error {
	opened, ok := event.(events.RaceOpenedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for race opened", event)
	}

	text := fmt.Sprintf("🚨 <b>NEW RACE IS OPEN!</b> 🚨\n\n💰 Prize pool: <b>%s</b>\n⏰ Betting closes in %s\n🐎 %d horses in the field\n\nSee the field with /race and pick with /horse &lt;number&gt;",
		common.FormatTokens(opened.PrizePool, a.symbol),
		utils.FormatCountdown(opened.BettingClosesAt.Sub(a.now())),
		len(opened.Horses))

	return a.postToGroup(text)
}

func (a *Announcer) handleClosingSoon(_ context.Context, event events.Event) error {
	closing, ok := event.(events.BettingClosingSoonEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for closing soon", event)
	}

	text := fmt.Sprintf("⏰ <b>Last call!</b> Betting closes in %s.\n%d rider(s) confirmed so far. /race",
		utils.FormatCountdown(closing.BettingClosesAt.Sub(a.now())), closing.Participants)

	return a.postToGroup(text)
}

func (a *Announcer) handleBettingClosed(_ context.Context, event events.Event) error {
	closed, ok := event.(events.BettingClosedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for betting closed", event)
	}

	text := fmt.Sprintf("🏁 <b>Betting is closed!</b> %d rider(s) are in. And they're off! 🏇", closed.Participants)
	return a.postToGroup(text)
}

func (a *Announcer) handleCommentary(_ context.Context, event events.Event) error {
	commentary, ok := event.(events.RaceCommentaryEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for race commentary", event)
	}

	return a.postToGroup(common.FormatCommentary(commentary.Call, commentary.Leaders))
}

func (a *Announcer) handleRaceFinished(_ context.Context, event events.Event) error {
	finished, ok := event.(events.RaceFinishedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for race finished", event)
	}

	return a.postToGroup(common.FormatResults(finished.RaceID, finished.Results))
}

func (a *Announcer) handlePayoutsSettled(_ context.Context, event events.Event) error {
	settled, ok := event.(events.PayoutsSettledEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for payouts settled", event)
	}
	report := settled.Report

	if report.Participants > 0 {
		if err := a.postToGroup(common.FormatSettlement(&report, a.symbol)); err != nil {
			return err
		}
	}

	for _, payout := range report.SuccessfulPayouts() {
		// In a private chat the chat ID equals the user ID
		if err := a.send(payout.UserID, common.FormatWinnerNotice(report.RaceID, payout, a.symbol)); err != nil {
			log.WithFields(log.Fields{
				"user_id": payout.UserID,
				"race_id": report.RaceID,
				"error":   err,
			}).Warn("Failed to notify winner")
		}
	}

	return nil
}

func (a *Announcer) handleReminder(_ context.Context, event events.Event) error {
	reminder, ok := event.(events.CommunityReminderEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for community reminder", event)
	}

	text := reminder.Message
	if reminder.RaceID != "" {
		text += fmt.Sprintf("\n\n💰 Current prize pool: <b>%s</b>. Pick your horse with /race",
			common.FormatTokens(reminder.PrizePool, a.symbol))
	}
	return a.postToGroup(text)
}

func (a *Announcer) postToGroup(text string) error {
	if a.groupChatID == 0 {
		return nil
	}
	return a.send(a.groupChatID, text)
}

func (a *Announcer) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = common.ParseMode
	msg.DisableWebPagePreview = true

	if _, err := a.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}
