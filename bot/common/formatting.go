package common

import (
	"fmt"
	"strings"
	"time"

	"pixelponies/domain/entities"
	"pixelponies/domain/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseMode is used for every message the bot sends
const ParseMode = tgbotapi.ModeHTML

const explorerTxURL = "https://basescan.org/tx/"

var positionMedals = map[int]string{1: "🥇", 2: "🥈", 3: "🥉"}

// Escape makes user-controlled text safe inside an HTML message
func Escape(s string) string {
	return tgbotapi.EscapeText(ParseMode, s)
}

// FormatTokens renders a whole-token amount with the token symbol, e.g. "2.50M $PONY"
func FormatTokens(amount int64, symbol string) string {
	return fmt.Sprintf("%s $%s", utils.FormatPonyAmount(amount), symbol)
}

// TxLink renders a transaction hash as a block explorer link
func TxLink(txRef string) string {
	if txRef == "" {
		return ""
	}
	return fmt.Sprintf(`<a href="%s%s">%s</a>`, explorerTxURL, txRef, ShortHash(txRef))
}

// ShortHash abbreviates a hash or address to 0x1234…abcd
func ShortHash(value string) string {
	if len(value) <= 12 {
		return value
	}
	return value[:6] + "…" + value[len(value)-4:]
}

// MedalFor returns the medal emoji for a podium position
func MedalFor(position int) string {
	if medal, ok := positionMedals[position]; ok {
		return medal
	}
	return fmt.Sprintf("#%d", position)
}

// FormatRaceCard renders the open race with its field of horses
func FormatRaceCard(race *entities.Race, now time.Time, symbol string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🏇 <b>Race %s</b>\n", Escape(race.RaceID))
	fmt.Fprintf(&b, "💰 Prize pool: <b>%s</b>\n", FormatTokens(race.PrizePool, symbol))
	if race.IsBettingOpen() {
		fmt.Fprintf(&b, "⏰ Betting closes in <b>%s</b>\n\n", utils.FormatCountdown(race.TimeUntilClose(now)))
	} else {
		b.WriteString("🏁 Betting is closed, the race is on!\n\n")
	}

	for _, horse := range race.Horses {
		fmt.Fprintf(&b, "<b>%d.</b> %s\n", horse.ID, Escape(horse.Label()))
	}

	b.WriteString("\nPick your horse with /horse &lt;number&gt;")
	return b.String()
}

// FormatCommentary renders one commentary call with the horses in front
func FormatCommentary(call string, leaders []entities.Horse) string {
	var b strings.Builder
	b.WriteString(call)
	for i, horse := range leaders {
		fmt.Fprintf(&b, "\n%d. %s", i+1, Escape(horse.Label()))
	}
	return b.String()
}

// FormatResults renders the podium of a finished race
func FormatResults(raceID string, results []entities.Horse) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🎺 <b>OFFICIAL RESULTS</b> 🎺\nRace %s\n\n", Escape(raceID))
	for _, horse := range results {
		if horse.Position == nil || *horse.Position > 3 {
			continue
		}
		finish := ""
		if horse.FinishTime != nil {
			finish = fmt.Sprintf(" (%.2fs)", *horse.FinishTime)
		}
		fmt.Fprintf(&b, "%s %s%s\n", MedalFor(*horse.Position), Escape(horse.Label()), finish)
	}

	return strings.TrimRight(b.String(), "\n")
}

// FormatSettlement renders the payout summary of a settled race
func FormatSettlement(report *entities.SettlementReport, symbol string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "💸 <b>Payouts for race %s</b>\n", Escape(report.RaceID))
	if report.NoWinners || len(report.Payouts) == 0 {
		fmt.Fprintf(&b, "No one backed a podium horse this time. %s stays in the pot.\n",
			FormatTokens(report.PrizePool, symbol))
		return strings.TrimRight(b.String(), "\n")
	}

	for _, bucket := range report.Buckets {
		if bucket.Members == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s %s: %d winner(s), %s each\n",
			MedalFor(bucket.Position), Escape(bucket.HorseName), bucket.Members, FormatTokens(bucket.PerMember, symbol))
	}

	b.WriteString("\n")
	for _, payout := range report.Payouts {
		name := "user " + fmt.Sprint(payout.UserID)
		if payout.Username != "" {
			name = "@" + payout.Username
		}
		switch {
		case payout.Success:
			fmt.Fprintf(&b, "✅ %s %s %s\n", Escape(name), FormatTokens(payout.Amount, symbol), TxLink(payout.TxRef))
		case payout.Skipped:
			fmt.Fprintf(&b, "⏭️ %s already processed\n", Escape(name))
		default:
			fmt.Fprintf(&b, "⚠️ %s payout pending, an admin will retry it\n", Escape(name))
		}
	}

	fmt.Fprintf(&b, "\nTotal paid: <b>%s</b>", FormatTokens(report.TotalPaid, symbol))
	if report.PendingAmount > 0 {
		fmt.Fprintf(&b, "\nAwaiting confirmation: %s", FormatTokens(report.PendingAmount, symbol))
	}
	if report.Unpaid > 0 {
		fmt.Fprintf(&b, "\nUnclaimed: %s", FormatTokens(report.Unpaid, symbol))
	}
	return b.String()
}

// FormatWinnerNotice is the private message a winner receives
func FormatWinnerNotice(raceID string, payout entities.PayoutResult, symbol string) string {
	return fmt.Sprintf("%s <b>You placed #%d in race %s!</b>\n\n🐎 Your horse finished on the podium.\n💰 Prize: <b>%s</b>\n🔗 Proof: %s",
		MedalFor(payout.Position), payout.Position, Escape(raceID), FormatTokens(payout.Amount, symbol), TxLink(payout.TxRef))
}

// RaceTweetTemplate is the text users post as proof of their bet
func RaceTweetTemplate(horseID int) string {
	return fmt.Sprintf("I just picked horse #%d to win on @PixelPonies 🏇\n\nTG: https://t.me/pixelponies\nWebsite: pxponies.com", horseID)
}
