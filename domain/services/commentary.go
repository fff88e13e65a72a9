package services

import (
	"context"
	"sort"

	"pixelponies/domain/entities"
	"pixelponies/domain/events"
)

// commentaryLeaders is how many horses each commentary call names
const commentaryLeaders = 3

type commentaryStage struct {
	progress float64
	call     string
}

// Checkpoints as a fraction of the race distance
var commentaryStages = []commentaryStage{
	{progress: 0.25, call: "🏁 They're coming around the first turn!"},
	{progress: 0.5, call: "⚡ It's neck and neck down the backstretch!"},
	{progress: 0.8, call: "🔥 They're entering the final stretch!"},
}

var reminderMessages = []string{
	"🏇 <b>Pixel Ponies is LIVE!</b> Register with /register and pick a horse with /race.",
	"🎁 <b>Free to join, real rewards!</b> Every confirmed bet earns a participation reward.",
	"🚀 <b>Non-stop racing!</b> A new race opens every cycle. Get started with /register.",
	"🏁 <b>Pixel Ponies Racing Club!</b> Invite friends with /referral and earn together.",
}

// standingsAt returns the leading horses at a checkpoint. Horses leave the gate in
// roster order and converge on their finishing order as the race progresses.
func standingsAt(race *entities.Race, progress float64) []entities.Horse {
	finishIndex := make(map[int]int, len(race.Horses))
	for i, h := range race.FinishingOrder() {
		finishIndex[h.ID] = i
	}

	type standing struct {
		horse entities.Horse
		score float64
		final int
	}
	standings := make([]standing, 0, len(race.Horses))
	for gate, h := range race.Horses {
		final, ok := finishIndex[h.ID]
		if !ok {
			continue
		}
		standings = append(standings, standing{
			horse: h,
			score: (1-progress)*float64(gate) + progress*float64(final),
			final: final,
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].score != standings[j].score {
			return standings[i].score < standings[j].score
		}
		return standings[i].final < standings[j].final
	})

	leaders := make([]entities.Horse, 0, commentaryLeaders)
	for i := 0; i < len(standings) && i < commentaryLeaders; i++ {
		leaders = append(leaders, standings[i].horse)
	}
	return leaders
}

// publishCommentary calls the running order at each checkpoint of a finished race
func (s *raceService) publishCommentary(race *entities.Race) {
	for i, stage := range commentaryStages {
		s.publish(events.RaceCommentaryEvent{
			RaceID:  race.RaceID,
			Stage:   i + 1,
			Call:    stage.call,
			Leaders: standingsAt(race, stage.progress),
		})
	}
}

// AnnounceReminder publishes a community reminder, rotating the message every hour
func (s *raceService) AnnounceReminder(ctx context.Context) error {
	race, err := s.GetOpenRace(ctx)
	if err != nil {
		return err
	}

	reminder := events.CommunityReminderEvent{
		Message: reminderMessages[s.now().Hour()%len(reminderMessages)],
	}
	if race != nil && race.IsBettingOpen() {
		reminder.RaceID = race.RaceID
		reminder.PrizePool = race.PrizePool
	}

	s.publish(reminder)
	return nil
}
