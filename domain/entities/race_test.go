package entities

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishTime(v float64) *float64 {
	return &v
}

func TestRaceStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from RaceStatus
		to   RaceStatus
		want bool
	}{
		{"upcoming to betting_open", RaceStatusUpcoming, RaceStatusBettingOpen, true},
		{"betting_open to racing", RaceStatusBettingOpen, RaceStatusRacing, true},
		{"racing to finished", RaceStatusRacing, RaceStatusFinished, true},
		{"betting_open to finished", RaceStatusBettingOpen, RaceStatusFinished, true},
		{"racing back to betting_open", RaceStatusRacing, RaceStatusBettingOpen, false},
		{"finished to finished", RaceStatusFinished, RaceStatusFinished, false},
		{"unknown target", RaceStatusBettingOpen, RaceStatus("cancelled"), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			race := &Race{Status: tt.from}
			assert.Equal(t, tt.want, race.CanTransitionTo(tt.to))
		})
	}
}

func TestNewRaceID(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_000_123)
	id, err := NewRaceID(now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "race_1700000000123_"), id)
}

func TestRace_IsStale(t *testing.T) {
	t.Parallel()

	closesAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status RaceStatus
		now    time.Time
		want   bool
	}{
		{"within threshold", RaceStatusBettingOpen, closesAt.Add(30 * time.Minute), false},
		{"past threshold", RaceStatusBettingOpen, closesAt.Add(61 * time.Minute), true},
		{"racing past threshold", RaceStatusRacing, closesAt.Add(2 * time.Hour), true},
		{"finished is never stale", RaceStatusFinished, closesAt.Add(24 * time.Hour), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			race := &Race{Status: tt.status, BettingClosesAt: closesAt}
			assert.Equal(t, tt.want, race.IsStale(tt.now, time.Hour))
		})
	}
}

func TestRace_TimeUntilClose(t *testing.T) {
	t.Parallel()

	closesAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	race := &Race{BettingClosesAt: closesAt}

	assert.Equal(t, 5*time.Minute, race.TimeUntilClose(closesAt.Add(-5*time.Minute)))
	assert.Equal(t, time.Duration(0), race.TimeUntilClose(closesAt.Add(time.Minute)))
}

func TestRace_AssignPositions(t *testing.T) {
	t.Parallel()

	t.Run("full roster gets positions 1..N without gaps", func(t *testing.T) {
		t.Parallel()

		race := &Race{Horses: DefaultRoster()}
		for i := range race.Horses {
			race.Horses[i].FinishTime = finishTime(90 - float64(i))
		}

		require.NoError(t, race.AssignPositions())

		seen := make(map[int]bool)
		for _, h := range race.Horses {
			require.True(t, h.HasPosition())
			assert.False(t, seen[*h.Position], "duplicate position %d", *h.Position)
			seen[*h.Position] = true
		}
		for position := 1; position <= len(race.Horses); position++ {
			assert.True(t, seen[position], "missing position %d", position)
		}

		// Slowest time was assigned to horse 1
		horse, ok := race.HorseByID(16)
		require.True(t, ok)
		assert.Equal(t, 1, *horse.Position)
	})

	t.Run("ties broken by horse id", func(t *testing.T) {
		t.Parallel()

		race := &Race{Horses: []Horse{
			{ID: 3, Name: "C", FinishTime: finishTime(61.5)},
			{ID: 1, Name: "A", FinishTime: finishTime(61.5)},
			{ID: 2, Name: "B", FinishTime: finishTime(60.0)},
		}}

		require.NoError(t, race.AssignPositions())

		order := race.FinishingOrder()
		require.Len(t, order, 3)
		assert.Equal(t, 2, order[0].ID)
		assert.Equal(t, 1, order[1].ID)
		assert.Equal(t, 3, order[2].ID)
	})

	t.Run("missing finish time", func(t *testing.T) {
		t.Parallel()

		race := &Race{Horses: []Horse{{ID: 1, Name: "A"}}}
		assert.Error(t, race.AssignPositions())
	})
}

func TestRace_Finish(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("sets winner from first position", func(t *testing.T) {
		t.Parallel()

		race := &Race{
			Status: RaceStatusRacing,
			Horses: []Horse{
				{ID: 1, Name: "Thunder Bolt", FinishTime: finishTime(70)},
				{ID: 2, Name: "Magic Mane", FinishTime: finishTime(65)},
			},
		}
		require.NoError(t, race.AssignPositions())
		require.NoError(t, race.Finish(now))

		assert.Equal(t, RaceStatusFinished, race.Status)
		require.NotNil(t, race.WinnerHorseID)
		assert.Equal(t, 2, *race.WinnerHorseID)
		assert.Equal(t, "Magic Mane", *race.WinnerHorseName)
		require.NotNil(t, race.EndTime)
		assert.Equal(t, now, *race.EndTime)
	})

	t.Run("no positions leaves winner unset", func(t *testing.T) {
		t.Parallel()

		race := &Race{Status: RaceStatusRacing, Horses: DefaultRoster()}
		require.NoError(t, race.Finish(now))
		assert.Nil(t, race.WinnerHorseID)
	})

	t.Run("already finished", func(t *testing.T) {
		t.Parallel()

		race := &Race{Status: RaceStatusFinished}
		assert.Error(t, race.Finish(now))
	})
}

func TestDefaultRoster_ReturnsCopy(t *testing.T) {
	t.Parallel()

	roster := DefaultRoster()
	require.Len(t, roster, 16)

	roster[0].Name = "Changed"
	assert.Equal(t, "Thunder Bolt", DefaultRoster()[0].Name)
	assert.Equal(t, "⚡ Thunder Bolt", DefaultRoster()[0].Label())
}
