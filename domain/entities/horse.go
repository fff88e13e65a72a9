package entities

import "fmt"

// Horse is a single runner in a race. FinishTime and Position stay nil until the race is simulated.
type Horse struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Emoji      string   `json:"emoji"`
	FinishTime *float64 `json:"finish_time,omitempty"`
	Position   *int     `json:"position,omitempty"`
}

// Label returns the horse name with its emoji, e.g. "⚡ Thunder Bolt"
func (h Horse) Label() string {
	return fmt.Sprintf("%s %s", h.Emoji, h.Name)
}

// HasPosition returns true once the horse has been placed
func (h Horse) HasPosition() bool {
	return h.Position != nil
}

var defaultRoster = []Horse{
	{ID: 1, Name: "Thunder Bolt", Emoji: "⚡"},
	{ID: 2, Name: "Magic Mane", Emoji: "🦄"},
	{ID: 3, Name: "Lightning Storm", Emoji: "🌩️"},
	{ID: 4, Name: "Speed Demon", Emoji: "💨"},
	{ID: 5, Name: "Star Gazer", Emoji: "⭐"},
	{ID: 6, Name: "Flame Runner", Emoji: "🔥"},
	{ID: 7, Name: "Midnight Shadow", Emoji: "🌙"},
	{ID: 8, Name: "Golden Arrow", Emoji: "🏹"},
	{ID: 9, Name: "Storm Chaser", Emoji: "🌪️"},
	{ID: 10, Name: "Wild Spirit", Emoji: "🦅"},
	{ID: 11, Name: "Diamond Dash", Emoji: "💎"},
	{ID: 12, Name: "Phoenix Rising", Emoji: "🔥"},
	{ID: 13, Name: "Ice Breaker", Emoji: "❄️"},
	{ID: 14, Name: "Rocket Rider", Emoji: "🚀"},
	{ID: 15, Name: "Solar Flare", Emoji: "☀️"},
	{ID: 16, Name: "Cosmic Cruiser", Emoji: "🌌"},
}

// DefaultRoster returns a fresh copy of the standard 16 horse roster.
// Callers may mutate the result freely.
func DefaultRoster() []Horse {
	roster := make([]Horse, len(defaultRoster))
	copy(roster, defaultRoster)
	return roster
}
