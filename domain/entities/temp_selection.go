package entities

import "time"

// TempSelection is a provisional horse pick waiting for tweet proof
type TempSelection struct {
	UserID    int64     `db:"user_id"`
	RaceID    string    `db:"race_id"`
	HorseID   int       `db:"horse_id"`
	HorseName string    `db:"horse_name"`
	CreatedAt time.Time `db:"created_at"`
}

// IsExpired returns true once the selection is older than ttl
func (t *TempSelection) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(t.CreatedAt) > ttl
}
