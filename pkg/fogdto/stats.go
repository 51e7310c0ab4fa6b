package fogdto

import "time"

// PlayerStats is a player's running record across finished games.
type PlayerStats struct {
	UserID        string    `json:"user_id"`
	Name          string    `json:"name,omitempty"`
	GamesPlayed   int       `json:"games_played"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	KingCaptures  int       `json:"king_captures"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	LastPlayed    time.Time `json:"last_played"`
}
