package fogdto

// SessionState is one player's (or the audience's) picture of a game.
type SessionState struct {
	GameID      string     `json:"game_id"`
	Perspective string     `json:"perspective"`
	Board       [][]string `json:"board"`
	Turn        string     `json:"turn"`
	Status      string     `json:"status"`
	Outcome     string     `json:"outcome,omitempty"`
	WhiteName   string     `json:"white_name"`
	BlackName   string     `json:"black_name"`
	Moves       []string   `json:"moves"`
	MoveCount   int        `json:"move_count"`
	HiddenCount int        `json:"hidden_count"`
	BoardImage  []byte     `json:"-"`
}

// GameSummary is the public header of a game, safe to show to anyone.
type GameSummary struct {
	GameID    string `json:"game_id"`
	Status    string `json:"status"`
	Turn      string `json:"turn"`
	WhiteName string `json:"white_name"`
	BlackName string `json:"black_name"`
	Winner    string `json:"winner,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	MoveCount int    `json:"move_count"`
}
