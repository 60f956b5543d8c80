package models

import "time"

// DefaultGameTime is the round length in seconds given to new players.
const DefaultGameTime = 60

// GameSettings holds per-player preferences and the running score.
type GameSettings struct {
	UserID      string    `db:"user_id" json:"userId"`
	PlayerName  string    `db:"player_name" json:"playerName"`
	GameTime    int       `db:"game_time" json:"gameTime"`
	Wins        int       `db:"wins" json:"wins"`
	Losses      int       `db:"losses" json:"losses"`
	GamesPlayed int       `db:"games_played" json:"gamesPlayed"`
	CreatedOn   time.Time `db:"created_on" json:"-"`
	UpdatedOn   time.Time `db:"updated_on" json:"-"`
}

// GameSettingsUpdate describes a settings change. Won and Lost each count one
// finished game.
type GameSettingsUpdate struct {
	PlayerName *string
	GameTime   *int
	Won        bool
	Lost       bool
}

// Empty reports whether the update would change nothing.
func (u GameSettingsUpdate) Empty() bool {
	return u.PlayerName == nil && u.GameTime == nil && !u.Won && !u.Lost
}

// GameLogEntry is one commentary line appended to a game log file.
type GameLogEntry struct {
	UserID     string
	Game       int
	Commentary string
	At         time.Time
}
