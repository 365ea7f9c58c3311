package models

// Game is an entry of the game catalog offered to clients.
type Game struct {
	Slug string `json:"slug" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// DefaultGames seeds an empty catalog.
var DefaultGames = []string{"Chess", "Ping Pong", "Pool", "Foosball", "Street Fighter", "Mario Kart"}
