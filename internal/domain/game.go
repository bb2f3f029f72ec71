package domain

// Game describes one supported board game and how to recognise it.
// Keywords are matched against the lower-cased question, SourceMarker
// against the lower-cased source of a candidate document.
type Game struct {
	ID           string
	Name         string
	Description  string
	Keywords     []string
	SourceMarker string
}

// DefaultGames returns the built-in game table (Monopoly, Ticket to Ride).
func DefaultGames() []Game {
	return []Game{
		{
			ID:          "monopoly",
			Name:        "Monopoly",
			Description: "Classic property trading board game",
			Keywords: []string{
				"monopoly", "property", "boardwalk", "park place", "jail",
				"go to jail", "free parking", "chance", "community chest",
			},
			SourceMarker: "monopoly",
		},
		{
			ID:          "ticket_to_ride",
			Name:        "Ticket to Ride",
			Description: "Train route building game",
			Keywords: []string{
				"ticket to ride", "ticket", "train", "route",
				"destination", "railroad", "tracks",
			},
			SourceMarker: "ticket_to_ride",
		},
	}
}
