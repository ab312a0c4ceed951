package model

// SessionID identifies one client connection for its lifetime.
// It is assigned by the server and never reused.
type SessionID string

// Profile is the identity a session presents when joining a room
type Profile struct {
	Name     string
	Color    string
	RoomCode RoomCode // Empty until the session joins a room
}

// InRoom returns true if the profile is currently assigned to a room
func (p Profile) InRoom() bool {
	return p.RoomCode != ""
}

// Member is a session's membership record inside a room
type Member struct {
	ID    SessionID
	Name  string
	Color string
}

// Player is the public view of a room member used in player lists
type Player struct {
	ID       SessionID `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	IsDrawer bool      `json:"isDrawer"`
	Score    int       `json:"score"`
}
