// Package types contains shared types used across packages
package types

// Room is a chat room the bot is present in, or a trip channel it created
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"` // slugified name, stable across renames of display text
}

// User is the sender of an invocation
type User struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// TripRoomPrefix is prepended to every trip channel name
const TripRoomPrefix = "askTrip-"

// TripRoomName returns the directory name of the trip channel called name
func TripRoomName(name string) string {
	return TripRoomPrefix + name
}

// Message is an outgoing message from the bot to a room
type Message struct {
	Room     Room
	Sender   User   // user the message answers, for platforms that show it only to them
	ThreadID string // optional thread to post in
	Text     string
}
