package models

type Author int

const (
	User Author = iota
	Server
)

func (a Author) String() string {
	if a == User {
		return "user"
	}
	return "server"
}

// ChatMessage is one entry of the append-only chat thread.
type ChatMessage struct {
	Author Author
	Text   string
}
