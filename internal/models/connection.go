package models

// ConnectionState drives presentation only.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connected
	Reconnecting
)

func (c ConnectionState) String() string {
	switch c {
	case Connected:
		return "Connected"
	case Reconnecting:
		return "Reconnecting"
	}
	return "Disconnected"
}
