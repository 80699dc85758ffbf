package live

import "github.com/retroblast-engine/tsxset"

// EventType names a change published to clients.
type EventType string

const (
	EventTilesetUpdated EventType = "tileset_updated"
	EventTilesetInvalid EventType = "tileset_invalid"
	EventTilesetRemoved EventType = "tileset_removed"
)

// Event is the JSON message sent to websocket clients.
type Event struct {
	Type     EventType        `json:"type"`
	Name     string           `json:"name"`
	Path     string           `json:"path"`
	Checksum string           `json:"checksum,omitempty"`
	Tiles    int              `json:"tiles,omitempty"`
	Problems []tsxset.Problem `json:"problems,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Broadcaster delivers events to every interested party.
type Broadcaster interface {
	Broadcast(ev Event)
}
