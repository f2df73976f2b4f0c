package session

import (
	"strings"

	"github.com/google/uuid"

	"orbsnake/client/internal/state"
)

const maxRoomNameLen = 20

// Config describes one connection target. Zero values are filled by
// normalized().
type Config struct {
	// LobbyURL is the matchmaking endpoint. When empty, ServerURL is dialed
	// directly.
	LobbyURL string
	// ServerURL is the websocket endpoint (ws:// or wss://).
	ServerURL string
	Room      string
	Name      string
	// PlayerID is the stable client identity; a fresh uuid is generated when
	// absent or malformed.
	PlayerID   string
	DeferSpawn bool
	Skin       []state.Color
}

// normalized applies defaults and sanitization.
func (c Config) normalized() Config {
	out := c
	out.Room = SanitizeRoom(out.Room)
	out.Name = strings.TrimSpace(out.Name)
	if _, err := uuid.Parse(out.PlayerID); err != nil {
		out.PlayerID = uuid.NewString()
	}
	return out
}

// SanitizeRoom strips everything outside [A-Za-z0-9-_] and caps the length.
// Room names arrive from URLs and are echoed back into them.
func SanitizeRoom(room string) string {
	var b strings.Builder
	for _, r := range room {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() == maxRoomNameLen {
			break
		}
	}
	return b.String()
}
