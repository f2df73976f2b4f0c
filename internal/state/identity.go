package state

import "fmt"

// Color is an 8-bit RGB triple. The wire carries colors either as a raw
// triple or as a "#rrggbb" string depending on which generation of the
// protocol produced the message; both land here.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex renders the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHexColor parses "#rrggbb" (case-insensitive). Anything else fails.
func ParseHexColor(s string) (Color, bool) {
	if len(s) != 7 || s[0] != '#' {
		return Color{}, false
	}
	var c Color
	for i, dst := range []*uint8{&c.R, &c.G, &c.B} {
		hi, ok1 := hexNibble(s[1+i*2])
		lo, ok2 := hexNibble(s[2+i*2])
		if !ok1 || !ok2 {
			return Color{}, false
		}
		*dst = hi<<4 | lo
	}
	return c, true
}

func hexNibble(b byte) (uint8, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}

// PlayerMeta is the slow-changing identity record for one player.
type PlayerMeta struct {
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

// IdentityTable maps the compact 16-bit network ids used by hot messages back
// to player uuids and their display metadata. It is owned by one connection
// session, mutated in place by the decoder as PlayerMeta messages arrive, and
// reset wholesale on reconnect.
type IdentityTable struct {
	Meta     map[string]PlayerMeta
	IDByNet  map[uint16]string
	LocalID  string
	LocalNet uint16
}

// NewIdentityTable returns an empty table.
func NewIdentityTable() *IdentityTable {
	return &IdentityTable{
		Meta:    make(map[string]PlayerMeta),
		IDByNet: make(map[uint16]string),
	}
}

// Put records or replaces the identity for a network id.
func (t *IdentityTable) Put(netID uint16, playerID string, meta PlayerMeta) {
	t.IDByNet[netID] = playerID
	t.Meta[playerID] = meta
}

// Resolve returns the uuid and metadata for a network id. Unknown ids yield
// an empty uuid; hot-path decoding tolerates meta arriving late.
func (t *IdentityTable) Resolve(netID uint16) (string, PlayerMeta) {
	id, ok := t.IDByNet[netID]
	if !ok {
		return "", PlayerMeta{}
	}
	return id, t.Meta[id]
}

// Reset drops every entry. Called when the connection is torn down.
func (t *IdentityTable) Reset() {
	t.Meta = make(map[string]PlayerMeta)
	t.IDByNet = make(map[uint16]string)
	t.LocalID = ""
	t.LocalNet = 0
}
