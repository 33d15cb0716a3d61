package particles

import "fmt"

// Mode is the active motion regime. Exactly one is active at a time.
type Mode int

const (
	ModeIdle Mode = iota
	ModeMorphing
	ModeExploding
	ModeDispersing
	ModeOrbiting
)

var modeNames = [...]string{
	ModeIdle:       "idle",
	ModeMorphing:   "morphing",
	ModeExploding:  "exploding",
	ModeDispersing: "dispersing",
	ModeOrbiting:   "orbiting",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	return m >= ModeIdle && m <= ModeOrbiting
}

// Shaped reports whether the mode presents a formed shape that should be
// broken up before a new one is formed.
func (m Mode) Shaped() bool {
	return m == ModeMorphing || m == ModeOrbiting || m == ModeExploding
}
