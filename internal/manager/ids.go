package manager

import (
	"crypto/rand"
	"encoding/hex"
)

// newID returns a 16-character random hex identifier for games and players.
func newID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("manager: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf[:])
}
