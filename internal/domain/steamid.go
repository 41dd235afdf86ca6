package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SteamID is a 64-bit platform user identifier.
type SteamID uint64

func ParseSteamID(raw string) (SteamID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("steam id is empty")
	}

	value, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse steam id %q: %w", raw, err)
	}
	if value == 0 {
		return 0, fmt.Errorf("steam id %q is zero", raw)
	}

	return SteamID(value), nil
}

func (id SteamID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// AccountID is the low 32 bits of the identifier.
func (id SteamID) AccountID() uint32 {
	return uint32(id)
}
