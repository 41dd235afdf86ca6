package local

import (
	"fmt"
	"slices"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version int         `toml:"version"`
	Apps    []appSchema `toml:"apps"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported stats schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

func (s *fileSchema) app(appID uint32) *appSchema {
	for i := range s.Apps {
		if s.Apps[i].AppID == appID {
			return &s.Apps[i]
		}
	}
	return nil
}

type appSchema struct {
	AppID        uint32       `toml:"app_id"`
	Achievements []string     `toml:"achievements"`
	Users        []userSchema `toml:"users,omitempty"`
}

func (a *appSchema) user(steamID uint64) *userSchema {
	for i := range a.Users {
		if a.Users[i].SteamID == steamID {
			return &a.Users[i]
		}
	}
	return nil
}

func (a appSchema) defines(name string) bool {
	return slices.Contains(a.Achievements, name)
}

type userSchema struct {
	SteamID  uint64   `toml:"steam_id"`
	Unlocked []string `toml:"unlocked"`
}
