package toml

import "fmt"

const currentSchemaVersion = 1

type manifestSchema struct {
	Version   int           `toml:"version"`
	Name      string        `toml:"name"`
	SessionID string        `toml:"session_id"`
	Document  string        `toml:"document"`
	CreatedAt string        `toml:"created_at"`
	Scenes    []sceneSchema `toml:"scenes"`
}

func (s *manifestSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s manifestSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported scene manifest schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sceneSchema struct {
	Index   int    `toml:"index"`
	Page    int    `toml:"page"`
	File    string `toml:"file"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Quality int    `toml:"quality"`
	Hash    string `toml:"hash"`
}
