package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/keithneurodog/az-dcm-poc-sub000/internal/logger"
)

//go:embed fixtures/catalog.yaml
var defaultFixture []byte

// ParseYAML decodes a catalog snapshot from YAML.
func ParseYAML(blob []byte) (Snapshot, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(blob, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode catalog yaml: %w", err)
	}
	return snap, nil
}

// LoadYAMLFile reads a catalog snapshot from disk.
func LoadYAMLFile(path string) (Snapshot, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read catalog fixture: %w", err)
	}
	return ParseYAML(blob)
}

// DefaultSnapshot returns the built-in fixture catalog.
func DefaultSnapshot() Snapshot {
	snap, err := ParseYAML(defaultFixture)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog fixture is invalid: %v", err))
	}
	return snap
}

// NewDefault builds a memory catalog from the built-in fixture.
func NewDefault(log *logger.Logger) *Memory {
	return NewMemory(DefaultSnapshot(), log)
}

// Open picks the catalog source: the SQLite database at dbPath when set,
// otherwise the YAML fixture at fixturePath, otherwise the built-in fixture.
// The returned close func releases the database and is never nil.
func Open(dbPath, fixturePath string, log *logger.Logger) (Reader, func() error, error) {
	noop := func() error { return nil }
	switch {
	case dbPath != "":
		c, err := NewSQLiteCatalog(dbPath, log)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	case fixturePath != "":
		snap, err := LoadYAMLFile(fixturePath)
		if err != nil {
			return nil, noop, err
		}
		return NewMemory(snap, log), noop, nil
	default:
		return NewDefault(log), noop, nil
	}
}
