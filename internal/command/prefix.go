package command

import (
	"strings"
	"sync"
)

// DefaultPrefix triggers commands in guilds without a custom prefix.
const DefaultPrefix = "!"

// Prefixes stores the command prefix of each guild.
type Prefixes interface {
	Get(guildID string) string
	Set(guildID, prefix string) error
}

// MemoryPrefixes keeps prefixes in memory. Changes are lost on restart.
type MemoryPrefixes struct {
	mu       sync.RWMutex
	fallback string
	byGuild  map[string]string
}

func NewMemoryPrefixes(fallback string) *MemoryPrefixes {
	if fallback == "" {
		fallback = DefaultPrefix
	}
	return &MemoryPrefixes{fallback: fallback, byGuild: make(map[string]string)}
}

// Get returns the guild's prefix, or the fallback for unknown guilds and DMs.
func (m *MemoryPrefixes) Get(guildID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.byGuild[guildID]; ok {
		return p
	}
	return m.fallback
}

func (m *MemoryPrefixes) Set(guildID, prefix string) error {
	prefix = strings.TrimSpace(prefix)
	if err := ValidatePrefix(prefix); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byGuild[guildID] = prefix
	return nil
}
