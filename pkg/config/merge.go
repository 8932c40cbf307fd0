package config

import (
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// DecodeSystemGlobal decodes a loosely-typed IS-09 system-global JSON
// body (already JSON-unmarshalled into a map) into a SystemGlobal,
// grounded on the pack's mapstructure usage for exactly this kind of
// untyped-registry-payload decoding.
func DecodeSystemGlobal(raw map[string]interface{}) (SystemGlobal, error) {
	var sg SystemGlobal
	if err := mapstructure.Decode(raw, &sg); err != nil {
		return SystemGlobal{}, fmt.Errorf("config: decode system global: %w", err)
	}
	return sg, nil
}

// Store guards a Settings value the way the teacher's Manager guards
// its map[string]interface{}: a single RWMutex, read under RLock,
// written under Lock.
type Store struct {
	mu       sync.RWMutex
	settings Settings
}

// NewStore wraps an already-loaded Settings for concurrent access.
func NewStore(initial Settings) *Store {
	return &Store{settings: initial}
}

// Get returns a copy of the current settings.
func (st *Store) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings
}

// Merge applies an inbound IS-09 system-global resource to the live
// settings (spec section 4.7 "inward side"): a shallow deep-merge
// where the recipient's own already-set scalar values win, and any
// array field present in the update replaces the recipient's
// wholesale.
func (st *Store) Merge(update SystemGlobal) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sys := &st.settings.System
	if sys.HeartbeatIntervalSeconds == 0 {
		sys.HeartbeatIntervalSeconds = update.HeartbeatIntervalSeconds
	}
	if sys.DiscoveryIntervalMinSeconds == 0 {
		sys.DiscoveryIntervalMinSeconds = update.DiscoveryIntervalMinSeconds
	}
	if sys.DiscoveryIntervalMaxSeconds == 0 {
		sys.DiscoveryIntervalMaxSeconds = update.DiscoveryIntervalMaxSeconds
	}
	if sys.BackoffMinSeconds == 0 {
		sys.BackoffMinSeconds = update.BackoffMinSeconds
	}
	if sys.BackoffMaxSeconds == 0 {
		sys.BackoffMaxSeconds = update.BackoffMaxSeconds
	}
	if update.Tags != nil {
		sys.Tags = update.Tags
	}
}
