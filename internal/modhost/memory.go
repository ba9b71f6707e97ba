// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package modhost

import (
	"strings"
	"sync"

	"github.com/Foxius/wither-pass/internal/hook"
)

// Memory is an in-memory hook.ModuleHost. It is safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	modules     map[string]hook.ModuleStatus
	lookups     map[string]int
	hostEnabled bool
}

// NewMemory creates an empty host.
func NewMemory() *Memory {
	return &Memory{
		modules: make(map[string]hook.ModuleStatus),
		lookups: make(map[string]int),
	}
}

// Put installs or replaces a module. Present is forced to true.
func (m *Memory) Put(name string, status hook.ModuleStatus) {
	status.Present = true
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[strings.ToLower(name)] = status
}

// Remove unloads a module.
func (m *Memory) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.modules, strings.ToLower(name))
}

// SetHostEnabled flips the host-readiness signal.
func (m *Memory) SetHostEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hostEnabled = enabled
}

// Lookup implements hook.ModuleHost.
func (m *Memory) Lookup(name string) hook.ModuleStatus {
	key := strings.ToLower(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups[key]++
	return m.modules[key]
}

// HostEnabled implements hook.ModuleHost.
func (m *Memory) HostEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hostEnabled
}

// Lookups returns how many times name was looked up.
func (m *Memory) Lookups(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookups[strings.ToLower(name)]
}
