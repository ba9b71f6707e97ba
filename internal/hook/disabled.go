// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package hook

import (
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// globMeta lists the characters that turn a disabled entry into a pattern.
const globMeta = "*?[{"

// DisabledSet is the administratively disabled list of hook names. It is
// built once at startup and never mutated; lookups are case-insensitive.
//
// Entries containing glob metacharacters are matched as patterns, so
// "*protocollib*" disables every name containing that word.
type DisabledSet struct {
	configured []string
	exact      map[string]struct{}
	patterns   []glob.Glob
}

// NewDisabledSet builds the set from configured entries. Entries keep their
// configured order and case for listing.
func NewDisabledSet(entries []string) (*DisabledSet, error) {
	d := &DisabledSet{
		configured: slices.Clone(entries),
		exact:      make(map[string]struct{}, len(entries)),
	}

	for i, entry := range entries {
		name := normalize(entry)
		if name == "" {
			return nil, oops.
				Code("DISABLED_PATTERN_INVALID").
				With("index", i).
				Errorf("disabled hook entry %d is empty", i)
		}

		if !strings.ContainsAny(name, globMeta) {
			d.exact[name] = struct{}{}
			continue
		}

		g, err := glob.Compile(name)
		if err != nil {
			return nil, oops.
				Code("DISABLED_PATTERN_INVALID").
				With("index", i).
				With("pattern", entry).
				Wrap(err)
		}
		d.patterns = append(d.patterns, g)
	}

	return d, nil
}

// Contains reports whether name is disabled.
func (d *DisabledSet) Contains(name string) bool {
	if d == nil {
		return false
	}
	name = normalize(name)
	if _, ok := d.exact[name]; ok {
		return true
	}
	for _, g := range d.patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// List returns the entries as configured.
func (d *DisabledSet) List() []string {
	if d == nil {
		return []string{}
	}
	return append([]string{}, d.configured...)
}

// Len returns the number of configured entries.
func (d *DisabledSet) Len() int {
	if d == nil {
		return 0
	}
	return len(d.configured)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
