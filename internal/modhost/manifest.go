// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

// Package modhost provides module hosts: the collaborators that report
// whether a hook's dependency is loaded, enabled, and at which version.
package modhost

import (
	"regexp"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/Foxius/wither-pass/internal/hook"
)

// ManifestFile is the manifest file name inside each module directory.
const ManifestFile = "module.yaml"

// Manifest describes an installed module.
type Manifest struct {
	Name        string   `yaml:"name" json:"name" jsonschema:"pattern=^[A-Za-z0-9_.-]+$,maxLength=64"`
	Version     string   `yaml:"version" json:"version" jsonschema:"minLength=1"`
	Authors     []string `yaml:"authors,omitempty" json:"authors,omitempty"`
	Enabled     *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// maxNameLength is the maximum allowed length for module names.
const maxNameLength = 64

// namePattern matches the names module loaders accept: letters, digits,
// underscores, dots and hyphens.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ParseManifest validates data against the manifest schema and decodes it.
func ParseManifest(data []byte) (*Manifest, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, oops.Code("MANIFEST_INVALID").Wrap(err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, oops.Code("MANIFEST_INVALID").Wrapf(err, "invalid YAML")
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return oops.
			Code("MANIFEST_INVALID").
			With("name", m.Name).
			Errorf("name %q must contain only letters, digits, '_', '.' and '-'", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return oops.
			Code("MANIFEST_INVALID").
			With("name", m.Name).
			Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}
	if m.Version == "" {
		return oops.
			Code("MANIFEST_INVALID").
			With("name", m.Name).
			Errorf("version is required")
	}
	return nil
}

// IsEnabled reports whether the module is enabled. Modules are enabled
// unless the manifest says otherwise.
func (m *Manifest) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// Status converts the manifest into the state reported to the scheduler.
func (m *Manifest) Status() hook.ModuleStatus {
	return hook.ModuleStatus{
		Present: true,
		Enabled: m.IsEnabled(),
		Authors: append([]string(nil), m.Authors...),
		Version: m.Version,
	}
}
