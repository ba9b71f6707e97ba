// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package modhost

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/Foxius/wither-pass/internal/hook"
)

// DiscoveredModule contains a manifest and its directory.
type DiscoveredModule struct {
	Manifest *Manifest
	Dir      string
}

// Directory is a hook.ModuleHost backed by a directory of modules, one
// subdirectory per module with a module.yaml manifest. Every lookup rescans
// the directory so modules installed after startup are picked up.
type Directory struct {
	dir         string
	logger      *slog.Logger
	hostEnabled atomic.Bool
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithLogger sets the logger used for skipped modules.
func WithLogger(l *slog.Logger) DirectoryOption {
	return func(d *Directory) {
		d.logger = l
	}
}

// NewDirectory creates a module host over dir.
func NewDirectory(dir string, opts ...DirectoryOption) *Directory {
	d := &Directory{
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dir returns the scanned directory.
func (d *Directory) Dir() string {
	return d.dir
}

// Problem is a module directory that could not be loaded.
type Problem struct {
	Dir string
	Err error
}

// Discover finds all valid modules. Invalid modules are logged and skipped;
// a missing directory yields no modules.
func (d *Directory) Discover(ctx context.Context) ([]*DiscoveredModule, error) {
	modules, problems, err := d.Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range problems {
		d.logger.Warn("skipping module",
			"dir", filepath.Base(p.Dir),
			"error", FormatSchemaError(p.Err))
	}
	return modules, nil
}

// Scan is Discover without logging: directories that could not be loaded
// are returned as problems.
func (d *Directory) Scan(_ context.Context) ([]*DiscoveredModule, []Problem, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, oops.With("dir", d.dir).Wrapf(err, "failed to read modules directory")
	}

	var (
		modules  []*DiscoveredModule
		problems []Problem
	)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		moduleDir := filepath.Join(d.dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(moduleDir, ManifestFile)) //nolint:gosec // path built from ReadDir entries
		if err != nil {
			problems = append(problems, Problem{
				Dir: moduleDir,
				Err: oops.Code("MANIFEST_INVALID").With("dir", moduleDir).Wrapf(err, "missing manifest"),
			})
			continue
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			problems = append(problems, Problem{Dir: moduleDir, Err: err})
			continue
		}

		modules = append(modules, &DiscoveredModule{
			Manifest: manifest,
			Dir:      moduleDir,
		})
	}

	sort.Slice(modules, func(i, j int) bool {
		return modules[i].Manifest.Name < modules[j].Manifest.Name
	})
	return modules, problems, nil
}

// Lookup implements hook.ModuleHost. Names match case-insensitively.
// Invalid modules are treated as absent without logging, since lookups
// repeat on every recheck.
func (d *Directory) Lookup(name string) hook.ModuleStatus {
	modules, _, err := d.Scan(context.Background())
	if err != nil {
		d.logger.Warn("module lookup failed", "module", name, "error", err)
		return hook.ModuleStatus{}
	}
	for _, m := range modules {
		if strings.EqualFold(m.Manifest.Name, name) {
			return m.Manifest.Status()
		}
	}
	return hook.ModuleStatus{}
}

// HostEnabled implements hook.ModuleHost.
func (d *Directory) HostEnabled() bool {
	return d.hostEnabled.Load()
}

// SetHostEnabled flips the host-readiness signal.
func (d *Directory) SetHostEnabled(enabled bool) {
	d.hostEnabled.Store(enabled)
}
