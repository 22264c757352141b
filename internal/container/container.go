// Package container manages the ~/.inhabit/ directory hierarchy.
//
// Directory layout:
//
//	~/.inhabit/<workspace>/
//	    settings.yaml            # workspace settings (see internal/config)
//	    <package>.yaml           # package config: stage name -> key/value map
//	    <package>/<stage>/       # outputs produced by that stage
package container

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"inhabit/internal/config"
)

// Workspace represents a named inhabit workspace directory (~/.inhabit/<name>/).
type Workspace struct {
	Dir string
}

// PackageConfig stores per-stage configuration for a package.
// Keys are stage names; values are config key/value maps.
type PackageConfig struct {
	Stages map[string]map[string]string `yaml:"stages"`
}

// Get returns the value of key for stage, or "" if unset.
func (c *PackageConfig) Get(stage, key string) string {
	if c == nil || c.Stages == nil {
		return ""
	}
	return c.Stages[stage][key]
}

// baseDir returns the base ~/.inhabit directory.
func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".inhabit"), nil
}

// Init creates ~/.inhabit/<name>/ with a default settings file and errors if
// it already exists.
func Init(name string) error {
	base, err := baseDir()
	if err != nil {
		return err
	}
	dir := filepath.Join(base, name)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("workspace %q already exists at %s", name, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	return config.Save(dir, config.Default())
}

// Open opens an existing workspace directory. Returns an error if not found.
func Open(name string) (*Workspace, error) {
	base, err := baseDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(base, name)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("workspace %q not found (run 'inhabit init %s' first)", name, name)
	}
	return &Workspace{Dir: dir}, nil
}

// Settings loads the workspace settings.
func (w *Workspace) Settings() (*config.Settings, error) {
	return config.Load(w.Dir)
}

// packagePath returns the path to <package>.yaml inside the workspace.
func (w *Workspace) packagePath(name string) string {
	return filepath.Join(w.Dir, name+".yaml")
}

// OutputDir returns <package>/<stage>/ inside the workspace, creating it.
func (w *Workspace) OutputDir(pkg, stage string) (string, error) {
	dir := filepath.Join(w.Dir, pkg, stage)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return dir, nil
}

// AddPackage writes a package config file. Errors if it already exists.
func (w *Workspace) AddPackage(name string, cfg PackageConfig) error {
	if name == strings.TrimSuffix(config.FileName, ".yaml") {
		return fmt.Errorf("package name %q is reserved", name)
	}
	path := w.packagePath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("package %q already exists in workspace", name)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal package config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write package config: %w", err)
	}
	return nil
}

// LoadPackage reads and parses a package config file.
func (w *Workspace) LoadPackage(name string) (*PackageConfig, error) {
	data, err := os.ReadFile(w.packagePath(name))
	if err != nil {
		return nil, fmt.Errorf("read package %q: %w", name, err)
	}
	var cfg PackageConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse package %q: %w", name, err)
	}
	return &cfg, nil
}

// ListPackages returns package names derived from *.yaml files in the
// workspace, sorted. The settings file is not a package.
func (w *Workspace) ListPackages() ([]string, error) {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return nil, fmt.Errorf("read workspace dir: %w", err)
	}
	var pkgs []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == config.FileName {
			continue
		}
		if strings.HasSuffix(e.Name(), ".yaml") {
			pkgs = append(pkgs, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(pkgs)
	return pkgs, nil
}

// RemovePackage removes a package's config file and output directory.
func (w *Workspace) RemovePackage(name string) error {
	path := w.packagePath(name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("package %q not found in workspace", name)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove package config: %w", err)
	}
	outDir := filepath.Join(w.Dir, name)
	if _, err := os.Stat(outDir); err == nil {
		if err := os.RemoveAll(outDir); err != nil {
			return fmt.Errorf("remove package outputs: %w", err)
		}
	}
	return nil
}

// List returns the names of all workspaces under ~/.inhabit/.
func List() ([]string, error) {
	base, err := baseDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read inhabit dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Archive writes a flattened copy of the workspace outputs into dst. Each
// <package>/<stage>/ directory becomes <package>-<stage>/. Config .yaml files
// are excluded. Errors if dst already exists.
func (w *Workspace) Archive(dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("archive target %q already exists", dst)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	pkgs, err := w.ListPackages()
	if err != nil {
		return err
	}
	for _, pkg := range pkgs {
		pkgDir := filepath.Join(w.Dir, pkg)
		entries, err := os.ReadDir(pkgDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("read package dir %q: %w", pkg, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			flat := pkg + "-" + e.Name()
			if err := copyDir(filepath.Join(pkgDir, e.Name()), filepath.Join(dst, flat)); err != nil {
				return fmt.Errorf("copy %s: %w", flat, err)
			}
		}
	}
	return nil
}

// copyDir recursively copies src to dst.
func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFile(path, target)
	})
}

// copyFile copies a single file from src to dst, preserving permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}

// Remove deletes a workspace and all its contents.
func Remove(name string) error {
	base, err := baseDir()
	if err != nil {
		return err
	}
	dir := filepath.Join(base, name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("workspace %q not found", name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}
