// Package chain holds the per-network constants the selector needs: the
// framework address, well-known shared object ids, the default address used
// for address arguments, and the native coin type.
package chain

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is one network's constants table.
type Profile struct {
	Name             string `yaml:"name"`
	FrameworkAddress string `yaml:"framework_address"`
	ClockID          string `yaml:"clock_id"`
	RandomID         string `yaml:"random_id"`
	DenyListID       string `yaml:"deny_list_id"`
	DefaultAddress   string `yaml:"default_address"`
	// NativeCoinModule and NativeCoinName name the native coin struct under
	// the framework address, e.g. sui::SUI.
	NativeCoinModule string `yaml:"native_coin_module"`
	NativeCoinName   string `yaml:"native_coin_name"`
}

// Sui returns the built-in Sui profile.
func Sui() Profile {
	return Profile{
		Name:             "sui",
		FrameworkAddress: "0x" + strings.Repeat("0", 63) + "2",
		ClockID:          "0x6",
		RandomID:         "0x8",
		DenyListID:       "0x403",
		DefaultAddress:   "0x" + strings.Repeat("1", 64),
		NativeCoinModule: "sui",
		NativeCoinName:   "SUI",
	}
}

// NativeCoinType renders the fully qualified native coin type.
func (p Profile) NativeCoinType() string {
	return p.FrameworkAddress + "::" + p.NativeCoinModule + "::" + p.NativeCoinName
}

// IsFramework reports whether addr is exactly the framework address.
func (p Profile) IsFramework(addr string) bool {
	return addr == p.FrameworkAddress
}

// IsFrameworkLoose compares addresses case-insensitively and requires the
// full 66-character form.
func (p Profile) IsFrameworkLoose(addr string) bool {
	return len(addr) == 66 && strings.EqualFold(addr, p.FrameworkAddress)
}

// Validate reports the first missing field.
func (p Profile) Validate() error {
	fields := []struct{ name, v string }{
		{"name", p.Name},
		{"framework_address", p.FrameworkAddress},
		{"clock_id", p.ClockID},
		{"random_id", p.RandomID},
		{"deny_list_id", p.DenyListID},
		{"default_address", p.DefaultAddress},
		{"native_coin_module", p.NativeCoinModule},
		{"native_coin_name", p.NativeCoinName},
	}
	for _, f := range fields {
		if f.v == "" {
			return fmt.Errorf("profile %q: %s is required", p.Name, f.name)
		}
	}
	if !strings.HasPrefix(p.FrameworkAddress, "0x") || len(p.FrameworkAddress) != 66 {
		return fmt.Errorf("profile %q: framework_address must be a 0x-prefixed 64 hex digit address", p.Name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry maps profile names to profiles. The zero value is not usable;
// call NewRegistry.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry returns a registry holding the built-in profiles.
func NewRegistry() *Registry {
	s := Sui()
	return &Registry{profiles: map[string]Profile{s.Name: s}}
}

// Add registers p, replacing any profile of the same name.
func (r *Registry) Add(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.profiles[p.Name] = p
	return nil
}

// Get returns the named profile.
func (r *Registry) Get(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown network profile %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return p, nil
}

// Names returns the registered profile names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for n := range r.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type profilesFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadFile adds every profile listed in a YAML file of the form
// `profiles: [{name: ..., framework_address: ...}]`. Fields left empty are
// taken from the built-in Sui profile.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var f profilesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for _, p := range f.Profiles {
		if err := r.Add(WithDefaults(p)); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// WithDefaults fills the empty fields of p from the Sui profile. Name is
// never filled.
func WithDefaults(p Profile) Profile {
	base := Sui()
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&p.FrameworkAddress, base.FrameworkAddress)
	fill(&p.ClockID, base.ClockID)
	fill(&p.RandomID, base.RandomID)
	fill(&p.DenyListID, base.DenyListID)
	fill(&p.DefaultAddress, base.DefaultAddress)
	fill(&p.NativeCoinModule, base.NativeCoinModule)
	fill(&p.NativeCoinName, base.NativeCoinName)
	return p
}
